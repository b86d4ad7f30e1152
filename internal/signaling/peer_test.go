package signaling

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/meshcam/signal-relay/internal/metrics"
)

func TestWSPeerSendNeverBlocks(t *testing.T) {
	m := metrics.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// No write pump running: the queue fills and stays full.
	p := newWSPeer(nil, logger, m, 2, time.Minute)

	if err := p.Send(Event{Type: EventWelcome}); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if err := p.Send(Event{Type: EventPeerJoined}); err != nil {
		t.Fatalf("second Send: %v", err)
	}
	if err := p.Send(Event{Type: EventPeerLeft}); !errors.Is(err, ErrSendQueueFull) {
		t.Fatalf("overflow Send: %v, want ErrSendQueueFull", err)
	}
	if m.Get(metrics.SendQueueOverflow) != 1 {
		t.Fatalf("overflow counter: %d", m.Get(metrics.SendQueueOverflow))
	}
}

func TestWSPeerSendAfterClose(t *testing.T) {
	m := metrics.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := newWSPeer(nil, logger, m, 2, time.Minute)

	p.close()
	p.close() // idempotent

	if err := p.Send(Event{Type: EventWelcome}); !errors.Is(err, ErrPeerClosed) {
		t.Fatalf("Send after close: %v, want ErrPeerClosed", err)
	}
}

func TestWSPeerSendRejectsUnmarshalable(t *testing.T) {
	m := metrics.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := newWSPeer(nil, logger, m, 2, time.Minute)

	if err := p.Send(make(chan int)); err == nil {
		t.Fatalf("Send accepted an unmarshalable value")
	}
}
