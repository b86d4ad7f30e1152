package signaling

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meshcam/signal-relay/internal/metrics"
)

var (
	ErrPeerClosed    = errors.New("signaling: peer closed")
	ErrSendQueueFull = errors.New("signaling: send queue full")
)

const wsWriteWait = 1 * time.Second

// wsPeer owns the outbound half of one WebSocket connection. Events are
// enqueued onto a buffered channel and drained by a single write pump
// goroutine, so delivery to each recipient preserves enqueue order and a
// slow reader never blocks the goroutine that triggered the send.
type wsPeer struct {
	conn    *websocket.Conn
	log     *slog.Logger
	metrics *metrics.Metrics

	pingInterval time.Duration

	sendCh chan []byte
	done   chan struct{}

	closeOnce sync.Once
}

func newWSPeer(conn *websocket.Conn, log *slog.Logger, m *metrics.Metrics, queueSize int, pingInterval time.Duration) *wsPeer {
	return &wsPeer{
		conn:         conn,
		log:          log,
		metrics:      m,
		pingInterval: pingInterval,
		sendCh:       make(chan []byte, queueSize),
		done:         make(chan struct{}),
	}
}

// Send implements registry.Sender. It never blocks: once the queue is full
// the event is dropped and counted, matching the fire-and-forget semantics of
// signaling notifications.
func (p *wsPeer) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	select {
	case <-p.done:
		return ErrPeerClosed
	default:
	}

	select {
	case p.sendCh <- data:
		return nil
	default:
		p.metrics.Inc(metrics.SendQueueOverflow)
		return ErrSendQueueFull
	}
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with periodic pings. It owns all writes to the connection.
func (p *wsPeer) writePump() {
	ticker := time.NewTicker(p.pingInterval)
	defer ticker.Stop()
	defer p.conn.Close()

	for {
		select {
		case <-p.done:
			_ = p.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait),
			)
			return
		case data := <-p.sendCh:
			_ = p.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				p.metrics.Inc(metrics.SendFailure)
				p.log.Debug("websocket write failed", "err", err)
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (p *wsPeer) close() {
	p.closeOnce.Do(func() { close(p.done) })
}
