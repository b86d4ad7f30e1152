package metrics

import "sync"

// Event counter names. Names are intentionally simple; a follow-up metrics
// task can standardize and export these via a full Prometheus client.
const (
	SessionConnected    = "session_connected"
	SessionDisconnected = "session_disconnected"
	SessionRefused      = "session_refused"

	RoomJoin   = "room_join"
	RoomRejoin = "room_rejoin"

	MessageMalformed    = "message_malformed"
	MessageUnknownType  = "message_unknown_type"
	RelayForwarded      = "relay_forwarded"
	RelayTargetMissing  = "relay_target_missing"
	PublisherRequested  = "publisher_requested"
	PublisherNotFound   = "publisher_not_found"
	DirectoryStalePurge = "directory_stale_purge"

	SendQueueOverflow = "send_queue_overflow"
	SendFailure       = "send_failure"
)

// Metrics is a minimal, concurrency-safe counter registry.
//
// The relay is expected to plug into a real metrics backend eventually; this
// type exists to keep routing logic testable while still exposing counters in
// Prometheus' text format (see PrometheusHandler).
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, delta uint64) {
	m.mu.Lock()
	if m.m == nil {
		m.m = make(map[string]uint64)
	}
	m.m[name] += delta
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
