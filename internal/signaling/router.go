package signaling

import (
	"log/slog"

	"github.com/meshcam/signal-relay/internal/metrics"
	"github.com/meshcam/signal-relay/internal/registry"
)

// Router dispatches inbound messages against the registry and pushes the
// resulting events back through session senders.
//
// Nothing here blocks on another connection's responsiveness: every send is a
// fire-and-forget enqueue, and a failure to reach one peer is logged and
// swallowed without aborting the broadcast to the rest.
type Router struct {
	reg         *registry.Registry
	log         *slog.Logger
	metrics     *metrics.Metrics
	defaultRoom string
}

func NewRouter(reg *registry.Registry, log *slog.Logger, m *metrics.Metrics, defaultRoom string) *Router {
	if m == nil {
		m = metrics.New()
	}
	return &Router{
		reg:         reg,
		log:         log,
		metrics:     m,
		defaultRoom: defaultRoom,
	}
}

// HandleMessage processes one inbound frame attributed to sess. Malformed or
// unrecognized messages are dropped and logged; the connection stays open.
func (rt *Router) HandleMessage(sess *registry.Session, data []byte) {
	msg, err := parseClientMessage(data)
	if err != nil {
		rt.metrics.Inc(metrics.MessageMalformed)
		rt.log.Warn("dropping malformed message", "session_id", sess.ID(), "err", err)
		return
	}

	switch msg.Type {
	case messageTypeJoin:
		rt.handleJoin(sess, msg)
	case messageTypeRelayOffer:
		rt.handleRelay(sess, msg, EventOfferReceived)
	case messageTypeRelayAnswer:
		rt.handleRelay(sess, msg, EventAnswerReceived)
	case messageTypeRelayCandidate:
		rt.handleRelay(sess, msg, EventCandidateReceived)
	case messageTypeRequestPublisher:
		rt.handleRequestPublisher(sess, msg)
	default:
		rt.metrics.Inc(metrics.MessageUnknownType)
		rt.log.Warn("dropping message with unknown type", "session_id", sess.ID(), "message_type", string(msg.Type))
	}
}

func (rt *Router) handleJoin(sess *registry.Session, msg clientMessage) {
	room := msg.Room
	if room == "" {
		room = rt.defaultRoom
	}
	role, _ := registry.ParseRole(msg.Role) // validated at parse time

	res, err := rt.reg.Join(sess, room, role, msg.PublisherKey)
	if err != nil {
		// Disconnect cleanup already ran for this session.
		rt.log.Warn("join for unregistered session", "session_id", sess.ID(), "room", room, "err", err)
		return
	}

	if res.RoomChanged {
		rt.metrics.Inc(metrics.RoomRejoin)
		if res.RemovedPublisherKey != "" {
			rt.broadcast(res.OldRoomPeers, Event{
				Type:         EventPublisherUnavailable,
				PublisherKey: res.RemovedPublisherKey,
				SessionID:    sess.ID(),
			})
		}
		rt.broadcast(res.OldRoomPeers, Event{Type: EventPeerLeft, SessionID: sess.ID()})
	} else if res.RemovedPublisherKey != "" {
		// Same room, new key: retire the old one for current members.
		rt.broadcast(res.Peers, Event{
			Type:         EventPublisherUnavailable,
			PublisherKey: res.RemovedPublisherKey,
			SessionID:    sess.ID(),
		})
	}

	rt.metrics.Inc(metrics.RoomJoin)
	rt.log.Info("session joined room",
		"session_id", sess.ID(),
		"room", res.Room,
		"role", string(res.Role),
		"publisher_key", res.PublisherKey,
	)

	rt.send(sess, Event{Type: EventJoined, Room: res.Room})

	rt.broadcast(res.Peers, Event{
		Type:         EventPeerJoined,
		SessionID:    sess.ID(),
		Role:         string(res.Role),
		PublisherKey: res.PublisherKey,
	})

	if res.Role == registry.RolePublisher && res.PublisherKey != "" {
		rt.broadcast(res.Peers, Event{
			Type:         EventPublisherAvailable,
			PublisherKey: res.PublisherKey,
			SessionID:    sess.ID(),
		})
		return
	}

	for _, entry := range res.Directory {
		rt.send(sess, Event{
			Type:         EventPublisherAvailable,
			PublisherKey: entry.PublisherKey,
			SessionID:    entry.SessionID,
		})
	}
}

func (rt *Router) handleRelay(sess *registry.Session, msg clientMessage, ev EventType) {
	target, ok := rt.reg.Lookup(msg.TargetID)
	if !ok {
		// No error event back to the sender; it times out at a higher layer.
		rt.metrics.Inc(metrics.RelayTargetMissing)
		rt.log.Debug("dropping relay to unknown target",
			"session_id", sess.ID(), "target_id", msg.TargetID, "message_type", string(msg.Type))
		return
	}

	rt.metrics.Inc(metrics.RelayForwarded)
	rt.send(target, Event{
		Type:     ev,
		SenderID: sess.ID(),
		Payload:  msg.Payload,
	})
}

func (rt *Router) handleRequestPublisher(sess *registry.Session, msg clientMessage) {
	room := rt.reg.CurrentRoom(sess)

	owner, purged := rt.reg.LookupDirectoryEntry(room, msg.PublisherKey)
	if purged {
		rt.metrics.Inc(metrics.DirectoryStalePurge)
		rt.log.Debug("purged stale directory entry", "room", room, "publisher_key", msg.PublisherKey)
	}
	if owner == nil {
		rt.metrics.Inc(metrics.PublisherNotFound)
		rt.send(sess, Event{Type: EventPublisherNotFound, PublisherKey: msg.PublisherKey})
		return
	}

	rt.metrics.Inc(metrics.PublisherRequested)
	rt.send(owner, Event{
		Type:          EventPublisherRequested,
		RequesterID:   sess.ID(),
		CorrelationID: msg.CorrelationID,
	})
}

// HandleDisconnect tears down all registry state for sess and notifies the
// remaining members of its room. Safe to invoke more than once: the transport
// may report both an error and a close for the same connection.
func (rt *Router) HandleDisconnect(sess *registry.Session) {
	res, ok := rt.reg.Disconnect(sess.ID())
	if !ok {
		return
	}

	rt.metrics.Inc(metrics.SessionDisconnected)
	rt.log.Info("session disconnected", "session_id", sess.ID(), "room", res.Room)

	if res.PublisherKey != "" {
		rt.broadcast(res.Peers, Event{
			Type:         EventPublisherUnavailable,
			PublisherKey: res.PublisherKey,
			SessionID:    sess.ID(),
		})
	}
	rt.broadcast(res.Peers, Event{Type: EventPeerLeft, SessionID: sess.ID()})
}

func (rt *Router) broadcast(peers []*registry.Session, ev Event) {
	for _, peer := range peers {
		rt.send(peer, ev)
	}
}

func (rt *Router) send(sess *registry.Session, ev Event) {
	if err := sess.Send(ev); err != nil {
		rt.metrics.Inc(metrics.SendFailure)
		rt.log.Debug("dropping event for unreachable peer",
			"session_id", sess.ID(), "event", string(ev.Type), "err", err)
	}
}
