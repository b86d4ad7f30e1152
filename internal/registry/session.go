package registry

// Role labels what a session does inside its room.
type Role string

const (
	RoleUnspecified Role = ""
	RolePublisher   Role = "publisher"
	RoleSubscriber  Role = "subscriber"
)

// ParseRole maps a wire role string to a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUnspecified, RolePublisher, RoleSubscriber:
		return Role(s), true
	default:
		return RoleUnspecified, false
	}
}

// Sender delivers one encoded event to a session's transport.
//
// Implementations must not block: a slow or already-closed peer returns an
// error (or drops the event) instead of stalling the caller. Broadcasting to
// a room must never be delayed by one unresponsive member.
type Sender interface {
	Send(v any) error
}

// Session is the in-memory representative of one live connection.
//
// The id and sender are immutable. Room membership, role, and publisher key
// are owned by the Registry and mutated only under its lock; callers outside
// this package observe them through Join/Disconnect results and the
// RoomMembers/RoomDirectory snapshots.
type Session struct {
	id     string
	sender Sender

	room         string
	role         Role
	publisherKey string
}

func NewSession(id string, sender Sender) *Session {
	return &Session{id: id, sender: sender}
}

func (s *Session) ID() string { return s.id }

// Send enqueues one event for delivery to this session's transport.
func (s *Session) Send(v any) error {
	if s.sender == nil {
		return ErrNoSender
	}
	return s.sender.Send(v)
}
