package signaling

import "encoding/json"

// EventType tags one server-to-client event.
type EventType string

const (
	EventWelcome              EventType = "welcome"
	EventJoined               EventType = "joined"
	EventPeerJoined           EventType = "peer-joined"
	EventPeerLeft             EventType = "peer-left"
	EventPublisherAvailable   EventType = "publisher-available"
	EventPublisherUnavailable EventType = "publisher-unavailable"
	EventPublisherNotFound    EventType = "publisher-not-found"
	EventPublisherRequested   EventType = "publisher-requested"
	EventOfferReceived        EventType = "offer-received"
	EventAnswerReceived       EventType = "answer-received"
	EventCandidateReceived    EventType = "candidate-received"
)

// Event is the outbound wire union consumed by connecting peers. Only the
// fields relevant to the event type are set; the rest are omitted.
type Event struct {
	Type          EventType       `json:"type"`
	SessionID     string          `json:"sessionId,omitempty"`
	Room          string          `json:"room,omitempty"`
	Role          string          `json:"role,omitempty"`
	PublisherKey  string          `json:"publisherKey,omitempty"`
	SenderID      string          `json:"senderId,omitempty"`
	RequesterID   string          `json:"requesterId,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}
