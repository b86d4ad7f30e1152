package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/meshcam/signal-relay/internal/registry"
)

type messageType string

const (
	messageTypeJoin             messageType = "join"
	messageTypeRelayOffer       messageType = "relay-offer"
	messageTypeRelayAnswer      messageType = "relay-answer"
	messageTypeRelayCandidate   messageType = "relay-candidate"
	messageTypeRequestPublisher messageType = "request-publisher"
)

// clientMessage is the inbound wire union. Payload is the opaque SDP or ICE
// candidate body produced by the negotiating peers; it is forwarded
// byte-for-byte and never inspected.
type clientMessage struct {
	Type          messageType     `json:"type"`
	Room          string          `json:"room,omitempty"`
	Role          string          `json:"role,omitempty"`
	PublisherKey  string          `json:"publisherKey,omitempty"`
	TargetID      string          `json:"targetId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
}

// parseClientMessage decodes and validates one inbound message. A message
// whose type tag is unrecognized parses fine; the router logs and drops it.
// Unknown fields are tolerated so older servers survive newer clients.
func parseClientMessage(data []byte) (clientMessage, error) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return clientMessage{}, err
	}
	if err := msg.validate(); err != nil {
		return clientMessage{}, err
	}
	return msg, nil
}

func (m clientMessage) validate() error {
	switch m.Type {
	case messageTypeJoin:
		if _, ok := registry.ParseRole(m.Role); !ok {
			return fmt.Errorf("join message has unknown role %q", m.Role)
		}
	case messageTypeRelayOffer, messageTypeRelayAnswer, messageTypeRelayCandidate:
		if m.TargetID == "" {
			return fmt.Errorf("%s message missing targetId", m.Type)
		}
		if len(m.Payload) == 0 {
			return fmt.Errorf("%s message missing payload", m.Type)
		}
	case messageTypeRequestPublisher:
		if m.PublisherKey == "" {
			return fmt.Errorf("request-publisher message missing publisherKey")
		}
	}
	return nil
}
