package signaling

import (
	"strings"
	"testing"
)

func TestParseClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
		check   func(t *testing.T, msg clientMessage)
	}{
		{
			name: "join with everything",
			raw:  `{"type":"join","room":"den","role":"publisher","publisherKey":"cam-1"}`,
			check: func(t *testing.T, msg clientMessage) {
				if msg.Type != messageTypeJoin || msg.Room != "den" || msg.Role != "publisher" || msg.PublisherKey != "cam-1" {
					t.Fatalf("parsed message: %+v", msg)
				}
			},
		},
		{
			name: "join with no fields",
			raw:  `{"type":"join"}`,
			check: func(t *testing.T, msg clientMessage) {
				if msg.Room != "" || msg.Role != "" {
					t.Fatalf("parsed message: %+v", msg)
				}
			},
		},
		{
			name:    "join with bogus role",
			raw:     `{"type":"join","role":"director"}`,
			wantErr: "unknown role",
		},
		{
			name: "relay offer",
			raw:  `{"type":"relay-offer","targetId":"abc","payload":{"sdp":"v=0"}}`,
			check: func(t *testing.T, msg clientMessage) {
				if msg.TargetID != "abc" || string(msg.Payload) != `{"sdp":"v=0"}` {
					t.Fatalf("parsed message: %+v", msg)
				}
			},
		},
		{
			name:    "relay without target",
			raw:     `{"type":"relay-answer","payload":{}}`,
			wantErr: "missing targetId",
		},
		{
			name:    "relay without payload",
			raw:     `{"type":"relay-candidate","targetId":"abc"}`,
			wantErr: "missing payload",
		},
		{
			name:    "request-publisher without key",
			raw:     `{"type":"request-publisher"}`,
			wantErr: "missing publisherKey",
		},
		{
			name: "unknown type parses",
			raw:  `{"type":"subscribe-all"}`,
			check: func(t *testing.T, msg clientMessage) {
				if msg.Type != "subscribe-all" {
					t.Fatalf("parsed type: %q", msg.Type)
				}
			},
		},
		{
			name: "unknown fields tolerated",
			raw:  `{"type":"join","room":"den","futureField":true}`,
			check: func(t *testing.T, msg clientMessage) {
				if msg.Room != "den" {
					t.Fatalf("parsed message: %+v", msg)
				}
			},
		},
		{
			name:    "not json",
			raw:     `hello`,
			wantErr: "invalid character",
		},
		{
			name:    "json but not an object",
			raw:     `[1,2,3]`,
			wantErr: "cannot unmarshal",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := parseClientMessage([]byte(tc.raw))
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("error: got %v, want containing %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseClientMessage: %v", err)
			}
			if tc.check != nil {
				tc.check(t, msg)
			}
		})
	}
}
