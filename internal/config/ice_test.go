package config

import (
	"strings"
	"testing"
)

func TestParseICEServersJSON(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		turnREST    bool
		wantErr     string
		wantServers int
	}{
		{
			name:        "single url string",
			raw:         `[{"urls":"stun:stun.l.google.com:19302"}]`,
			wantServers: 1,
		},
		{
			name:        "url array with credentials",
			raw:         `[{"urls":["turn:turn.example.com:3478","turns:turn.example.com:5349"],"username":"u","credential":"p"}]`,
			wantServers: 1,
		},
		{
			name:    "turn without credentials",
			raw:     `[{"urls":"turn:turn.example.com:3478"}]`,
			wantErr: "require username",
		},
		{
			name:        "turn without credentials under turn rest",
			raw:         `[{"urls":"turn:turn.example.com:3478"}]`,
			turnREST:    true,
			wantServers: 1,
		},
		{
			name:    "unsupported scheme",
			raw:     `[{"urls":"https://example.com"}]`,
			wantErr: "unsupported url scheme",
		},
		{
			name:    "missing urls",
			raw:     `[{"username":"u"}]`,
			wantErr: "missing urls",
		},
		{
			name:    "not json",
			raw:     `stun:stun.example.com`,
			wantErr: "invalid character",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			servers, err := ParseICEServersJSON(tc.raw, tc.turnREST)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("error: got %v, want containing %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseICEServersJSON: %v", err)
			}
			if len(servers) != tc.wantServers {
				t.Fatalf("servers: %+v", servers)
			}
		})
	}
}

func TestICEServersFromConvenienceEnv(t *testing.T) {
	cfg := mustLoad(t, map[string]string{
		envStunURLs:       "stun:stun1.example.com:3478, stun:stun2.example.com:3478",
		envTurnURLs:       "turn:turn.example.com:3478",
		envTurnUsername:   "user",
		envTurnCredential: "pass",
	})

	if len(cfg.ICEServers) != 2 {
		t.Fatalf("ICEServers: %+v", cfg.ICEServers)
	}
	if len(cfg.ICEServers[0].URLs) != 2 {
		t.Fatalf("stun urls: %v", cfg.ICEServers[0].URLs)
	}
	if cfg.ICEServers[1].Username != "user" || cfg.ICEServers[1].Credential != "pass" {
		t.Fatalf("turn credentials: %+v", cfg.ICEServers[1])
	}
}

func TestTURNConvenienceEnvRequiresCredentials(t *testing.T) {
	_, err := load(lookupMap(map[string]string{
		envTurnURLs: "turn:turn.example.com:3478",
	}), nil)
	if err == nil || !strings.Contains(err.Error(), "both must be set") {
		t.Fatalf("error: %v", err)
	}

	// With a TURN REST secret configured, static credentials become optional.
	cfg := mustLoad(t, map[string]string{
		envTurnURLs:                "turn:turn.example.com:3478",
		envVarTURNRESTSharedSecret: "s3cret",
	})
	if len(cfg.ICEServers) != 1 || cfg.ICEServers[0].Username != "" {
		t.Fatalf("ICEServers: %+v", cfg.ICEServers)
	}
}

func TestICEServersJSONWinsOverConvenienceEnv(t *testing.T) {
	cfg := mustLoad(t, map[string]string{
		envICEServersJSON: `[{"urls":"stun:json.example.com:3478"}]`,
		envStunURLs:       "stun:ignored.example.com:3478",
	})
	if len(cfg.ICEServers) != 1 || cfg.ICEServers[0].URLs[0] != "stun:json.example.com:3478" {
		t.Fatalf("ICEServers: %+v", cfg.ICEServers)
	}
}
