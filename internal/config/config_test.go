package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func lookupMap(vals map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vals[key]
		return v, ok
	}
}

func mustLoad(t *testing.T, vals map[string]string, args ...string) Config {
	t.Helper()
	cfg, err := load(lookupMap(vals), args)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return cfg
}

func TestLoadDevDefaults(t *testing.T) {
	cfg := mustLoad(t, nil)

	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("ListenAddr: %q", cfg.ListenAddr)
	}
	if cfg.Mode != ModeDev || cfg.LogFormat != LogFormatText || cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("dev defaults: mode=%q format=%q level=%v", cfg.Mode, cfg.LogFormat, cfg.LogLevel)
	}
	if cfg.DefaultRoom != DefaultRoom {
		t.Fatalf("DefaultRoom: %q", cfg.DefaultRoom)
	}
	if cfg.MaxSessions != 0 {
		t.Fatalf("MaxSessions: %d", cfg.MaxSessions)
	}
	if cfg.MaxSignalingMessageBytes != DefaultMaxSignalingMsgBytes {
		t.Fatalf("MaxSignalingMessageBytes: %d", cfg.MaxSignalingMessageBytes)
	}
	if cfg.SignalingWSIdleTimeout != DefaultSignalingWSIdleTimeout || cfg.SignalingWSPingInterval != DefaultSignalingWSPingInterval {
		t.Fatalf("ws timeouts: idle=%v ping=%v", cfg.SignalingWSIdleTimeout, cfg.SignalingWSPingInterval)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("AllowedOrigins: %v", cfg.AllowedOrigins)
	}
	if cfg.TURNRESTSharedSecret != "" || cfg.TURNRESTTTLSeconds != DefaultTURNRESTTTLSeconds || cfg.TURNRESTUsernamePrefix != DefaultTURNRESTUsernamePrefix {
		t.Fatalf("turn rest defaults: %q %d %q", cfg.TURNRESTSharedSecret, cfg.TURNRESTTTLSeconds, cfg.TURNRESTUsernamePrefix)
	}
}

func TestLoadProdDefaults(t *testing.T) {
	cfg := mustLoad(t, map[string]string{envVarMode: "prod"})
	if cfg.LogFormat != LogFormatJSON || cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("prod defaults: format=%q level=%v", cfg.LogFormat, cfg.LogLevel)
	}
}

func TestFlagsWinOverEnv(t *testing.T) {
	cfg := mustLoad(t,
		map[string]string{
			envVarListenAddr: "0.0.0.0:9999",
			envVarMode:       "prod",
			envVarLogLevel:   "error",
		},
		"-listen-addr", "127.0.0.1:7777",
		"-mode", "dev",
		"-log-level", "warn",
	)
	if cfg.ListenAddr != "127.0.0.1:7777" {
		t.Fatalf("ListenAddr: %q", cfg.ListenAddr)
	}
	if cfg.Mode != ModeDev || cfg.LogLevel != slog.LevelWarn {
		t.Fatalf("flag overrides: mode=%q level=%v", cfg.Mode, cfg.LogLevel)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg := mustLoad(t, map[string]string{
		envVarAllowedOrigins:           "https://cam.example.com, https://viewer.example.com ,",
		envVarDefaultRoom:              "house",
		envVarMaxSessions:              "12",
		envVarMaxSignalingMessageBytes: "2048",
		envVarSignalingWSIdleTimeout:   "90s",
		envVarSignalingWSPingInterval:  "20s",
		envVarSignalingSendQueueSize:   "8",
		envVarShutdownTimeout:          "3s",
	})

	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://cam.example.com" {
		t.Fatalf("AllowedOrigins: %v", cfg.AllowedOrigins)
	}
	if cfg.DefaultRoom != "house" || cfg.MaxSessions != 12 {
		t.Fatalf("room/sessions: %q %d", cfg.DefaultRoom, cfg.MaxSessions)
	}
	if cfg.MaxSignalingMessageBytes != 2048 || cfg.SignalingSendQueueSize != 8 {
		t.Fatalf("bytes/queue: %d %d", cfg.MaxSignalingMessageBytes, cfg.SignalingSendQueueSize)
	}
	if cfg.SignalingWSIdleTimeout != 90*time.Second || cfg.SignalingWSPingInterval != 20*time.Second {
		t.Fatalf("ws timeouts: %v %v", cfg.SignalingWSIdleTimeout, cfg.SignalingWSPingInterval)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("ShutdownTimeout: %v", cfg.ShutdownTimeout)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		vals    map[string]string
		args    []string
		wantErr string
	}{
		{
			name:    "unknown mode",
			args:    []string{"-mode", "staging"},
			wantErr: "unknown mode",
		},
		{
			name:    "unknown log format",
			args:    []string{"-log-format", "logfmt"},
			wantErr: "unknown log format",
		},
		{
			name:    "unknown log level",
			args:    []string{"-log-level", "verbose"},
			wantErr: "unknown log level",
		},
		{
			name:    "empty listen addr",
			args:    []string{"-listen-addr", ""},
			wantErr: "must not be empty",
		},
		{
			name:    "negative max sessions",
			vals:    map[string]string{envVarMaxSessions: "-1"},
			wantErr: "must not be negative",
		},
		{
			name:    "non-numeric message bytes",
			vals:    map[string]string{envVarMaxSignalingMessageBytes: "lots"},
			wantErr: envVarMaxSignalingMessageBytes,
		},
		{
			name:    "zero idle timeout",
			vals:    map[string]string{envVarSignalingWSIdleTimeout: "0s"},
			wantErr: "must be positive",
		},
		{
			name: "ping not shorter than idle",
			vals: map[string]string{
				envVarSignalingWSIdleTimeout:  "10s",
				envVarSignalingWSPingInterval: "10s",
			},
			wantErr: "must be shorter",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(lookupMap(tc.vals), tc.args)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error: got %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestNewLoggerHonorsFormat(t *testing.T) {
	for _, format := range []LogFormat{LogFormatText, LogFormatJSON} {
		logger, err := NewLogger(Config{LogFormat: format, LogLevel: slog.LevelInfo})
		if err != nil {
			t.Fatalf("NewLogger(%s): %v", format, err)
		}
		if logger == nil {
			t.Fatalf("NewLogger(%s): nil logger", format)
		}
	}
	if _, err := NewLogger(Config{LogFormat: "syslog"}); err == nil {
		t.Fatalf("NewLogger accepted unknown format")
	}
}
