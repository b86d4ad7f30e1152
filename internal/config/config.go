// Package config loads the relay's configuration from environment variables
// and command-line flags. Flags win over env vars; env vars win over
// defaults. Mode ("dev" or "prod") picks the logging defaults.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
)

const (
	envVarListenAddr      = "MESHCAM_SIGNAL_RELAY_LISTEN_ADDR"
	envVarMode            = "MESHCAM_SIGNAL_RELAY_MODE"
	envVarLogFormat       = "MESHCAM_SIGNAL_RELAY_LOG_FORMAT"
	envVarLogLevel        = "MESHCAM_SIGNAL_RELAY_LOG_LEVEL"
	envVarShutdownTimeout = "MESHCAM_SIGNAL_RELAY_SHUTDOWN_TIMEOUT"
	envVarStaticDir       = "MESHCAM_SIGNAL_RELAY_STATIC_DIR"

	envVarAllowedOrigins = "ALLOWED_ORIGINS"
	envVarDefaultRoom    = "DEFAULT_ROOM"
	envVarMaxSessions    = "MAX_SESSIONS"

	// Signaling WebSocket hardening + keepalive.
	envVarMaxSignalingMessageBytes = "MAX_SIGNALING_MESSAGE_BYTES"
	envVarSignalingWSIdleTimeout   = "SIGNALING_WS_IDLE_TIMEOUT"
	envVarSignalingWSPingInterval  = "SIGNALING_WS_PING_INTERVAL"
	envVarSignalingSendQueueSize   = "SIGNALING_SEND_QUEUE_SIZE"

	// coturn TURN REST (ephemeral) credentials, embedded in /webrtc/ice.
	envVarTURNRESTSharedSecret   = "TURN_REST_SHARED_SECRET"
	envVarTURNRESTTTLSeconds     = "TURN_REST_TTL_SECONDS"
	envVarTURNRESTUsernamePrefix = "TURN_REST_USERNAME_PREFIX"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

const (
	DefaultListenAddr              = "127.0.0.1:8080"
	DefaultShutdownTimeout         = 15 * time.Second
	DefaultRoom                    = "lobby"
	DefaultMaxSignalingMsgBytes    = int64(64 * 1024)
	DefaultSignalingWSIdleTimeout  = 60 * time.Second
	DefaultSignalingWSPingInterval = 25 * time.Second
	DefaultSignalingSendQueueSize  = 32
	DefaultTURNRESTTTLSeconds      = int64(600)
	DefaultTURNRESTUsernamePrefix  = "meshcam"

	DefaultMode Mode = ModeDev
)

type Config struct {
	ListenAddr      string
	Mode            Mode
	LogFormat       LogFormat
	LogLevel        slog.Level
	ShutdownTimeout time.Duration

	// AllowedOrigins is the browser Origin allowlist. Empty means same-host
	// only (see internal/origin).
	AllowedOrigins []string

	// StaticDir, when set, is served at / for the browser UI.
	StaticDir string

	// DefaultRoom is used when a join message omits the room name.
	DefaultRoom string

	// MaxSessions caps concurrent signaling sessions. Zero means unlimited.
	MaxSessions int

	MaxSignalingMessageBytes int64
	SignalingWSIdleTimeout   time.Duration
	SignalingWSPingInterval  time.Duration
	SignalingSendQueueSize   int

	// ICEServers is the STUN/TURN list handed to clients at /webrtc/ice.
	ICEServers []webrtc.ICEServer

	// TURN REST shared-secret credentials. When SharedSecret is empty the
	// /webrtc/ice response carries the static ICEServers only.
	TURNRESTSharedSecret   string
	TURNRESTTTLSeconds     int64
	TURNRESTUsernamePrefix string
}

func Load(args []string) (Config, error) {
	return load(os.LookupEnv, args)
}

func load(lookup func(string) (string, bool), args []string) (Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	fs := flag.NewFlagSet("meshcam-signal-relay", flag.ContinueOnError)
	listenAddr := fs.String("listen-addr", valueOr(get(envVarListenAddr), DefaultListenAddr), "HTTP listen address")
	modeStr := fs.String("mode", valueOr(get(envVarMode), string(DefaultMode)), "run mode: dev or prod")
	logFormatStr := fs.String("log-format", get(envVarLogFormat), "log format: text or json (default depends on mode)")
	logLevelStr := fs.String("log-level", get(envVarLogLevel), "log level: debug, info, warn, or error (default depends on mode)")
	staticDir := fs.String("static-dir", get(envVarStaticDir), "directory of static UI assets to serve at / (optional)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	mode := Mode(strings.ToLower(strings.TrimSpace(*modeStr)))
	switch mode {
	case ModeDev, ModeProd:
	default:
		return Config{}, fmt.Errorf("%s: unknown mode %q (want dev or prod)", envVarMode, *modeStr)
	}

	formatStr := strings.TrimSpace(*logFormatStr)
	if formatStr == "" {
		formatStr = defaultLogFormatForMode(mode)
	}
	logFormat := LogFormat(strings.ToLower(formatStr))
	switch logFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return Config{}, fmt.Errorf("%s: unknown log format %q (want text or json)", envVarLogFormat, formatStr)
	}

	levelStr := strings.TrimSpace(*logLevelStr)
	if levelStr == "" {
		levelStr = defaultLogLevelForMode(mode)
	}
	logLevel, err := parseLogLevel(levelStr)
	if err != nil {
		return Config{}, err
	}

	shutdownTimeout, err := durationValue(get(envVarShutdownTimeout), DefaultShutdownTimeout, envVarShutdownTimeout)
	if err != nil {
		return Config{}, err
	}

	maxSessions, err := intValue(get(envVarMaxSessions), 0, envVarMaxSessions)
	if err != nil {
		return Config{}, err
	}

	maxMsgBytes, err := int64Value(get(envVarMaxSignalingMessageBytes), DefaultMaxSignalingMsgBytes, envVarMaxSignalingMessageBytes)
	if err != nil {
		return Config{}, err
	}
	idleTimeout, err := durationValue(get(envVarSignalingWSIdleTimeout), DefaultSignalingWSIdleTimeout, envVarSignalingWSIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	pingInterval, err := durationValue(get(envVarSignalingWSPingInterval), DefaultSignalingWSPingInterval, envVarSignalingWSPingInterval)
	if err != nil {
		return Config{}, err
	}
	if pingInterval >= idleTimeout {
		return Config{}, fmt.Errorf("%s must be shorter than %s (%v >= %v)",
			envVarSignalingWSPingInterval, envVarSignalingWSIdleTimeout, pingInterval, idleTimeout)
	}
	sendQueueSize, err := intValue(get(envVarSignalingSendQueueSize), DefaultSignalingSendQueueSize, envVarSignalingSendQueueSize)
	if err != nil {
		return Config{}, err
	}

	turnRESTSecret := get(envVarTURNRESTSharedSecret)

	iceServers, err := parseICEServersFromValues(
		get(envICEServersJSON),
		get(envStunURLs),
		get(envTurnURLs),
		get(envTurnUsername),
		get(envTurnCredential),
		turnRESTSecret != "",
	)
	if err != nil {
		return Config{}, err
	}

	turnRESTTTL, err := int64Value(get(envVarTURNRESTTTLSeconds), DefaultTURNRESTTTLSeconds, envVarTURNRESTTTLSeconds)
	if err != nil {
		return Config{}, err
	}
	turnRESTPrefix := valueOr(get(envVarTURNRESTUsernamePrefix), DefaultTURNRESTUsernamePrefix)

	cfg := Config{
		ListenAddr:      strings.TrimSpace(*listenAddr),
		Mode:            mode,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		ShutdownTimeout: shutdownTimeout,

		AllowedOrigins: splitCommaSeparated(get(envVarAllowedOrigins)),
		StaticDir:      strings.TrimSpace(*staticDir),

		DefaultRoom: valueOr(get(envVarDefaultRoom), DefaultRoom),
		MaxSessions: maxSessions,

		MaxSignalingMessageBytes: maxMsgBytes,
		SignalingWSIdleTimeout:   idleTimeout,
		SignalingWSPingInterval:  pingInterval,
		SignalingSendQueueSize:   sendQueueSize,

		ICEServers: iceServers,

		TURNRESTSharedSecret:   turnRESTSecret,
		TURNRESTTTLSeconds:     turnRESTTTL,
		TURNRESTUsernamePrefix: turnRESTPrefix,
	}
	if cfg.ListenAddr == "" {
		return Config{}, fmt.Errorf("%s: listen address must not be empty", envVarListenAddr)
	}
	return cfg, nil
}

// NewLogger builds the process logger from the loaded configuration.
func NewLogger(cfg Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	switch cfg.LogFormat {
	case LogFormatText:
		handler = slog.NewTextHandler(os.Stdout, opts)
	case LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	return slog.New(handler), nil
}

func defaultLogFormatForMode(mode Mode) string {
	if mode == ModeProd {
		return string(LogFormatJSON)
	}
	return string(LogFormatText)
}

func defaultLogLevelForMode(mode Mode) string {
	if mode == ModeProd {
		return "info"
	}
	return "debug"
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%s: unknown log level %q", envVarLogLevel, s)
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func durationValue(raw string, fallback time.Duration, name string) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %v", name, d)
	}
	return d, nil
}

func intValue(raw string, fallback int, name string) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: must not be negative, got %d", name, n)
	}
	return n, nil
}

func int64Value(raw string, fallback int64, name string) (int64, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: must not be negative, got %d", name, n)
	}
	return n, nil
}

func splitCommaSeparated(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
