/*
Package configs loads the server configuration.

Values come from environment variables with development-friendly defaults;
command-line flags registered through BindFlags override the environment when
they are set explicitly.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/spf13/pflag"

	"meetsignal/internal/pkg/iceconf"
)

const developmentJWTSecret = "dev_insecure_secret_change_me"

// Flag names shared by BindFlags and LoadConfig.
const (
	FlagEnvironment = "env"
	FlagPort        = "port"
	FlagLogLevel    = "log-level"
	FlagDatabaseURL = "database-url"
)

// AppConfig holds every setting the server needs.
type AppConfig struct {
	// General
	Environment string
	Port        int
	LogLevel    string

	// Security
	AllowedOrigins []string
	JWTSecret      string

	// Meeting directory; empty selects the in-memory directory.
	DatabaseDSN string

	// WebRTC
	ICEServers []webrtc.ICEServer

	// Signaling
	EmptyRoomTTL time.Duration
	PongWait     time.Duration
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// BindFlags registers the flags LoadConfig understands on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String(FlagEnvironment, "", "runtime environment (overrides ENVIRONMENT)")
	fs.IntP(FlagPort, "p", 0, "HTTP listen port (overrides PORT)")
	fs.StringP(FlagLogLevel, "l", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	fs.String(FlagDatabaseURL, "", "PostgreSQL DSN for the meeting directory (overrides DATABASE_URL)")
}

// LoadConfig builds the configuration from the environment and, when fs is not
// nil, from any of its flags that were set on the command line.
func LoadConfig(fs *pflag.FlagSet) (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.Environment = envOr("ENVIRONMENT", "development")
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	cfg.DatabaseDSN = os.Getenv("DATABASE_URL")

	port, err := strconv.Atoi(envOr("PORT", "3002"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if fs != nil {
		if err := applyFlags(cfg, fs); err != nil {
			return nil, err
		}
	}

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the allowed range (1024-65535)", cfg.Port)
	}

	// --- Security ---
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in %s environment", cfg.Environment)
		}
		cfg.JWTSecret = developmentJWTSecret
	}

	// --- WebRTC ---
	cfg.ICEServers, err = iceconf.Parse(
		os.Getenv("ICE_SERVERS"),
		os.Getenv("TURN_USERNAME"),
		os.Getenv("TURN_CREDENTIAL"),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid ICE_SERVERS: %w", err)
	}

	// --- Signaling ---
	if cfg.EmptyRoomTTL, err = durationEnv("EMPTY_ROOM_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.EmptyRoomTTL < 0 {
		return nil, fmt.Errorf("EMPTY_ROOM_TTL must not be negative")
	}

	if cfg.PongWait, err = durationEnv("PONG_WAIT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.PongWait < time.Second {
		return nil, fmt.Errorf("PONG_WAIT must be at least 1s, got %s", cfg.PongWait)
	}

	return cfg, nil
}

func applyFlags(cfg *AppConfig, fs *pflag.FlagSet) error {
	var err error

	if fs.Changed(FlagEnvironment) {
		if cfg.Environment, err = fs.GetString(FlagEnvironment); err != nil {
			return err
		}
	}
	if fs.Changed(FlagPort) {
		if cfg.Port, err = fs.GetInt(FlagPort); err != nil {
			return err
		}
	}
	if fs.Changed(FlagLogLevel) {
		if cfg.LogLevel, err = fs.GetString(FlagLogLevel); err != nil {
			return err
		}
	}
	if fs.Changed(FlagDatabaseURL) {
		if cfg.DatabaseDSN, err = fs.GetString(FlagDatabaseURL); err != nil {
			return err
		}
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return d, nil
}
