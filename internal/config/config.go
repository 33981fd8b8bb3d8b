package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string

	BackendURL     string
	RealtimeURL    string
	SpotifyAPIURL  string
	DeviceID       string
	SessionID      string
	SessionToken   string
	SessionSecret  []byte
	RequestTimeout time.Duration

	ViewPort       string
	AllowedOrigins []string

	Redis Redis
	Kafka Kafka
	MySQL MySQL

	Playback Playback
}

type Redis struct {
	Host     string
	Port     string
	Password string
}

// Enabled reports whether a snapshot cache should be wired.
func (r Redis) Enabled() bool { return r.Host != "" }

func (r Redis) Addr() string { return r.Host + ":" + r.Port }

type Kafka struct {
	Brokers []string
	Topic   string
}

func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

type MySQL struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

func (m MySQL) Enabled() bool { return m.Host != "" }

// Playback holds the tunables of end-of-track detection and auto-advance.
type Playback struct {
	TrackEndWindow  time.Duration
	AdvanceDebounce time.Duration
	PollInterval    time.Duration
	AdvanceRetries  int
	AdvanceBackoff  time.Duration
}

// DefaultPlayback returns the values used when nothing is configured.
func DefaultPlayback() Playback {
	return Playback{
		TrackEndWindow:  3 * time.Second,
		AdvanceDebounce: 2 * time.Second,
		PollInterval:    time.Second,
		AdvanceRetries:  3,
		AdvanceBackoff:  250 * time.Millisecond,
	}
}

// Load reads an optional .env file and then the environment.
func Load(files ...string) (Config, bool, error) {
	envLoaded := godotenv.Load(files...) == nil
	cfg, err := FromEnv()
	return cfg, envLoaded, err
}

func FromEnv() (Config, error) {
	def := DefaultPlayback()

	cfg := Config{
		Env:            getenv("ENV", "development"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		BackendURL:     strings.TrimRight(getenv("BACKEND_URL", ""), "/"),
		RealtimeURL:    getenv("REALTIME_URL", ""),
		SpotifyAPIURL:  strings.TrimRight(getenv("SPOTIFY_API_URL", "https://api.spotify.com/v1"), "/"),
		DeviceID:       getenv("SPOTIFY_DEVICE_ID", ""),
		SessionID:      getenv("SESSION_ID", "default"),
		SessionToken:   getenv("SESSION_TOKEN", ""),
		SessionSecret:  []byte(getenv("SESSION_SECRET", "")),
		ViewPort:       getenv("VIEW_PORT", "8090"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "http://localhost:5173")),
		Redis: Redis{
			Host:     getenv("REDIS_HOST", ""),
			Port:     getenv("REDIS_PORT", "6379"),
			Password: getenv("REDIS_PASSWORD", ""),
		},
		Kafka: Kafka{
			Brokers: splitList(getenv("KAFKA_BROKERS", "")),
			Topic:   getenv("KAFKA_TOPIC", "party-client-activity"),
		},
		MySQL: MySQL{
			Host:     getenv("MYSQL_HOST", ""),
			Port:     getenv("MYSQL_PORT", "3306"),
			User:     getenv("MYSQL_USER", ""),
			Password: getenv("MYSQL_PASSWORD", ""),
			Database: getenv("MYSQL_DATABASE", ""),
		},
	}

	var err error
	if cfg.RequestTimeout, err = getenvDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Playback.TrackEndWindow, err = getenvDuration("TRACK_END_WINDOW", def.TrackEndWindow); err != nil {
		return Config{}, err
	}
	if cfg.Playback.AdvanceDebounce, err = getenvDuration("ADVANCE_DEBOUNCE", def.AdvanceDebounce); err != nil {
		return Config{}, err
	}
	if cfg.Playback.PollInterval, err = getenvDuration("POLL_INTERVAL", def.PollInterval); err != nil {
		return Config{}, err
	}
	if cfg.Playback.AdvanceBackoff, err = getenvDuration("ADVANCE_BACKOFF", def.AdvanceBackoff); err != nil {
		return Config{}, err
	}
	if cfg.Playback.AdvanceRetries, err = getenvInt("ADVANCE_RETRIES", def.AdvanceRetries); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("config: BACKEND_URL is empty")
	}
	if c.Playback.AdvanceRetries < 1 {
		return errors.New("config: ADVANCE_RETRIES must be at least 1")
	}
	for name, d := range map[string]time.Duration{
		"REQUEST_TIMEOUT":  c.RequestTimeout,
		"TRACK_END_WINDOW": c.Playback.TrackEndWindow,
		"ADVANCE_DEBOUNCE": c.Playback.AdvanceDebounce,
		"POLL_INTERVAL":    c.Playback.PollInterval,
		"ADVANCE_BACKOFF":  c.Playback.AdvanceBackoff,
	} {
		if d <= 0 {
			return fmt.Errorf("config: %s must be positive", name)
		}
	}
	return nil
}

// MySQLDSN builds the gorm mysql DSN.
func (c Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.MySQL.User, c.MySQL.Password, c.MySQL.Host, c.MySQL.Port, c.MySQL.Database)
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	raw := getenv(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

// getenvDuration accepts Go durations ("2s") or plain milliseconds ("2000").
func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	raw := getenv(key, "")
	if raw == "" {
		return def, nil
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
