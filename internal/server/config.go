// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the Parley relay.
package server

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// HistoryConfig controls durable history behavior: how many messages each
// log retains, and how many are replayed when a client enters a room.
type HistoryConfig struct {
	Retention   int
	LoginReplay int
}

// StoreConfig selects the durable store backend.
type StoreConfig struct {
	Backend    string // "memory", "sqlite", or "redis"
	SQLitePath string
	RedisAddr  string
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig
	History        HistoryConfig
	DefaultRoom    string
	Store          StoreConfig
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 4096,
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
		},
		History: HistoryConfig{
			Retention:   2000,
			LoginReplay: 200,
		},
		DefaultRoom: "lobby",
		Store: StoreConfig{
			Backend:    "memory",
			SQLitePath: "parley.db",
			RedisAddr:  "localhost:6379",
		},
	}
}

func sanitizeConfig(cfg Config) Config {
	def := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if cfg.History.Retention <= 0 {
		cfg.History.Retention = def.History.Retention
	}
	if cfg.History.LoginReplay <= 0 {
		cfg.History.LoginReplay = def.History.LoginReplay
	}
	if strings.TrimSpace(cfg.DefaultRoom) == "" {
		cfg.DefaultRoom = def.DefaultRoom
	}
	switch cfg.Store.Backend {
	case "memory", "sqlite", "redis":
	default:
		cfg.Store.Backend = def.Store.Backend
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = def.Store.SQLitePath
	}
	if cfg.Store.RedisAddr == "" {
		cfg.Store.RedisAddr = def.Store.RedisAddr
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		defaultCfg := defaultConfig()
		sanitizeConfig(defaultCfg)
		return
	}

	sanitized := *cfg
	sanitized.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// LoadConfig builds a Config from environment variables via viper, falling
// back to defaults for anything unset.
func LoadConfig() *Config {
	def := defaultConfig()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("server_port", def.Port)
	v.SetDefault("allowed_origins", strings.Join(def.AllowedOrigins, ","))
	v.SetDefault("max_message_size", def.MaxMessageSize)
	v.SetDefault("rate_limit_burst", def.RateLimit.Burst)
	v.SetDefault("rate_limit_refill_seconds", int(def.RateLimit.RefillInterval.Seconds()))
	v.SetDefault("history_retention", def.History.Retention)
	v.SetDefault("history_login_replay", def.History.LoginReplay)
	v.SetDefault("default_room", def.DefaultRoom)
	v.SetDefault("store_backend", def.Store.Backend)
	v.SetDefault("sqlite_path", def.Store.SQLitePath)
	v.SetDefault("redis_addr", def.Store.RedisAddr)

	cfg := Config{
		Port:           v.GetString("server_port"),
		AllowedOrigins: parseOrigins(v.GetString("allowed_origins")),
		MaxMessageSize: v.GetInt64("max_message_size"),
		RateLimit: RateLimitConfig{
			Burst:          v.GetInt("rate_limit_burst"),
			RefillInterval: time.Duration(v.GetInt("rate_limit_refill_seconds")) * time.Second,
		},
		History: HistoryConfig{
			Retention:   v.GetInt("history_retention"),
			LoginReplay: v.GetInt("history_login_replay"),
		},
		DefaultRoom: v.GetString("default_room"),
		Store: StoreConfig{
			Backend:    v.GetString("store_backend"),
			SQLitePath: v.GetString("sqlite_path"),
			RedisAddr:  v.GetString("redis_addr"),
		},
	}
	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
