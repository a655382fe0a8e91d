package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the swimguard agent process.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Swim      SwimConfig      `json:"swim"`
	Gossip    GossipConfig    `json:"gossip"`
	Lifeguard LifeguardConfig `json:"lifeguard"`
	Transport TransportConfig `json:"transport"`
	Redis     RedisConfig     `json:"redis"`
	NATS      NATSConfig      `json:"nats"`
	JWT       JWTConfig       `json:"jwt"`
	Logging   LoggingConfig   `json:"logging"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// ServerConfig holds the admin/status HTTP server configuration.
type ServerConfig struct {
	Port         int           `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// SwimConfig configures the core protocol engine (spec §6).
type SwimConfig struct {
	BindAddr           string        `json:"bind_addr"`
	ProbeInterval      time.Duration `json:"probe_interval"`
	PingTimeout        time.Duration `json:"ping_timeout"`
	IndirectProbeCount int           `json:"indirect_probe_count"`
}

// GossipConfig configures the gossip decay buffer (spec §6).
type GossipConfig struct {
	MaxNumberOfMessages      int `json:"max_number_of_messages"`
	MaxGossipCountPerMessage int `json:"max_gossip_count_per_message"`
}

// LifeguardConfig configures the Local Health Multiplier and suspicion
// timeout calculator (spec §6).
type LifeguardConfig struct {
	MaxLocalHealthMultiplier int           `json:"max_local_health_multiplier"`
	MaxIndependentSuspicions int           `json:"max_independent_suspicions"`
	SuspicionTimeoutMin      time.Duration `json:"suspicion_timeout_min"`
	SuspicionTimeoutMax      time.Duration `json:"suspicion_timeout_max"`
	DisableUnreachablePhase  bool          `json:"disable_unreachable_phase"`
}

// TransportKind selects which Peer transport implementation the agent
// shell wires up.
type TransportKind string

const (
	TransportMemory    TransportKind = "memory"
	TransportWebSocket TransportKind = "websocket"
	TransportRedis     TransportKind = "redis"
	TransportNATS      TransportKind = "nats"
)

// TransportConfig selects the shell's wire transport. The engine itself is
// transport-agnostic (spec §1); this only matters to internal/agent and
// internal/transport.
type TransportConfig struct {
	Kind     TransportKind `json:"kind"`
	Endpoint string        `json:"endpoint"` // websocket listen host:port (defaults to Swim.BindAddr); unused for redis/nats, see RedisConfig/NATSConfig
}

// RedisConfig configures the redis pub/sub Peer transport.
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Channel  string `json:"channel"`
}

// NATSConfig configures the NATS Peer transport.
type NATSConfig struct {
	URL     string `json:"url"`
	Subject string `json:"subject"`
}

// JWTConfig contains JWT configuration for the admin API's bearer auth.
type JWTConfig struct {
	Secret         string        `json:"secret"`
	ExpirationTime time.Duration `json:"expiration_time"`
	Issuer         string        `json:"issuer"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `json:"level"`
}

// RateLimitConfig contains rate limiting configuration for the admin API.
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute"`
	Burst             int `json:"burst"`
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SWIMGUARD_ADMIN_PORT", 8080),
			Host:         getEnv("SWIMGUARD_ADMIN_HOST", "0.0.0.0"),
			ReadTimeout:  time.Duration(getEnvInt("SWIMGUARD_ADMIN_READ_TIMEOUT_S", 10)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SWIMGUARD_ADMIN_WRITE_TIMEOUT_S", 10)) * time.Second,
			IdleTimeout:  time.Duration(getEnvInt("SWIMGUARD_ADMIN_IDLE_TIMEOUT_S", 60)) * time.Second,
		},
		Swim: SwimConfig{
			BindAddr:           getEnv("SWIMGUARD_BIND_ADDR", "127.0.0.1:7946"),
			ProbeInterval:      time.Duration(getEnvInt("SWIMGUARD_PROBE_INTERVAL_MS", 1000)) * time.Millisecond,
			PingTimeout:        time.Duration(getEnvInt("SWIMGUARD_PING_TIMEOUT_MS", 500)) * time.Millisecond,
			IndirectProbeCount: getEnvInt("SWIMGUARD_INDIRECT_PROBE_COUNT", 3),
		},
		Gossip: GossipConfig{
			MaxNumberOfMessages:      getEnvInt("SWIMGUARD_GOSSIP_MAX_MESSAGES", 6),
			MaxGossipCountPerMessage: getEnvInt("SWIMGUARD_GOSSIP_MAX_COUNT", 3),
		},
		Lifeguard: LifeguardConfig{
			MaxLocalHealthMultiplier: getEnvInt("SWIMGUARD_MAX_LHM", 8),
			MaxIndependentSuspicions: getEnvInt("SWIMGUARD_MAX_INDEPENDENT_SUSPICIONS", 3),
			SuspicionTimeoutMin:      time.Duration(getEnvInt("SWIMGUARD_SUSPICION_TIMEOUT_MIN_MS", 1000)) * time.Millisecond,
			SuspicionTimeoutMax:      time.Duration(getEnvInt("SWIMGUARD_SUSPICION_TIMEOUT_MAX_MS", 5000)) * time.Millisecond,
			DisableUnreachablePhase:  getEnvBool("SWIMGUARD_DISABLE_UNREACHABLE_PHASE", false),
		},
		Transport: TransportConfig{
			Kind:     TransportKind(getEnv("SWIMGUARD_TRANSPORT", string(TransportMemory))),
			Endpoint: getEnv("SWIMGUARD_TRANSPORT_ENDPOINT", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("SWIMGUARD_REDIS_HOST", "localhost"),
			Port:     getEnvInt("SWIMGUARD_REDIS_PORT", 6379),
			Password: getEnv("SWIMGUARD_REDIS_PASSWORD", ""),
			DB:       getEnvInt("SWIMGUARD_REDIS_DB", 0),
			Channel:  getEnv("SWIMGUARD_REDIS_CHANNEL", "swimguard:gossip"),
		},
		NATS: NATSConfig{
			URL:     getEnv("SWIMGUARD_NATS_URL", "nats://localhost:4222"),
			Subject: getEnv("SWIMGUARD_NATS_SUBJECT", "swimguard.gossip"),
		},
		JWT: JWTConfig{
			Secret:         getEnv("SWIMGUARD_JWT_SECRET", "dev-secret-change-me"),
			ExpirationTime: time.Duration(getEnvInt("SWIMGUARD_JWT_EXPIRATION_HOURS", 24)) * time.Hour,
			Issuer:         getEnv("SWIMGUARD_JWT_ISSUER", "swimguard"),
		},
		Logging: LoggingConfig{
			Level: getEnv("SWIMGUARD_LOG_LEVEL", "info"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvInt("SWIMGUARD_RATE_LIMIT_RPM", 600),
			Burst:             getEnvInt("SWIMGUARD_RATE_LIMIT_BURST", 50),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
