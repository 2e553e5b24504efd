package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	id "github.com/tawf-labs/amana-reserve/pkg/domain"
)

// Config captures process-level configuration so main stays lean.
type Config struct {
	Addr          string
	AdminToken    string
	AdminIdentity id.Identity
	JWTSigningKey string

	// PostgresURL switches all stores to PostgreSQL when set; empty keeps
	// the in-memory stores (local development and tests).
	PostgresURL string

	Redis RedisConfig

	// KafkaBrokers enables the cross-chain bridge publisher when non-empty.
	KafkaBrokers []string
	BridgeTopic  string

	Reserve    ReserveConfig
	Governance GovernanceConfig
	Hai        HaiConfig
}

// RedisConfig controls the optional score snapshot cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ReserveConfig seeds reserve initialization defaults.
type ReserveConfig struct {
	MinContribution uint64
	MaxParticipants uint64
}

// GovernanceConfig sets proposal voting windows and the reported quorum.
type GovernanceConfig struct {
	VotingDelay  time.Duration
	VotingPeriod time.Duration
	QuorumBps    uint16
}

// HaiConfig seeds the score engine on first start. The score is expressed in
// basis points, so 5000 starts a fresh deployment at 50%.
type HaiConfig struct {
	InitialScore uint64
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("AMANA_ADDR", ":8080"),
		AdminToken:    envOr("AMANA_ADMIN_TOKEN", ""),
		AdminIdentity: id.Identity(envOr("AMANA_ADMIN_IDENTITY", "admin")),
		JWTSigningKey: envOr("AMANA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresURL:   os.Getenv("AMANA_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("AMANA_REDIS_URL"),
			PoolSize:     envInt("AMANA_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("AMANA_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("AMANA_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("AMANA_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("AMANA_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		BridgeTopic: envOr("AMANA_BRIDGE_TOPIC", "amana.bridge.sync"),
		Reserve: ReserveConfig{
			MinContribution: envUint("AMANA_MIN_CONTRIBUTION", 500),
			MaxParticipants: envUint("AMANA_MAX_PARTICIPANTS", 1000),
		},
		Governance: GovernanceConfig{
			VotingDelay:  envDuration("AMANA_VOTING_DELAY", 24*time.Hour),
			VotingPeriod: envDuration("AMANA_VOTING_PERIOD", 72*time.Hour),
			QuorumBps:    uint16(envUint("AMANA_QUORUM_BPS", 2000)),
		},
		Hai: HaiConfig{
			InitialScore: envUint("AMANA_HAI_INITIAL_SCORE", 5000),
		},
	}
	if brokers := os.Getenv("AMANA_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
