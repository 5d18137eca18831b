package config

import (
	"os"
	"time"
)

// Server captures process-level configuration for the quota backend.
type Server struct {
	Addr string

	// Environment signals, read once at startup. The auth resolver receives
	// these as an immutable value; nothing re-reads the environment during
	// request handling.
	Environment      string
	DeploymentRegion string
	LocalDevOverride bool

	// Scheme A: service tokens signed with a shared key.
	ServiceTokenKey      string
	ServiceTokenIssuer   string
	ServiceTokenAudience string

	// Scheme B: federated identity tokens verified against the issuer's JWKS.
	FederatedIssuer string

	// Quota store backend: "memory", "postgres", or "redis".
	StoreBackend string
	DatabaseURL  string
	RedisAddr    string

	// Optional Kafka fan-out for security events.
	KafkaBrokers  string
	SecurityTopic string

	// Optional YAML override for the tier catalog.
	TierFile string

	StoreTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:                 getenv("QUOTAGUARD_ADDR", ":8080"),
		Environment:          os.Getenv("ENVIRONMENT"),
		DeploymentRegion:     os.Getenv("DEPLOYMENT_REGION"),
		LocalDevOverride:     os.Getenv("LOCAL_DEVELOPMENT") == "true",
		ServiceTokenKey:      os.Getenv("SERVICE_TOKEN_KEY"),
		ServiceTokenIssuer:   getenv("SERVICE_TOKEN_ISSUER", "quotaguard"),
		ServiceTokenAudience: getenv("SERVICE_TOKEN_AUDIENCE", "quotaguard-api"),
		FederatedIssuer:      os.Getenv("FEDERATED_ISSUER"),
		StoreBackend:         getenv("QUOTA_STORE", "memory"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		KafkaBrokers:         os.Getenv("KAFKA_BROKERS"),
		SecurityTopic:        getenv("SECURITY_EVENTS_TOPIC", "security-events"),
		TierFile:             os.Getenv("TIER_CATALOG_FILE"),
		StoreTimeout:         5 * time.Second,
	}

	if raw := os.Getenv("QUOTA_STORE_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.StoreTimeout = d
		}
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
