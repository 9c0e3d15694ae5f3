package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kindergrid/kindergrid/internal/auth/domain"
	"github.com/kindergrid/kindergrid/pkg/jwtx"
)

type Config struct {
	Issuer        string // Issuer claim stamped on every token (default: kindergrid-auth)
	SigningSecret string // Required: HS256 signing secret, min 32 bytes. Never logged.

	GuardianTTL        time.Duration           // Guardian token lifetime (default: 24h)
	ClockSkewLeeway    time.Duration           // exp/nbf leeway during verification (default: 5s)
	RevocationCacheTTL time.Duration           // Max "not revoked" cache age (default: 2s, clamped)
	SessionCeilings    map[domain.AgeBand]int  // Per-age-band session ceilings in minutes

	DatabaseFile         string        // Path to the shared SQLite database file (default: ./auth.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Prune interval (default: 15m)
}

func LoadConfig() (Config, error) {
	cfg := Config{
		Issuer:        getEnvOrDefault("AUTH_ISSUER", "kindergrid-auth"),
		SigningSecret: os.Getenv("AUTH_SIGNING_SECRET"),

		GuardianTTL:        getEnvDurationOrDefault("AUTH_GUARDIAN_TTL", jwtx.DefaultGuardianTTL),
		ClockSkewLeeway:    getEnvDurationOrDefault("AUTH_CLOCK_SKEW", jwtx.DefaultLeeway),
		RevocationCacheTTL: getEnvDurationOrDefault("AUTH_REVOCATION_CACHE_TTL", 2*time.Second),
		SessionCeilings:    loadSessionCeilings(),

		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 15*time.Minute),
	}

	if len(cfg.SigningSecret) < jwtx.MinSecretLen {
		return Config{}, fmt.Errorf("AUTH_SIGNING_SECRET must be set and at least %d bytes", jwtx.MinSecretLen)
	}

	return cfg, nil
}

// loadSessionCeilings starts from the defaults and applies any per-band env
// overrides, e.g. AUTH_SESSION_CEILING_5_8=25.
func loadSessionCeilings() map[domain.AgeBand]int {
	ceilings := make(map[domain.AgeBand]int, len(domain.DefaultSessionCeilings))
	for band, minutes := range domain.DefaultSessionCeilings {
		ceilings[band] = minutes
	}

	overrides := map[string]domain.AgeBand{
		"AUTH_SESSION_CEILING_3_4":   domain.AgeBand3to4,
		"AUTH_SESSION_CEILING_5_8":   domain.AgeBand5to8,
		"AUTH_SESSION_CEILING_9_12":  domain.AgeBand9to12,
		"AUTH_SESSION_CEILING_13_17": domain.AgeBand13to17,
	}
	for key, band := range overrides {
		if v := os.Getenv(key); v != "" {
			if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
				ceilings[band] = minutes
			}
		}
	}

	return ceilings
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
