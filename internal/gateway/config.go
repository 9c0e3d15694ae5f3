package gateway

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kindergrid/kindergrid/pkg/jwtx"
)

// Route maps a path prefix to an upstream service.
type Route struct {
	// Name is the first path segment, e.g. "lessons" for /lessons/...
	// It doubles as the audience claim on the minted service identity.
	Name string

	// Upstream is the base URL of the internal service.
	Upstream *url.URL
}

type Config struct {
	SigningSecret  string // Required: secret for verifying caller tokens (shared with the auth service). Never logged.
	IdentitySecret string // Required: separate secret for minting service identities. Never logged.
	Issuer         string // Expected issuer on caller tokens (default: kindergrid-auth)

	IdentityTTL     time.Duration // Service identity lifetime (default: 10s)
	UpstreamTimeout time.Duration // Hard deadline per proxied request (default: 5s)

	ClockSkewLeeway    time.Duration // exp/nbf leeway during verification (default: 5s)
	RevocationCacheTTL time.Duration // Max "not revoked" cache age (default: 2s, clamped)

	RateLimitPerMinute int // Requests per minute per caller (default: 100)

	DatabaseFile string // Path to the shared SQLite database file holding the revocation set

	Routes []Route // Parsed from GATEWAY_ROUTES

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (default: info)
	LogFormat           string        // Log format (default: json)
	Port                int           // HTTP server port (default: 8081)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() (Config, error) {
	cfg := Config{
		SigningSecret:  os.Getenv("GATEWAY_SIGNING_SECRET"),
		IdentitySecret: os.Getenv("GATEWAY_IDENTITY_SECRET"),
		Issuer:         getEnvOrDefault("GATEWAY_ISSUER", "kindergrid-auth"),

		IdentityTTL:     getEnvDurationOrDefault("GATEWAY_IDENTITY_TTL", 10*time.Second),
		UpstreamTimeout: getEnvDurationOrDefault("GATEWAY_UPSTREAM_TIMEOUT", 5*time.Second),

		ClockSkewLeeway:    getEnvDurationOrDefault("GATEWAY_CLOCK_SKEW", jwtx.DefaultLeeway),
		RevocationCacheTTL: getEnvDurationOrDefault("GATEWAY_REVOCATION_CACHE_TTL", 2*time.Second),

		RateLimitPerMinute: getEnvIntOrDefault("GATEWAY_RATE_LIMIT_PER_MINUTE", 100),

		DatabaseFile: getEnvOrDefault("GATEWAY_DATABASE_FILE", "auth.db"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8081),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if len(cfg.SigningSecret) < jwtx.MinSecretLen {
		return Config{}, fmt.Errorf("GATEWAY_SIGNING_SECRET must be set and at least %d bytes", jwtx.MinSecretLen)
	}
	if len(cfg.IdentitySecret) < jwtx.MinSecretLen {
		return Config{}, fmt.Errorf("GATEWAY_IDENTITY_SECRET must be set and at least %d bytes", jwtx.MinSecretLen)
	}
	if cfg.IdentitySecret == cfg.SigningSecret {
		return Config{}, fmt.Errorf("GATEWAY_IDENTITY_SECRET must differ from GATEWAY_SIGNING_SECRET")
	}

	routes, err := ParseRoutes(os.Getenv("GATEWAY_ROUTES"))
	if err != nil {
		return Config{}, err
	}
	cfg.Routes = routes

	return cfg, nil
}

// ParseRoutes parses the GATEWAY_ROUTES value: comma-separated
// name=upstream pairs, e.g.
// "lessons=http://lessons:8080,progress=http://progress:8080".
func ParseRoutes(raw string) ([]Route, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var routes []Route
	seen := make(map[string]struct{})

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		name, upstream, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		upstream = strings.TrimSpace(upstream)
		if !ok || name == "" || upstream == "" {
			return nil, fmt.Errorf("invalid route %q: want name=upstream", pair)
		}
		if strings.Contains(name, "/") {
			return nil, fmt.Errorf("invalid route name %q: must be a single path segment", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate route name %q", name)
		}

		u, err := url.Parse(upstream)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid upstream URL %q for route %q", upstream, name)
		}

		seen[name] = struct{}{}
		routes = append(routes, Route{Name: name, Upstream: u})
	}

	return routes, nil
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
