package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Server captures process-level configuration for the certis server.
type Server struct {
	Addr            string        `yaml:"addr"`
	JWTSigningKey   string        `yaml:"jwt_signing_key"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	ChallengeTTL    time.Duration `yaml:"challenge_ttl"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	AuthRateLimit   float64       `yaml:"auth_rate_limit"`
	AuthRateBurst   int           `yaml:"auth_rate_burst"`
	Environment     string        `yaml:"environment"`
}

// Defaults returns the baseline configuration before file and env overrides.
func Defaults() Server {
	return Server{
		Addr:            ":8080",
		SessionTTL:      24 * time.Hour,
		ChallengeTTL:    2 * time.Minute,
		UpstreamTimeout: 5 * time.Second,
		CleanupInterval: 5 * time.Minute,
		AuthRateLimit:   10,
		AuthRateBurst:   20,
		Environment:     "dev",
	}
}

// Load builds a Server config from defaults, an optional YAML file named by
// CERTIS_CONFIG, and environment variable overrides, in that order.
func Load() (Server, error) {
	cfg := Defaults()

	if path := os.Getenv("CERTIS_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.JWTSigningKey == "" {
		// Dev fallback - must be overridden in production.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg, nil
}

func applyEnv(cfg *Server) {
	if addr := os.Getenv("CERTIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if key := os.Getenv("CERTIS_JWT_SIGNING_KEY"); key != "" {
		cfg.JWTSigningKey = key
	}
	if env := os.Getenv("CERTIS_ENV"); env != "" {
		cfg.Environment = env
	}
	setDuration(&cfg.SessionTTL, "CERTIS_SESSION_TTL")
	setDuration(&cfg.ChallengeTTL, "CERTIS_CHALLENGE_TTL")
	setDuration(&cfg.UpstreamTimeout, "CERTIS_UPSTREAM_TIMEOUT")
	setDuration(&cfg.CleanupInterval, "CERTIS_CLEANUP_INTERVAL")
}

func setDuration(target *time.Duration, envVar string) {
	if raw := os.Getenv(envVar); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			*target = d
		}
	}
}
