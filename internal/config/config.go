package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration for the application, parsed from the
// environment.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	// MatcherWorkers bounds the per-event rule fan-out; ScanWorkers bounds
	// concurrent upserts within one scan run.
	MatcherWorkers int `env:"MATCHER_WORKERS" envDefault:"8"`
	ScanWorkers    int `env:"SCAN_WORKERS" envDefault:"4"`

	// EmitLimitPerWindow of 0 disables the per-organization throttle.
	EmitLimitPerWindow int           `env:"EMIT_LIMIT_PER_WINDOW" envDefault:"0"`
	EmitLimitWindow    time.Duration `env:"EMIT_LIMIT_WINDOW" envDefault:"1s"`

	RuleCacheTTL time.Duration `env:"RULE_CACHE_TTL" envDefault:"30s"`

	MembershipRenewalWindow time.Duration `env:"MEMBERSHIP_RENEWAL_WINDOW" envDefault:"720h"`
	GrantReportWindow       time.Duration `env:"GRANT_REPORT_WINDOW" envDefault:"336h"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
