package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Black-And-White-Club/club-ladder/app/observability"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	JWT           JWTConfig           `yaml:"jwt"`
	Match         MatchConfig         `yaml:"match"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL keeps the activity feed
// in-process.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the API listener configuration.
type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// JWTConfig holds bearer token configuration.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Issuer     string        `yaml:"issuer"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// MatchConfig tunes the open-match workflow.
type MatchConfig struct {
	AutoVerifyAfter         time.Duration `yaml:"auto_verify_after"`
	AutoVerifySweepInterval time.Duration `yaml:"auto_verify_sweep_interval"`
	DefaultSkillLevel       float64       `yaml:"default_skill_level"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
}

const (
	defaultHTTPAddr                = ":8080"
	defaultJWTIssuer               = "club-ladder"
	defaultJWTTTL                  = 24 * time.Hour
	defaultAutoVerifyAfter         = 24 * time.Hour
	defaultAutoVerifySweepInterval = 15 * time.Minute
	defaultSkillLevel              = 2.5
)

// LoadConfig loads the configuration from a YAML file, then applies
// environment overrides. A missing file falls back to the environment alone.
func LoadConfig(filename string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env only
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// --- OVERRIDE WITH ENV VARS IF PRESENT ---
func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("JWT_DEFAULT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JWT_DEFAULT_TTL value: %v", err)
		}
		cfg.JWT.DefaultTTL = d
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("AUTO_VERIFY_AFTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid AUTO_VERIFY_AFTER value: %v", err)
		}
		cfg.Match.AutoVerifyAfter = d
	}
	if v := os.Getenv("AUTO_VERIFY_SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid AUTO_VERIFY_SWEEP_INTERVAL value: %v", err)
		}
		cfg.Match.AutoVerifySweepInterval = d
	}
	if v := os.Getenv("DEFAULT_SKILL_LEVEL"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid DEFAULT_SKILL_LEVEL value: %v", err)
		}
		cfg.Match.DefaultSkillLevel = f
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = defaultHTTPAddr
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = defaultJWTIssuer
	}
	if c.JWT.DefaultTTL == 0 {
		c.JWT.DefaultTTL = defaultJWTTTL
	}
	if c.Match.AutoVerifyAfter == 0 {
		c.Match.AutoVerifyAfter = defaultAutoVerifyAfter
	}
	if c.Match.AutoVerifySweepInterval == 0 {
		c.Match.AutoVerifySweepInterval = defaultAutoVerifySweepInterval
	}
	if c.Match.DefaultSkillLevel == 0 {
		c.Match.DefaultSkillLevel = defaultSkillLevel
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = "development"
	}
}

// Validate reports every missing or out-of-range setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres.dsn (DATABASE_URL) is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret (JWT_SECRET) is required"))
	} else if len(c.JWT.Secret) < 32 && c.Observability.Environment != "development" {
		errs = append(errs, errors.New("jwt.secret must be at least 32 characters outside development"))
	}
	if c.Match.AutoVerifyAfter < 0 {
		errs = append(errs, errors.New("match.auto_verify_after must be positive"))
	}
	if c.Match.AutoVerifySweepInterval < 0 {
		errs = append(errs, errors.New("match.auto_verify_sweep_interval must be positive"))
	}
	if c.Match.DefaultSkillLevel < 1 || c.Match.DefaultSkillLevel > 7 {
		errs = append(errs, fmt.Errorf("match.default_skill_level %.1f outside 1.0-7.0", c.Match.DefaultSkillLevel))
	}
	return errors.Join(errs...)
}

// ToObsConfig maps the observability section onto the logger/metrics setup.
func ToObsConfig(appCfg *Config) observability.Config {
	return observability.Config{
		Environment: appCfg.Observability.Environment,
		LogLevel:    appCfg.Observability.LogLevel,
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
