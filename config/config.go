package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/spektr-org/sme/oracle"
	"github.com/spektr-org/sme/source"
)

// EnvPrefix prefixes every environment variable, e.g. SME_FEATURES.
const EnvPrefix = "SME"

// Config is the complete runtime configuration of the CLI and server.
type Config struct {
	Profile       string        `mapstructure:"profile" validate:"omitempty,oneof=ecommerce streamflix"`
	BaseURL       string        `mapstructure:"base_url"`
	Features      string        `mapstructure:"features" validate:"required"`
	Outcome       string        `mapstructure:"outcome" validate:"required"`
	OutcomeColumn string        `mapstructure:"outcome_column" validate:"required"`
	Budget        int64         `mapstructure:"budget" validate:"gt=0"`
	LogLevel      string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Addr          string        `mapstructure:"addr" validate:"required"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
}

// SetDefaults registers every key so environment variables are picked up by
// Unmarshal even when no flag names them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("profile", "")
	v.SetDefault("base_url", "")
	v.SetDefault("features", "")
	v.SetDefault("outcome", "")
	v.SetDefault("outcome_column", "")
	v.SetDefault("budget", oracle.DefaultBudget)
	v.SetDefault("log_level", "info")
	v.SetDefault("addr", ":8080")
	v.SetDefault("fetch_timeout", source.DefaultTimeout)
}

// New returns a viper instance reading SME_* variables on top of defaults.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// LoadEnvFile loads KEY=value pairs into the process environment. An empty
// path means ".env", which may be absent; an explicit path must exist.
// Variables already set in the environment win.
func LoadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads v into a Config, fills profile defaults, and validates.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.applyProfile(); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// applyProfile fills unset locations from a bundled profile. Explicit
// features/outcome settings always win.
func (c *Config) applyProfile() error {
	if c.Profile == "" {
		return nil
	}
	p, ok := source.Lookup(c.Profile)
	if !ok {
		return fmt.Errorf("unknown profile %q (known: %s)", c.Profile, strings.Join(source.Profiles(), ", "))
	}
	c.Profile = p.Name
	if c.BaseURL != "" {
		p = p.WithBase(c.BaseURL)
	}
	if c.Features == "" {
		c.Features = p.FeaturesLocation()
	}
	if c.Outcome == "" {
		c.Outcome = p.OutcomeLocation()
	}
	if c.OutcomeColumn == "" {
		c.OutcomeColumn = p.OutcomeColumn
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and reports every failing field by its
// configuration key.
func Validate(c *Config) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", keyFor(fe.StructField()), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func keyFor(field string) string {
	switch field {
	case "OutcomeColumn":
		return "outcome_column"
	case "LogLevel":
		return "log_level"
	case "FetchTimeout":
		return "fetch_timeout"
	case "BaseURL":
		return "base_url"
	default:
		return strings.ToLower(field)
	}
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
