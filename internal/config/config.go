// Package config loads dupesweep's settings from defaults, an optional YAML
// file, a .env file and the environment, in that order of precedence
// (environment wins).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/dupesweep/internal/deduplication"
	"github.com/steveyegge/dupesweep/internal/quiq"
	"github.com/steveyegge/dupesweep/internal/transport"
	"github.com/steveyegge/dupesweep/internal/types"
	"github.com/steveyegge/dupesweep/internal/zendesk"
)

// DefaultSchedule is used by the watch command when none is configured
const DefaultSchedule = "@every 15m"

// Config holds everything a run needs
type Config struct {
	Zendesk zendesk.Config `yaml:"zendesk"`
	Quiq    quiq.Config    `yaml:"quiq"`

	// DryRun reports planned actions without sending any mutation
	// Default: true
	DryRun bool `yaml:"dry_run"`

	// RequestsPerSecond caps the request rate toward each API (0 = unlimited)
	// Default: 10, Range: 0-100
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// MaxRetries is the number of retries for retryable requests
	// Default: 3, Range: 0-10
	MaxRetries int `yaml:"max_retries"`

	// TimeoutSecs bounds each HTTP attempt
	// Default: 30, Range: 1-300
	TimeoutSecs int `yaml:"timeout_secs"`

	// Schedule is the cron spec used by the watch command
	// Default: "@every 15m"
	Schedule string `yaml:"schedule"`

	// Policy holds the tag names, target queue and lookup switches
	Policy deduplication.Config `yaml:"policy"`
}

// DefaultConfig returns the default configuration. Credentials have no
// default and must come from the file or the environment.
func DefaultConfig() Config {
	tcfg := transport.DefaultConfig()
	return Config{
		DryRun:            true,
		RequestsPerSecond: tcfg.RequestsPerSecond,
		MaxRetries:        tcfg.MaxRetries,
		TimeoutSecs:       int(tcfg.Timeout / time.Second),
		Schedule:          DefaultSchedule,
		Policy:            deduplication.DefaultConfig(),
	}
}

// Load builds a Config. path names an optional YAML file and dotenv an
// optional .env file; either may be empty. A missing .env file is not an
// error, a missing YAML file is.
func Load(path, dotenv string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	if dotenv != "" {
		// godotenv never overrides variables already set in the process
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("loading %s: %w", dotenv, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields that have an environment variable set
//
// Environment variables:
//   - DUPESWEEP_ZENDESK_DOMAIN, DUPESWEEP_ZENDESK_EMAIL, DUPESWEEP_ZENDESK_TOKEN
//   - DUPESWEEP_QUIQ_DOMAIN, QUIQ_API_KEY_IDENTITY, QUIQ_API_KEY_SECRET
//   - DUPESWEEP_DRY_RUN: Report only, no mutations (default: true)
//   - DUPESWEEP_REQUESTS_PER_SECOND: Per-API request rate (default: 10)
//   - DUPESWEEP_MAX_RETRIES: Retries for retryable requests (default: 3)
//   - DUPESWEEP_TIMEOUT_SECS: Per-attempt HTTP timeout (default: 30)
//   - DUPESWEEP_SCHEDULE: Cron spec for watch (default: @every 15m)
//   - DUPESWEEP_PRIMARY_TAG, DUPESWEEP_DUPLICATE_TAG, DUPESWEEP_TARGET_QUEUE,
//     DUPESWEEP_LOOKUP_CONVERSATIONS, DUPESWEEP_TRACK_ACTIVITY (see deduplication.Config.ApplyEnv)
func (c *Config) ApplyEnv() error {
	parseEnvString("DUPESWEEP_ZENDESK_DOMAIN", &c.Zendesk.Domain)
	parseEnvString("DUPESWEEP_ZENDESK_EMAIL", &c.Zendesk.Email)
	parseEnvString("DUPESWEEP_ZENDESK_TOKEN", &c.Zendesk.Token)
	parseEnvString("DUPESWEEP_QUIQ_DOMAIN", &c.Quiq.Domain)
	parseEnvString("QUIQ_API_KEY_IDENTITY", &c.Quiq.Identity)
	parseEnvString("QUIQ_API_KEY_SECRET", &c.Quiq.Secret)
	parseEnvString("DUPESWEEP_SCHEDULE", &c.Schedule)

	if err := parseEnvBool("DUPESWEEP_DRY_RUN", &c.DryRun); err != nil {
		return err
	}
	if err := parseEnvFloat("DUPESWEEP_REQUESTS_PER_SECOND", &c.RequestsPerSecond); err != nil {
		return err
	}
	if err := parseEnvInt("DUPESWEEP_MAX_RETRIES", &c.MaxRetries); err != nil {
		return err
	}
	if err := parseEnvInt("DUPESWEEP_TIMEOUT_SECS", &c.TimeoutSecs); err != nil {
		return err
	}
	return c.Policy.ApplyEnv()
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.RequestsPerSecond < 0 || c.RequestsPerSecond > 100 {
		return fmt.Errorf("requests_per_second must be between 0 and 100 (got %g)", c.RequestsPerSecond)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max_retries must be between 0 and 10 (got %d)", c.MaxRetries)
	}
	if c.TimeoutSecs < 1 || c.TimeoutSecs > 300 {
		return fmt.Errorf("timeout_secs must be between 1 and 300 (got %d)", c.TimeoutSecs)
	}
	if strings.TrimSpace(c.Schedule) == "" {
		return fmt.Errorf("schedule cannot be empty")
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	return nil
}

// ValidateCredentials checks the API settings a run needs. The messaging
// platform is only required when the policy looks up conversations, since
// no queue transfer is ever planned otherwise.
func (c Config) ValidateCredentials() error {
	if err := c.Zendesk.Validate(); err != nil {
		return err
	}
	if c.Policy.LookupConversations {
		return c.Quiq.Validate()
	}
	return nil
}

// Mode returns the run mode implied by DryRun
func (c Config) Mode() types.RunMode {
	return types.ModeFor(c.DryRun)
}

// TransportConfig derives the HTTP client settings
func (c Config) TransportConfig() transport.Config {
	tcfg := transport.DefaultConfig()
	tcfg.RequestsPerSecond = c.RequestsPerSecond
	tcfg.MaxRetries = c.MaxRetries
	tcfg.Timeout = time.Duration(c.TimeoutSecs) * time.Second
	return tcfg
}

// String returns a human-readable representation of the config with
// secrets masked
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Zendesk: %s (%s, token %s), Quiq: %s (identity %s, secret %s), "+
			"Mode: %s, RPS: %g, MaxRetries: %d, Timeout: %ds, Schedule: %q, Policy: %s}",
		c.Zendesk.Domain, c.Zendesk.Email, mask(c.Zendesk.Token),
		c.Quiq.Domain, mask(c.Quiq.Identity), mask(c.Quiq.Secret),
		c.Mode(), c.RequestsPerSecond, c.MaxRetries, c.TimeoutSecs, c.Schedule, c.Policy,
	)
}

func mask(s string) string {
	if s == "" {
		return "<unset>"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvFloat parses a float from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvString(key string, dest *string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dest = value
	}
}

// ExampleConfigFile returns an example configuration file content.
func ExampleConfigFile() string {
	return `# dupesweep configuration
# Secrets are better kept in the environment or a .env file:
#   DUPESWEEP_ZENDESK_TOKEN, QUIQ_API_KEY_IDENTITY, QUIQ_API_KEY_SECRET

zendesk:
  domain: acme.zendesk.com
  email: agent@acme.com

quiq:
  domain: acme.goquiq.com

# Report only; set to false (or pass --live) to apply changes
dry_run: true

requests_per_second: 10
max_retries: 3
timeout_secs: 30

# Cron spec for "dupesweep watch"
schedule: "@every 15m"

policy:
  primary_tag: primary_ticket
  duplicate_tag: duplicate_ticket
  target_queue: duplicates
  lookup_conversations: true
  track_activity: false
`
}
