package deduplication

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/steveyegge/dupesweep/internal/labels"
)

// Config holds the resolution policy
type Config struct {
	// PrimaryTag is added to the newest ticket of each duplicate group
	// Default: "primary_ticket"
	PrimaryTag string `yaml:"primary_tag"`

	// DuplicateTag is added to every older ticket before it is solved
	// Default: "duplicate_ticket"
	DuplicateTag string `yaml:"duplicate_tag"`

	// TargetQueue receives the still-open conversations of duplicate tickets
	// Default: "duplicates"
	TargetQueue string `yaml:"target_queue"`

	// LookupConversations controls whether duplicates' conversations are
	// fetched at all. When false no queue transfers are planned.
	// Default: true
	LookupConversations bool `yaml:"lookup_conversations"`

	// TrackActivity fetches each group member's last public comment time
	// for the report. It costs one extra request per ticket and never
	// affects the decision.
	// Default: false
	TrackActivity bool `yaml:"track_activity"`
}

// DefaultConfig returns the default resolution policy
func DefaultConfig() Config {
	return Config{
		PrimaryTag:          labels.TagPrimary,
		DuplicateTag:        labels.TagDuplicate,
		TargetQueue:         labels.QueueDuplicates,
		LookupConversations: true,
		TrackActivity:       false,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if err := labels.ValidateTag(c.PrimaryTag); err != nil {
		return fmt.Errorf("primary_tag: %w", err)
	}
	if err := labels.ValidateTag(c.DuplicateTag); err != nil {
		return fmt.Errorf("duplicate_tag: %w", err)
	}
	if c.PrimaryTag == c.DuplicateTag {
		return fmt.Errorf("primary_tag and duplicate_tag must differ (both %q)", c.PrimaryTag)
	}
	if strings.TrimSpace(c.TargetQueue) == "" {
		return fmt.Errorf("target_queue is required")
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf("Config{PrimaryTag: %s, DuplicateTag: %s, TargetQueue: %s, LookupConversations: %t, TrackActivity: %t}",
		c.PrimaryTag, c.DuplicateTag, c.TargetQueue, c.LookupConversations, c.TrackActivity)
}

// ApplyEnv overrides fields that have an environment variable set
//
// Environment variables:
//   - DUPESWEEP_PRIMARY_TAG: Tag for the surviving ticket (default: primary_ticket)
//   - DUPESWEEP_DUPLICATE_TAG: Tag for solved duplicates (default: duplicate_ticket)
//   - DUPESWEEP_TARGET_QUEUE: Queue for open duplicate conversations (default: duplicates)
//   - DUPESWEEP_LOOKUP_CONVERSATIONS: Look up duplicates' conversations (default: true)
//   - DUPESWEEP_TRACK_ACTIVITY: Report last public comment times (default: false)
//
// Returns an error if any environment variable has an invalid value. The
// result is not validated; callers validate the assembled config.
func (c *Config) ApplyEnv() error {
	parseEnvString("DUPESWEEP_PRIMARY_TAG", &c.PrimaryTag)
	parseEnvString("DUPESWEEP_DUPLICATE_TAG", &c.DuplicateTag)
	parseEnvString("DUPESWEEP_TARGET_QUEUE", &c.TargetQueue)
	if err := parseEnvBool("DUPESWEEP_LOOKUP_CONVERSATIONS", &c.LookupConversations); err != nil {
		return err
	}
	if err := parseEnvBool("DUPESWEEP_TRACK_ACTIVITY", &c.TrackActivity); err != nil {
		return err
	}
	return nil
}

// parseEnvString copies a non-empty environment variable into dest
func parseEnvString(key string, dest *string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dest = value
	}
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
