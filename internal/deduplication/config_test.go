package deduplication

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.PrimaryTag != "primary_ticket" {
		t.Errorf("PrimaryTag = %q, want primary_ticket", cfg.PrimaryTag)
	}
	if cfg.DuplicateTag != "duplicate_ticket" {
		t.Errorf("DuplicateTag = %q, want duplicate_ticket", cfg.DuplicateTag)
	}
	if cfg.TargetQueue != "duplicates" {
		t.Errorf("TargetQueue = %q, want duplicates", cfg.TargetQueue)
	}
	if !cfg.LookupConversations {
		t.Error("LookupConversations should default to true")
	}
	if cfg.TrackActivity {
		t.Error("TrackActivity should default to false")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"empty primary tag", func(c *Config) { c.PrimaryTag = "" }, "primary_tag"},
		{"duplicate tag with space", func(c *Config) { c.DuplicateTag = "dup ticket" }, "duplicate_tag"},
		{"same tags", func(c *Config) { c.DuplicateTag = c.PrimaryTag }, "must differ"},
		{"blank queue", func(c *Config) { c.TargetQueue = "  " }, "target_queue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("DUPESWEEP_PRIMARY_TAG", "keep_me")
	t.Setenv("DUPESWEEP_TARGET_QUEUE", "dupes")
	t.Setenv("DUPESWEEP_LOOKUP_CONVERSATIONS", "false")
	t.Setenv("DUPESWEEP_TRACK_ACTIVITY", "1")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.PrimaryTag != "keep_me" {
		t.Errorf("PrimaryTag = %q", cfg.PrimaryTag)
	}
	if cfg.DuplicateTag != "duplicate_ticket" {
		t.Errorf("DuplicateTag = %q, want default", cfg.DuplicateTag)
	}
	if cfg.TargetQueue != "dupes" {
		t.Errorf("TargetQueue = %q", cfg.TargetQueue)
	}
	if cfg.LookupConversations {
		t.Error("LookupConversations should be false")
	}
	if !cfg.TrackActivity {
		t.Error("TrackActivity should be true")
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	t.Setenv("DUPESWEEP_LOOKUP_CONVERSATIONS", "maybe")
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err == nil {
		t.Error("expected error for invalid bool")
	}

	t.Setenv("DUPESWEEP_LOOKUP_CONVERSATIONS", "")
	t.Setenv("DUPESWEEP_DUPLICATE_TAG", "primary_ticket")
	cfg = DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for clashing tags")
	}
}

func TestConfigString(t *testing.T) {
	s := DefaultConfig().String()
	for _, want := range []string{"primary_ticket", "duplicate_ticket", "duplicates"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
