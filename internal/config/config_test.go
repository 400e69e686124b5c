package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sayless.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.MaxStrikes != 30 {
		t.Errorf("MaxStrikes = %d, want 30", cfg.MaxStrikes)
	}
	if cfg.TokensEnabled() || cfg.RecordIPs() {
		t.Error("tokens and ip recording should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate on defaults: %v", err)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  create_rate_limit: 60
database:
  driver: mysql
  dsn: user:pass@tcp(localhost:3306)/sayless?parseTime=true
max_strikes: 10
ip_recording:
  retention_period: 3d
  retention_check_schedule: "0 4 * * *"
tokens:
  creation_requires_auth: true
logging:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Tokens.MasterToken = "test-master"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.MaxStrikes != 10 {
		t.Errorf("MaxStrikes = %d, want 10", cfg.MaxStrikes)
	}
	if !cfg.CreationRequiresAuth() {
		t.Error("CreationRequiresAuth should be true")
	}
	if cfg.IPRecording.Retention != 3*24*time.Hour {
		t.Errorf("Retention = %v, want 72h", cfg.IPRecording.Retention)
	}
	if cfg.IPRecording.RetentionCheckSchedule != "0 4 * * *" {
		t.Errorf("schedule = %q", cfg.IPRecording.RetentionCheckSchedule)
	}
}

func TestValidateRequiresMasterToken(t *testing.T) {
	cfg := Default()
	cfg.Tokens = &TokenConfig{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when token system enabled without master token")
	}
	cfg.Tokens.MasterToken = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate with master token: %v", err)
	}
}

func TestValidateRetentionDefaults(t *testing.T) {
	cfg := Default()
	cfg.IPRecording = &IPRecordingConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.IPRecording.Retention != 14*24*time.Hour {
		t.Errorf("default retention = %v, want two weeks", cfg.IPRecording.Retention)
	}
	if cfg.IPRecording.RetentionCheckSchedule != "0 0 * * *" {
		t.Errorf("default schedule = %q, want daily midnight", cfg.IPRecording.RetentionCheckSchedule)
	}
}

func TestValidateRejectsBadDriver(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "oracle"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestParsePeriod(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"1Y", 365 * day},
		{"2M", 60 * day},
		{"2w", 14 * day},
		{"10d", 10 * day},
		{"6h", 6 * time.Hour},
		{"6H", 6 * time.Hour},
		{"45m", 45 * time.Minute},
		{"30s", 30 * time.Second},
	}
	for _, tt := range tests {
		got, err := ParsePeriod(tt.in)
		if err != nil {
			t.Errorf("ParsePeriod(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePeriod(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParsePeriodErrors(t *testing.T) {
	for _, in := range []string{"", "5", "x", "5x", "w2", "-1d", "1.5h"} {
		if _, err := ParsePeriod(in); err == nil {
			t.Errorf("ParsePeriod(%q) should fail", in)
		}
	}
}
