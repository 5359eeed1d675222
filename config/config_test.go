package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.GradesURL = "https://school.example.test/grades"
	cfg.NtfyTopic = "grades-alerts"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty grades url",
			mutate: func(cfg *Config) {
				cfg.GradesURL = ""
			},
			wantErr: "grades URL",
		},
		{
			name: "grades url without host",
			mutate: func(cfg *Config) {
				cfg.GradesURL = "http://"
			},
			wantErr: "grades URL",
		},
		{
			name: "empty topic",
			mutate: func(cfg *Config) {
				cfg.NtfyTopic = " "
			},
			wantErr: "ntfy topic",
		},
		{
			name: "topic with slash",
			mutate: func(cfg *Config) {
				cfg.NtfyTopic = "a/b"
			},
			wantErr: "invalid characters",
		},
		{
			name: "unknown mode",
			mutate: func(cfg *Config) {
				cfg.Mode = "staging"
			},
			wantErr: "mode",
		},
		{
			name: "inverted window",
			mutate: func(cfg *Config) {
				cfg.WindowStart = 5
				cfg.WindowEnd = 3
			},
			wantErr: "window end",
		},
		{
			name: "window start out of range",
			mutate: func(cfg *Config) {
				cfg.WindowStart = 24
				cfg.WindowEnd = 25
			},
			wantErr: "window start",
		},
		{
			name: "zero poll interval",
			mutate: func(cfg *Config) {
				cfg.PollInterval = 0
			},
			wantErr: "poll interval",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "unknown encoding",
			mutate: func(cfg *Config) {
				cfg.SnapshotEncoding = "utf-16"
			},
			wantErr: "snapshot encoding",
		},
		{
			name: "zero dedupe size",
			mutate: func(cfg *Config) {
				cfg.DedupeMaxSize = 0
			},
			wantErr: "dedupe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigWithRequiredFieldsValid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("config should validate, got %v", err)
	}
}

func TestSnapshotPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join("var", "lib")
	if got, want := cfg.OldSnapshotPath(), filepath.Join("var", "lib", "old_grades.json"); got != want {
		t.Fatalf("old path = %q, want %q", got, want)
	}
	if got, want := cfg.NewSnapshotPath(), filepath.Join("var", "lib", "new_grades.json"); got != want {
		t.Fatalf("new path = %q, want %q", got, want)
	}
}

func TestFromEnvMissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		url     string
		missing string
	}{
		{name: "no topic", topic: "", url: "https://school.example.test", missing: "NTFY_TOPIC"},
		{name: "no url", topic: "grades", url: "", missing: "GRADES_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NTFY_TOPIC", tt.topic)
			t.Setenv("GRADES_URL", tt.url)

			_, err := FromEnv()
			var missing *MissingEnvError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingEnvError, got %v", err)
			}
			if missing.Name != tt.missing {
				t.Fatalf("missing = %q, want %q", missing.Name, tt.missing)
			}
		})
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("NTFY_TOPIC", "grades")
	t.Setenv("GRADES_URL", "https://school.example.test/grades")
	t.Setenv("NTFY_SERVER", "https://ntfy.example.test/")
	t.Setenv("MODE", "DEBUG")
	t.Setenv("WINDOW_START", "6")
	t.Setenv("WINDOW_END", "8")
	t.Setenv("POLL_INTERVAL", "90")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("SNAPSHOT_ENCODING", "ISO-8859-1")
	t.Setenv("VERBOSE", "true")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.NtfyServer != "https://ntfy.example.test" {
		t.Fatalf("server = %q", cfg.NtfyServer)
	}
	if !cfg.Debug() {
		t.Fatalf("expected debug mode, got %q", cfg.Mode)
	}
	if cfg.WindowStart != 6 || cfg.WindowEnd != 8 {
		t.Fatalf("window = [%d,%d), want [6,8)", cfg.WindowStart, cfg.WindowEnd)
	}
	if cfg.PollInterval != 90*time.Second {
		t.Fatalf("poll interval = %v, want 90s", cfg.PollInterval)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.SnapshotEncoding != EncodingLatin1 {
		t.Fatalf("encoding = %q, want %q", cfg.SnapshotEncoding, EncodingLatin1)
	}
	if !cfg.Verbose {
		t.Fatalf("expected verbose")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestFromEnvInvalidInt(t *testing.T) {
	t.Setenv("NTFY_TOPIC", "grades")
	t.Setenv("GRADES_URL", "https://school.example.test/grades")
	t.Setenv("WINDOW_START", "one")

	if _, err := FromEnv(); err == nil || !strings.Contains(err.Error(), "WINDOW_START") {
		t.Fatalf("expected WINDOW_START error, got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("GRADEWATCH_TEST_TOPIC=from-file\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("GRADEWATCH_TEST_TOPIC", "")
	os.Unsetenv("GRADEWATCH_TEST_TOPIC")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("GRADEWATCH_TEST_TOPIC"); got != "from-file" {
		t.Fatalf("topic = %q, want from-file", got)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing file should be skipped, got %v", err)
	}
}
