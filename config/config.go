package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Modes accepted by the poller.
const (
	ModeProd  = "prod"
	ModeDebug = "debug"
)

// Snapshot file encodings.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin1"
)

// Config holds the grade watcher configuration.
type Config struct {
	GradesURL  string
	NtfyTopic  string
	NtfyServer string

	Mode         string
	WindowStart  int
	WindowEnd    int
	PollInterval time.Duration

	Timeout   time.Duration
	UserAgent string

	DataDir          string
	SnapshotEncoding string
	TableSelector    string

	ParseFailureAlertThreshold int
	DedupeMaxSize              int

	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns defaults matching the original deployment: a 01:00-03:00
// window polled every ten minutes.
func DefaultConfig() *Config {
	return &Config{
		NtfyServer:                 "https://ntfy.sh",
		Mode:                       ModeProd,
		WindowStart:                1,
		WindowEnd:                  3,
		PollInterval:               10 * time.Minute,
		Timeout:                    30 * time.Second,
		UserAgent:                  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		DataDir:                    "data",
		SnapshotEncoding:           EncodingUTF8,
		TableSelector:              "table",
		ParseFailureAlertThreshold: 3,
		DedupeMaxSize:              1024,
	}
}

// OldSnapshotPath is the last-known snapshot file.
func (c *Config) OldSnapshotPath() string {
	return filepath.Join(c.DataDir, "old_grades.json")
}

// NewSnapshotPath is the most recent extraction file.
func (c *Config) NewSnapshotPath() string {
	return filepath.Join(c.DataDir, "new_grades.json")
}

// Debug reports whether the active window is bypassed.
func (c *Config) Debug() bool {
	return c.Mode == ModeDebug
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := validateURL("grades URL", c.GradesURL); err != nil {
		return err
	}
	if strings.TrimSpace(c.NtfyTopic) == "" {
		return fmt.Errorf("ntfy topic cannot be empty")
	}
	if strings.ContainsAny(c.NtfyTopic, "/?# ") {
		return fmt.Errorf("ntfy topic %q contains invalid characters", c.NtfyTopic)
	}
	if err := validateURL("ntfy server", c.NtfyServer); err != nil {
		return err
	}

	if c.Mode != ModeProd && c.Mode != ModeDebug {
		return fmt.Errorf("mode must be %s or %s", ModeProd, ModeDebug)
	}
	if c.WindowStart < 0 || c.WindowStart > 23 {
		return fmt.Errorf("window start must be within 0-23")
	}
	if c.WindowEnd <= c.WindowStart || c.WindowEnd > 24 {
		return fmt.Errorf("window end must be after window start and at most 24")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data dir cannot be empty")
	}
	if c.SnapshotEncoding != EncodingUTF8 && c.SnapshotEncoding != EncodingLatin1 {
		return fmt.Errorf("snapshot encoding must be %s or %s", EncodingUTF8, EncodingLatin1)
	}
	if strings.TrimSpace(c.TableSelector) == "" {
		return fmt.Errorf("table selector cannot be empty")
	}
	if c.ParseFailureAlertThreshold < 0 {
		return fmt.Errorf("parse failure alert threshold cannot be negative")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}

	return nil
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
