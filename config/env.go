package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MissingEnvError reports a required environment variable that is not set.
type MissingEnvError struct {
	Name string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("%s environment variable is not set", e.Name)
}

// LoadDotEnv loads key=value pairs from path into the process environment.
// A missing file is not an error. Variables already set win over the file.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv builds a Config from defaults overridden by the environment.
// NTFY_TOPIC and GRADES_URL are required.
func FromEnv() (*Config, error) {
	cfg := DefaultConfig()

	topic, ok := EnvString("NTFY_TOPIC")
	if !ok {
		return nil, &MissingEnvError{Name: "NTFY_TOPIC"}
	}
	cfg.NtfyTopic = topic

	gradesURL, ok := EnvString("GRADES_URL")
	if !ok {
		return nil, &MissingEnvError{Name: "GRADES_URL"}
	}
	cfg.GradesURL = gradesURL

	if value, ok := EnvString("NTFY_SERVER"); ok {
		cfg.NtfyServer = strings.TrimSuffix(value, "/")
	}
	if value, ok := EnvString("MODE"); ok {
		cfg.Mode = strings.ToLower(value)
	}
	if value, ok := EnvString("DATA_DIR"); ok {
		cfg.DataDir = value
	}
	if value, ok := EnvString("SNAPSHOT_ENCODING"); ok {
		cfg.SnapshotEncoding = normalizeEncoding(value)
	}
	if value, ok := EnvString("TABLE_SELECTOR"); ok {
		cfg.TableSelector = value
	}
	if value, ok := EnvString("USER_AGENT"); ok {
		cfg.UserAgent = value
	}
	if value, ok := EnvString("METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"WINDOW_START", &cfg.WindowStart},
		{"WINDOW_END", &cfg.WindowEnd},
		{"PARSE_ALERT_THRESHOLD", &cfg.ParseFailureAlertThreshold},
		{"DEDUPE_MAX_SIZE", &cfg.DedupeMaxSize},
	}
	for _, field := range ints {
		value, ok, err := EnvInt(field.name)
		if err != nil {
			return nil, err
		}
		if ok {
			*field.dst = value
		}
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"POLL_INTERVAL", &cfg.PollInterval},
		{"FETCH_TIMEOUT", &cfg.Timeout},
	}
	for _, field := range durations {
		value, ok, err := EnvDuration(field.name)
		if err != nil {
			return nil, err
		}
		if ok {
			*field.dst = value
		}
	}

	verbose, ok, err := EnvBool("VERBOSE")
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.Verbose = verbose
	}

	return cfg, nil
}

// EnvString returns the trimmed value of name, reporting false when unset or blank.
func EnvString(name string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses name as an integer.
func EnvInt(name string) (int, bool, error) {
	raw, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return value, true, nil
}

// EnvBool parses name as a boolean.
func EnvBool(name string) (bool, bool, error) {
	raw, ok := EnvString(name)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return value, true, nil
}

// EnvDuration parses name as a Go duration. Bare integers are taken as seconds.
func EnvDuration(name string) (time.Duration, bool, error) {
	raw, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, true, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return value, true, nil
}

func normalizeEncoding(value string) string {
	switch strings.ToLower(strings.ReplaceAll(value, "_", "-")) {
	case "latin1", "latin-1", "latin", "iso-8859-1", "iso8859-1":
		return EncodingLatin1
	case "utf8", "utf-8":
		return EncodingUTF8
	default:
		return value
	}
}
