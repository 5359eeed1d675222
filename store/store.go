// Package store persists grade snapshots as flat JSON files.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/charmap"

	"github.com/aluiziolira/go-grade-notifier/config"
	"github.com/aluiziolira/go-grade-notifier/models"
)

// ErrSnapshotNotFound is returned by Load when the snapshot file does not exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// PersistError reports a snapshot file that could not be read or written.
type PersistError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Errorf("%s %s: %w", e.Op, e.Path, e.Err).Error()
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// SnapshotStore reads and writes snapshots as indented JSON files.
type SnapshotStore struct {
	encoding string
}

// NewSnapshotStore builds a store for the given file encoding.
func NewSnapshotStore(encoding string) (*SnapshotStore, error) {
	switch encoding {
	case "", config.EncodingUTF8:
		encoding = config.EncodingUTF8
	case config.EncodingLatin1:
	default:
		return nil, fmt.Errorf("unsupported snapshot encoding: %s", encoding)
	}
	return &SnapshotStore{encoding: encoding}, nil
}

// Load reads the snapshot at path.
func (s *SnapshotStore) Load(path string) (models.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &PersistError{Op: "load", Path: path, Err: ErrSnapshotNotFound}
		}
		return nil, &PersistError{Op: "load", Path: path, Err: err}
	}

	if s.encoding == config.EncodingLatin1 {
		raw, err = charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, &PersistError{Op: "decode", Path: path, Err: err}
		}
	}

	snapshot := models.Snapshot{}
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, &PersistError{Op: "decode", Path: path, Err: err}
	}
	if snapshot == nil {
		snapshot = models.Snapshot{}
	}
	return snapshot, nil
}

// Save replaces the file at path with snapshot. The write goes to a temporary
// file in the same directory which is then renamed over the target.
func (s *SnapshotStore) Save(path string, snapshot models.Snapshot) error {
	if snapshot == nil {
		snapshot = models.Snapshot{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(snapshot); err != nil {
		return &PersistError{Op: "encode", Path: path, Err: err}
	}

	data := buf.Bytes()
	if s.encoding == config.EncodingLatin1 {
		encoded, err := charmap.ISO8859_1.NewEncoder().Bytes(data)
		if err != nil {
			return &PersistError{Op: "encode", Path: path, Err: err}
		}
		data = encoded
	}

	if err := ensureDir(path); err != nil {
		return &PersistError{Op: "save", Path: path, Err: err}
	}
	if err := writeAtomic(path, data); err != nil {
		return &PersistError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// EnsureExists creates an empty snapshot at path when no file is there yet.
func (s *SnapshotStore) EnsureExists(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, &PersistError{Op: "stat", Path: path, Err: err}
	}
	if err := s.Save(path, models.Snapshot{}); err != nil {
		return false, err
	}
	return true, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
