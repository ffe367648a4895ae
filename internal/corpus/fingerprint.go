package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Fingerprint computes a cheap content-change proxy for a file, derived
// from its path, byte size, and modification time. File content is never
// read. A change that leaves both size and mtime untouched goes
// undetected; that is an accepted limitation of the scheme.
func Fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	payload := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:]), nil
}

// Tracker persists the mapping from file path to last-ingested fingerprint.
// It is the single source of truth for resumability across restarts.
type Tracker struct {
	path   string
	logger *zap.Logger
}

// NewTracker creates a tracker backed by the given record file.
func NewTracker(path string, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{path: path, logger: logger}
}

// Load reads the persisted record. A missing or corrupt file falls back
// to an empty map, trading a full re-ingest for availability.
func (t *Tracker) Load() map[string]string {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.logger.Warn("ingestion record unreadable, starting fresh",
				zap.String("path", t.path),
				zap.Error(err),
			)
		}
		return map[string]string{}
	}

	var record map[string]string
	if err := json.Unmarshal(data, &record); err != nil {
		t.logger.Warn("ingestion record corrupt, starting fresh",
			zap.String("path", t.path),
			zap.Error(err),
		)
		return map[string]string{}
	}
	return record
}

// Save persists the record atomically via write-temp-then-rename, so a
// crash mid-write cannot corrupt the existing file.
func (t *Tracker) Save(record map[string]string) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling ingestion record: %w", err)
	}

	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating record directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(t.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp record file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp record file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp record file: %w", err)
	}

	if err := os.Rename(tmpName, t.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing record file: %w", err)
	}
	return nil
}
