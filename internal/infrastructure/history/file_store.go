// Package history keeps the set of already delivered URLs in a JSON file.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"PolicyDigest/internal/domain"
	"PolicyDigest/internal/logging"
	"PolicyDigest/internal/ports"
)

// DefaultLimit caps how many URLs the file keeps.
const DefaultLimit = 500

// FileStore persists history as an indented JSON array of URL strings.
// Runs sharing a file must not overlap: the last writer wins.
type FileStore struct {
	path   string
	limit  int
	logger *slog.Logger
}

var _ ports.HistoryStore = (*FileStore)(nil)

// NewFileStore binds the store to path. A non-positive limit uses DefaultLimit.
func NewFileStore(path string, limit int, logger *slog.Logger) *FileStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &FileStore{path: path, limit: limit, logger: logger.With("component", "history_file")}
}

// Load returns an empty set when the file is missing or is not a JSON string array.
func (s *FileStore) Load(_ context.Context) (domain.History, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewHistory(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", s.path, err)
	}

	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		s.logger.Warn("history file unreadable, starting empty", "path", s.path, "error", err)
		return domain.NewHistory(), nil
	}
	return domain.NewHistory(urls...), nil
}

// Save sorts history and writes the lexicographically last limit entries.
// The file is replaced through a rename so a crash never leaves it truncated.
func (s *FileStore) Save(_ context.Context, history domain.History) error {
	urls := history.Sorted()
	if len(urls) > s.limit {
		urls = urls[len(urls)-s.limit:]
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(urls); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".history-*.json")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp history: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace history %s: %w", s.path, err)
	}

	s.logger.Debug("history saved", "path", s.path, "entries", len(urls))
	return nil
}
