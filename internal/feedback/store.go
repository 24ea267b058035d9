package feedback

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/math-agent/backend/internal/storage/models"
	"github.com/math-agent/backend/pkg/logger"
)

// Store is an append-only feedback log: one JSON record per line. Appends are
// serialized by a mutex so concurrent submissions cannot interleave partial
// lines. Entries are never updated or deleted.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Append writes one entry to the end of the log, creating the file and its
// directory on first use.
func (s *Store) Append(entry models.FeedbackEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create feedback directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open feedback log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback entry: %w", err)
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append feedback entry: %w", err)
	}

	logger.Info("Feedback recorded",
		zap.Int("rating", entry.Rating),
		zap.String("query", entry.Query),
	)

	return nil
}

// Load reads every parseable entry. A missing file is an empty log; corrupt
// lines are skipped with a warning rather than failing the whole read.
func (s *Store) Load() ([]models.FeedbackEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open feedback log: %w", err)
	}
	defer f.Close()

	var entries []models.FeedbackEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry models.FeedbackEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			logger.Warn("Skipping corrupt feedback line", zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("failed to scan feedback log: %w", err)
	}

	return entries, nil
}
