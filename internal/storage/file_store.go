package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/deusflow/ofertas/internal/deals"
)

// FileStore keeps the state document in a JSON file.
type FileStore struct {
	filePath string
	window   time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

// NewFileStore creates a file store. Posted ids older than window are dropped
// when the file is loaded.
func NewFileStore(filePath string, window time.Duration) *FileStore {
	return &FileStore{
		filePath: filePath,
		window:   window,
		now:      time.Now,
	}
}

// Path returns the location of the state file.
func (s *FileStore) Path() string {
	return s.filePath
}

// Load reads the state file.
func (s *FileStore) Load(ctx context.Context) (*deals.SelectionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return deals.NewSelectionState(), nil
	}
	if err != nil {
		return deals.NewSelectionState(), fmt.Errorf("failed to read state file: %w", err)
	}

	return Decode(data, s.now(), s.window)
}

// Save writes the state to a temporary file next to the target and renames
// it into place, so readers never see a partial document.
func (s *FileStore) Save(ctx context.Context, state *deals.SelectionState) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod state file: %w", err)
	}
	if err := os.Rename(tmpName, s.filePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Close is a no-op for files.
func (s *FileStore) Close() error {
	return nil
}
