package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/otec/pkg/domain"
)

// Store implements ports.LogStore using the local filesystem.
// Each entity's log is a JSON array in <BasePath>/<entityID>.json.
type Store struct {
	BasePath string

	mu sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".otec/entities".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".otec", "entities")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(entityID int) string {
	return filepath.Join(s.BasePath, strconv.Itoa(entityID)+".json")
}

// Append adds the record and rewrites the entity's file atomically.
func (s *Store) Append(ctx context.Context, entityID int, rec domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.read(entityID)
	if err != nil && !errors.Is(err, domain.ErrEntityNotFound) {
		return err
	}
	return s.write(entityID, append(recs, rec))
}

// Load reads the entity's records.
func (s *Store) Load(ctx context.Context, entityID int) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(entityID)
}

// Delete removes the entity's file.
func (s *Store) Delete(ctx context.Context, entityID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(entityID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete entity file: %w", err)
	}
	return nil
}

// List returns the IDs of all stored entities.
func (s *Store) List(ctx context.Context) ([]int, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	ids := []int{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *Store) read(entityID int) ([]domain.Record, error) {
	data, err := os.ReadFile(s.path(entityID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to read entity file: %w", err)
	}

	var recs []domain.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%w: entity %d: %v", domain.ErrCorruptLog, entityID, err)
	}
	return recs, nil
}

// write persists the log atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) write(entityID int, recs []domain.Record) error {
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure entity directory: %w", err)
	}

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal log: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+strconv.Itoa(entityID)+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := s.path(entityID)
	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing entity file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
