// Package filestore persists both workflow collections in one JSON document:
//
//	{ "users": [...], "knowledge": [...] }
//
// Every mutation reads the full document, changes it in memory and writes it
// back whole through a temp file and rename, so readers never observe a
// partial write.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

type fileUser struct {
	Username      string            `json:"username"`
	Password      string            `json:"password"`
	Role          domain.Role       `json:"role"`
	RequestedRole domain.Role       `json:"requestedRole,omitempty"`
	Region        string            `json:"region"`
	Status        domain.UserStatus `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
}

type snapshot struct {
	Users     []fileUser             `json:"users"`
	Knowledge []domain.KnowledgeItem `json:"knowledge"`
}

// Store owns the snapshot file. A single lock covers both collections
// because they share one document.
type Store struct {
	path string
	mu   sync.RWMutex
}

// Open prepares the directory holding path. A missing file is treated as
// an empty snapshot and created on the first write.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("filestore: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: filestore: create dir: %w", domain.ErrBackendUnavailable, err)
	}
	return &Store{path: filepath.Clean(path)}, nil
}

// Users returns the user collection view.
func (s *Store) Users() *UserRepository { return &UserRepository{store: s} }

// Knowledge returns the knowledge collection view.
func (s *Store) Knowledge() *KnowledgeRepository { return &KnowledgeRepository{store: s} }

// Ping verifies the snapshot can be read.
func (s *Store) Ping(_ context.Context) error {
	_, err := s.view()
	return err
}

func (s *Store) view() (*snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

// mutate runs fn against a fresh snapshot and persists it when fn succeeds.
func (s *Store) mutate(fn func(*snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(snap); err != nil {
		return err
	}
	return s.write(snap)
}

func (s *Store) read() (*snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: filestore: read: %w", domain.ErrBackendUnavailable, err)
	}
	var snap snapshot
	if len(data) > 0 {
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("%w: filestore: decode %s: %w", domain.ErrBackendUnavailable, s.path, err)
		}
	}
	return &snap, nil
}

func (s *Store) write(snap *snapshot) error {
	if snap.Users == nil {
		snap.Users = []fileUser{}
	}
	if snap.Knowledge == nil {
		snap.Knowledge = []domain.KnowledgeItem{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: filestore: create temp: %w", domain.ErrBackendUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: filestore: write: %w", domain.ErrBackendUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: filestore: sync: %w", domain.ErrBackendUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: filestore: close: %w", domain.ErrBackendUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: filestore: replace snapshot: %w", domain.ErrBackendUnavailable, err)
	}
	return nil
}
