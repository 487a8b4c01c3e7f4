package draftstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/johnrirwin/gemlisting/internal/crypto"
	"github.com/johnrirwin/gemlisting/internal/logging"
	"github.com/johnrirwin/gemlisting/internal/models"
)

// FileStore keeps the descriptor as JSON in a single file, sealed when a key is configured
type FileStore struct {
	mu     sync.Mutex
	path   string
	sealer *crypto.Sealer
	logger *logging.Logger
}

// NewFileStore creates a file-backed store at path
func NewFileStore(path string, sealer *crypto.Sealer, logger *logging.Logger) *FileStore {
	return &FileStore{path: path, sealer: sealer.For("lab-report-draft"), logger: logger}
}

func (s *FileStore) Save(ctx context.Context, d models.StoredCertificateDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode lab report draft: %w", err)
	}
	payload, err = s.sealer.Seal(payload)
	if err != nil {
		return fmt.Errorf("failed to seal lab report draft: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create draft dir: %w", err)
	}

	// Write then rename so a crash never leaves a half-written draft
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("failed to write lab report draft: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace lab report draft: %w", err)
	}
	return nil
}

// Load treats an unreadable or corrupt file as absent and removes it
func (s *FileStore) Load(ctx context.Context) (*models.StoredCertificateDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lab report draft: %w", err)
	}

	opened, err := s.sealer.Open(raw)
	if err != nil {
		s.discardLocked("Stored lab report draft could not be opened", err)
		return nil, nil
	}

	var d models.StoredCertificateDescriptor
	if err := json.Unmarshal(opened, &d); err != nil || d.S3Key == "" {
		if err == nil {
			err = errors.New("missing s3Key")
		}
		s.discardLocked("Stored lab report draft is corrupt", err)
		return nil, nil
	}
	return &d, nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove lab report draft: %w", err)
	}
	return nil
}

func (s *FileStore) discardLocked(msg string, cause error) {
	if s.logger != nil {
		s.logger.Warn(msg, logging.WithFields(map[string]interface{}{
			"path":  s.path,
			"error": cause.Error(),
		}))
	}
	os.Remove(s.path)
}

var _ Store = (*FileStore)(nil)
