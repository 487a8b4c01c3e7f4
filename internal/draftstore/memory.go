package draftstore

import (
	"context"
	"sync"

	"github.com/johnrirwin/gemlisting/internal/models"
)

// MemoryStore keeps the descriptor for the lifetime of the process
type MemoryStore struct {
	mu    sync.RWMutex
	draft *models.StoredCertificateDescriptor
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(ctx context.Context, d models.StoredCertificateDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyDraft := d
	s.draft = &copyDraft
	return nil
}

func (s *MemoryStore) Load(ctx context.Context) (*models.StoredCertificateDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.draft == nil {
		return nil, nil
	}
	copyDraft := *s.draft
	return &copyDraft, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
	return nil
}

var _ Store = (*MemoryStore)(nil)
