package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore keeps credentials in a map.
type CredentialStore struct {
	mu          sync.RWMutex
	credentials map[string]domain.Credential
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{credentials: make(map[string]domain.Credential)}
}

func (s *CredentialStore) Save(_ context.Context, credential domain.Credential) error {
	if credential.ID == "" {
		return fmt.Errorf("%w: credential id is empty", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[credential.ID] = credential
	return nil
}

func (s *CredentialStore) Get(_ context.Context, id string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	credential, ok := s.credentials[id]
	if !ok {
		return nil, fmt.Errorf("%w: credential %s", domain.ErrNotFound, id)
	}
	return &credential, nil
}

func (s *CredentialStore) List(_ context.Context) ([]domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Credential, 0, len(s.credentials))
	for _, c := range s.credentials {
		out = append(out, c)
	}
	return out, nil
}

func (s *CredentialStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[id]; !ok {
		return fmt.Errorf("%w: credential %s", domain.ErrNotFound, id)
	}
	delete(s.credentials, id)
	return nil
}
