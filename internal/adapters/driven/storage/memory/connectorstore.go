package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

var _ driven.ConnectorStore = (*ConnectorStore)(nil)

// ConnectorStore keeps connector definitions in a map.
type ConnectorStore struct {
	mu         sync.RWMutex
	connectors map[string]domain.Connector
}

func NewConnectorStore() *ConnectorStore {
	return &ConnectorStore{connectors: make(map[string]domain.Connector)}
}

func (s *ConnectorStore) Save(_ context.Context, connector domain.Connector) error {
	if connector.ID == "" {
		return fmt.Errorf("%w: connector id is empty", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectors[connector.ID] = connector
	return nil
}

func (s *ConnectorStore) Get(_ context.Context, id string) (*domain.Connector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	connector, ok := s.connectors[id]
	if !ok {
		return nil, fmt.Errorf("%w: connector %s", domain.ErrNotFound, id)
	}
	return &connector, nil
}

func (s *ConnectorStore) List(_ context.Context) ([]domain.Connector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Connector, 0, len(s.connectors))
	for _, c := range s.connectors {
		out = append(out, c)
	}
	return out, nil
}

func (s *ConnectorStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.connectors[id]; !ok {
		return fmt.Errorf("%w: connector %s", domain.ErrNotFound, id)
	}
	delete(s.connectors, id)
	return nil
}
