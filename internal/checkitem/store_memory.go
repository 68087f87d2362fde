package checkitem

import (
	"context"
	"maps"
	"sync"

	"sealproof/internal/evidence"
	"sealproof/internal/review"
	"sealproof/pkg/domain"
	"sealproof/pkg/platform/sentinel"
)

// InMemoryStore serves check items from memory. Development and tests seed
// it directly; production reads from postgres.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[domain.CheckItemID]*review.CheckItem
	ai    map[domain.CheckItemID]*evidence.AIContext
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		items: make(map[domain.CheckItemID]*review.CheckItem),
		ai:    make(map[domain.CheckItemID]*evidence.AIContext),
	}
}

// Put stores or replaces a check item.
func (s *InMemoryStore) Put(item *review.CheckItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
}

// PutRiskContext stores the advisory context for an item.
func (s *InMemoryStore) PutRiskContext(id domain.CheckItemID, ai *evidence.AIContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ai[id] = ai
}

func (s *InMemoryStore) GetCheckItem(_ context.Context, id domain.CheckItemID) (*review.CheckItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *item
	copied.ImageHashes = maps.Clone(item.ImageHashes)
	return &copied, nil
}

func (s *InMemoryStore) RiskContext(_ context.Context, id domain.CheckItemID) (*evidence.AIContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ai, ok := s.ai[id]
	if !ok {
		return nil, nil
	}
	copied := *ai
	return &copied, nil
}
