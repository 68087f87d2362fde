package review

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sealproof/internal/hashchain"
	"sealproof/pkg/domain"
	"sealproof/pkg/platform/sentinel"
)

// InMemoryStore keeps review states and decision chains in memory for tests
// and dev wiring. One mutex guards everything; the postgres store provides
// the real per-item serialization in production.
type InMemoryStore struct {
	mu        sync.RWMutex
	states    map[domain.CheckItemID]*ReviewState
	decisions map[domain.CheckItemID][]*Decision
	byID      map[domain.DecisionID]*Decision
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		states:    make(map[domain.CheckItemID]*ReviewState),
		decisions: make(map[domain.CheckItemID][]*Decision),
		byID:      make(map[domain.DecisionID]*Decision),
	}
}

func (s *InMemoryStore) ReviewState(_ context.Context, checkItemID domain.CheckItemID) (*ReviewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[checkItemID]
	if !ok {
		state = &ReviewState{CheckItemID: checkItemID, Status: StatusNew, Version: 0, UpdatedAt: time.Now()}
		s.states[checkItemID] = state
	}
	copied := *state
	return &copied, nil
}

func (s *InMemoryStore) AdvanceState(_ context.Context, checkItemID domain.CheckItemID, next Status, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[checkItemID]
	if !ok {
		return fmt.Errorf("review state missing: %w", sentinel.ErrNotFound)
	}
	if state.Version != expectedVersion {
		return fmt.Errorf("version %d is stale: %w", expectedVersion, sentinel.ErrConflict)
	}
	state.Status = next
	state.Version++
	state.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) HeadHash(_ context.Context, checkItemID domain.CheckItemID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.decisions[checkItemID]
	if len(chain) == 0 {
		return hashchain.GenesisPreviousHash, nil
	}
	return chain[len(chain)-1].EvidenceHash, nil
}

func (s *InMemoryStore) AppendDecision(_ context.Context, d *Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[d.ID]; exists {
		return fmt.Errorf("decision %s: %w", d.ID, sentinel.ErrConflict)
	}
	copied := *d
	s.decisions[d.CheckItemID] = append(s.decisions[d.CheckItemID], &copied)
	s.byID[d.ID] = &copied
	return nil
}

func (s *InMemoryStore) GetDecision(_ context.Context, id domain.DecisionID) (*Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("decision %s: %w", id, sentinel.ErrNotFound)
	}
	copied := *d
	return &copied, nil
}

func (s *InMemoryStore) ListByCheckItem(_ context.Context, checkItemID domain.CheckItemID) ([]*Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain := s.decisions[checkItemID]
	out := make([]*Decision, 0, len(chain))
	for _, d := range chain {
		copied := *d
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// TamperContent overwrites a stored decision's content bytes out-of-band.
// Test hook for exercising chain verification; no production path reaches it.
func (s *InMemoryStore) TamperContent(id domain.DecisionID, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.byID[id]; ok {
		d.ContentBytes = content
	}
}

// InMemoryTxRunner serializes transactions over the in-memory store. Version
// checks inside the transaction still provide the conflict semantics.
type InMemoryTxRunner struct {
	mu    sync.Mutex
	store *InMemoryStore
}

func NewInMemoryTxRunner(store *InMemoryStore) *InMemoryTxRunner {
	return &InMemoryTxRunner{store: store}
}

func (r *InMemoryTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, r.store)
}
