package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/opscart/node-placeholder-scaler/pkg/models"
)

// MemoryStore keeps decisions in process memory. Used for dry runs without a database and in tests.
type MemoryStore struct {
	mu        sync.Mutex
	decisions []*models.Decision
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveDecision(_ context.Context, d *models.Decision) error {
	prepareDecision(d)
	cp := *d
	cp.Events = append([]string(nil), d.Events...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, &cp)
	return nil
}

func (s *MemoryStore) GetDecision(_ context.Context, id string) (*models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.decisions {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *MemoryStore) ListDecisions(_ context.Context, pool string, limit int) ([]*models.Decision, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	var out []*models.Decision
	for _, d := range s.decisions {
		if pool == "" || d.Pool == pool {
			cp := *d
			out = append(out, &cp)
		}
	}
	s.mu.Unlock()

	// Newest first; insertion order breaks ties
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
