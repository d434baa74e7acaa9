package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ent0n29/hrdesk/internal/hr"
)

// InMemoryStore is a simple in-process store for local/dev use.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []hr.Request
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Insert(_ context.Context, req hr.Request) (hr.Request, error) {
	req = prepareInsert(req)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, req)
	return req, nil
}

func (s *InMemoryStore) Query(_ context.Context, q Query) ([]hr.Request, error) {
	exact := strings.TrimSpace(q.ExactName)

	s.mu.RLock()
	out := make([]hr.Request, 0, len(s.records))
	for _, r := range s.records {
		if !q.Filters.Match(r) {
			continue
		}
		if exact != "" && r.Name != exact {
			continue
		}
		out = append(out, r)
	}
	s.mu.RUnlock()

	if q.Order == OrderDateDesc {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *InMemoryStore) Ping(context.Context) error { return nil }

func (s *InMemoryStore) Mode() string { return "in-memory" }

func (s *InMemoryStore) Close() error { return nil }
