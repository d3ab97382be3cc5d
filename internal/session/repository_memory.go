package session

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

type InMemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{sessions: make(map[string]Session)}
}

func (r *InMemoryRepository) Save(ctx context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *s
	cp.Members = slices.Clone(s.Members)
	cp.Protected = cp.PasscodeHash != ""
	r.sessions[s.Code] = cp
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, code string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return nil, errNoSession
	}
	s.Members = slices.Clone(s.Members)
	return &s, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[code]; !ok {
		return errNoSession
	}
	delete(r.sessions, code)
	return nil
}

func (r *InMemoryRepository) Purge(ctx context.Context, cutoff time.Time) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged []Session
	for code, s := range r.sessions {
		if s.LastUpdated.Before(cutoff) {
			purged = append(purged, s)
			delete(r.sessions, code)
		}
	}
	sort.Slice(purged, func(i, j int) bool { return purged[i].Code < purged[j].Code })
	return purged, nil
}
