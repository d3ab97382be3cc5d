package vote

import (
	"context"
	"sort"
	"sync"
)

type InMemoryRepository struct {
	mu    sync.Mutex
	votes map[string][]memoryVote
}

type memoryVote struct {
	userID       string
	restaurantID string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{votes: make(map[string][]memoryVote)}
}

func (r *InMemoryRepository) FindVote(ctx context.Context, sessionID, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(sessionID, userID), nil
}

func (r *InMemoryRepository) Cast(ctx context.Context, v Vote) (Tally, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.find(v.SessionID, v.UserID); existing != "" {
		return Tally{}, &ExistingVoteError{RestaurantID: existing}
	}
	r.votes[v.SessionID] = append(r.votes[v.SessionID], memoryVote{userID: v.UserID, restaurantID: v.RestaurantID})

	t := Tally{RestaurantID: v.RestaurantID, VotedBy: []string{}}
	for _, mv := range r.votes[v.SessionID] {
		if mv.restaurantID == v.RestaurantID {
			t.VotedBy = append(t.VotedBy, mv.userID)
		}
	}
	t.Votes = len(t.VotedBy)
	return t, nil
}

func (r *InMemoryRepository) Tallies(ctx context.Context, sessionID string) ([]Tally, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairs := make([][2]string, 0, len(r.votes[sessionID]))
	for _, mv := range r.votes[sessionID] {
		pairs = append(pairs, [2]string{mv.restaurantID, mv.userID})
	}
	return groupTallies(pairs), nil
}

func (r *InMemoryRepository) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.votes[sessionID]))
	delete(r.votes, sessionID)
	return n, nil
}

func (r *InMemoryRepository) find(sessionID, userID string) string {
	for _, mv := range r.votes[sessionID] {
		if mv.userID == userID {
			return mv.restaurantID
		}
	}
	return ""
}

// groupTallies folds (restaurantID, userID) pairs given in vote order into
// tallies ordered by votes desc, then restaurant id.
func groupTallies(pairs [][2]string) []Tally {
	index := make(map[string]int)
	tallies := make([]Tally, 0)

	for _, p := range pairs {
		i, ok := index[p[0]]
		if !ok {
			i = len(tallies)
			index[p[0]] = i
			tallies = append(tallies, Tally{RestaurantID: p[0], VotedBy: []string{}})
		}
		tallies[i].VotedBy = append(tallies[i].VotedBy, p[1])
		tallies[i].Votes++
	}

	sort.SliceStable(tallies, func(a, b int) bool {
		if tallies[a].Votes != tallies[b].Votes {
			return tallies[a].Votes > tallies[b].Votes
		}
		return tallies[a].RestaurantID < tallies[b].RestaurantID
	})
	return tallies
}
