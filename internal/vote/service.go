package vote

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"bitvote/internal/apperror"
	"bitvote/internal/metrics"
	"bitvote/internal/realtime"
	"bitvote/internal/session"

	"go.uber.org/zap"
)

const notifyTimeout = 5 * time.Second

type Service struct {
	repo      Repository
	publisher realtime.Publisher
	log       *zap.Logger
	metrics   *metrics.Metrics

	// pending tracks notifications still in flight after their vote committed.
	pending sync.WaitGroup
	intn    func(n int) int
}

// NewService builds the ledger. publisher may be nil to disable notifications.
func NewService(repo Repository, publisher realtime.Publisher, log *zap.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		log:       log.Named("vote"),
		metrics:   m,
		intn:      rand.IntN,
	}
}

// --------------------------------------------------
// Cast records a vote, at most one per user per session
// --------------------------------------------------
func (s *Service) Cast(ctx context.Context, v Vote) (Tally, error) {
	v = v.normalized()
	if !v.valid() {
		s.metrics.Vote("invalid")
		return Tally{}, ErrMissingFields
	}

	existing, err := s.repo.FindVote(ctx, v.SessionID, v.UserID)
	if err != nil {
		s.metrics.Vote("error")
		return Tally{}, apperror.Persistence(err, "failed to record vote")
	}
	if existing != "" {
		s.metrics.Vote("duplicate")
		return Tally{}, alreadyVoted(existing)
	}

	tally, err := s.repo.Cast(ctx, v)
	if err != nil {
		var exists *ExistingVoteError
		if errors.As(err, &exists) {
			s.metrics.Vote("duplicate")
			return Tally{}, alreadyVoted(exists.RestaurantID)
		}
		s.metrics.Vote("error")
		s.log.Error("vote transaction failed",
			zap.String("session_id", v.SessionID),
			zap.String("user_id", v.UserID),
			zap.Error(err),
		)
		return Tally{}, apperror.Persistence(err, "failed to record vote")
	}

	s.metrics.Vote("ok")
	s.notify(v.SessionID, tally)
	return tally, nil
}

// notify publishes the new tally in the background. It never blocks or fails
// the vote that triggered it.
func (s *Service) notify(sessionID string, t Tally) {
	if s.publisher == nil {
		return
	}

	ev := realtime.Event{
		Type:         realtime.EventVoteCast,
		SessionID:    sessionID,
		RestaurantID: t.RestaurantID,
		Votes:        t.Votes,
		VotedBy:      slices.Clone(t.VotedBy),
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.log.Warn("vote notification failed",
				zap.String("session_id", ev.SessionID),
				zap.String("restaurant_id", ev.RestaurantID),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every pending notification has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// --------------------------------------------------
// Tallies lists the session's restaurants by votes
// --------------------------------------------------
func (s *Service) Tallies(ctx context.Context, sessionID string) ([]Tally, error) {
	sessionID = session.NormalizeCode(sessionID)
	if sessionID == "" {
		return nil, apperror.InvalidInput("sessionId is required")
	}

	tallies, err := s.repo.Tallies(ctx, sessionID)
	if err != nil {
		return nil, apperror.Persistence(err, "failed to load votes")
	}
	return tallies, nil
}

// --------------------------------------------------
// Spin picks a restaurant at random, weighted by votes
// --------------------------------------------------
func (s *Service) Spin(ctx context.Context, sessionID string) (Tally, error) {
	tallies, err := s.Tallies(ctx, sessionID)
	if err != nil {
		return Tally{}, err
	}

	total := 0
	for _, t := range tallies {
		total += t.Votes
	}
	if total == 0 {
		return Tally{}, ErrNoVotes
	}

	n := s.intn(total)
	for _, t := range tallies {
		if n < t.Votes {
			return t, nil
		}
		n -= t.Votes
	}
	return tallies[len(tallies)-1], nil
}
