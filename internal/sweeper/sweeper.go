// Package sweeper purges stale sessions and their votes, archiving each one
// to object storage first.
package sweeper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bitvote/internal/metrics"
	"bitvote/internal/session"
	"bitvote/internal/vote"

	"go.uber.org/zap"
)

const defaultInterval = time.Hour

type SessionPurger interface {
	Purge(ctx context.Context, olderThan time.Duration) ([]session.Session, error)
}

type VoteStore interface {
	Tallies(ctx context.Context, sessionID string) ([]vote.Tally, error)
	DeleteSession(ctx context.Context, sessionID string) (int64, error)
}

type Archiver interface {
	PutJSON(ctx context.Context, key string, data []byte) error
}

// Archive is the document written for every purged session.
type Archive struct {
	Session  session.Session `json:"session"`
	Tallies  []vote.Tally    `json:"tallies"`
	PurgedAt time.Time       `json:"purgedAt"`
}

type Sweeper struct {
	sessions SessionPurger
	votes    VoteStore
	archive  Archiver
	maxAge   time.Duration
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New builds a sweeper. archive may be nil to skip archiving.
func New(sessions SessionPurger, votes VoteStore, archive Archiver, maxAge time.Duration, log *zap.Logger, m *metrics.Metrics) *Sweeper {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Sweeper{
		sessions: sessions,
		votes:    votes,
		archive:  archive,
		maxAge:   maxAge,
		log:      log.Named("sweeper"),
		metrics:  m,
		now:      time.Now,
	}
}

// RunOnce performs a single sweep and returns how many sessions it purged.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	purged, err := s.sessions.Purge(ctx, s.maxAge)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}

	now := s.now().UTC()
	for _, sess := range purged {
		tallies, err := s.votes.Tallies(ctx, sess.Code)
		if err != nil {
			s.log.Error("failed to load tallies for archive", zap.String("code", sess.Code), zap.Error(err))
		} else {
			s.store(ctx, now, sess, tallies)
		}

		n, err := s.votes.DeleteSession(ctx, sess.Code)
		if err != nil {
			s.log.Error("failed to delete votes", zap.String("code", sess.Code), zap.Error(err))
			continue
		}
		s.log.Debug("session purged", zap.String("code", sess.Code), zap.Int64("votes", n))
	}

	s.metrics.SessionsPurged(len(purged))
	if len(purged) > 0 {
		s.log.Info("sweep finished", zap.Int("purged", len(purged)))
	}
	return len(purged), nil
}

func (s *Sweeper) store(ctx context.Context, now time.Time, sess session.Session, tallies []vote.Tally) {
	if s.archive == nil {
		return
	}

	data, err := json.Marshal(Archive{Session: sess, Tallies: tallies, PurgedAt: now})
	if err != nil {
		s.log.Error("failed to encode archive", zap.String("code", sess.Code), zap.Error(err))
		return
	}

	if err := s.archive.PutJSON(ctx, Key(now, sess.Code), data); err != nil {
		s.log.Error("failed to archive session", zap.String("code", sess.Code), zap.Error(err))
	}
}

// Key is the object key of a session archived at t.
func Key(t time.Time, code string) string {
	return fmt.Sprintf("archive/%s/%s.json", t.UTC().Format("2006-01-02"), code)
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval
// falls back to one hour.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultInterval
	}
	s.log.Info("sweeper started", zap.Duration("interval", interval), zap.Duration("max_age", s.maxAge))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Warn("sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}
