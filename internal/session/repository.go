package session

import (
	"context"
	"errors"
	"time"
)

// errNoSession is returned by repositories when a code is unknown.
var errNoSession = errors.New("session does not exist")

// Repository defines the data-access contract.
// Service depends ONLY on this interface.
type Repository interface {
	// Save inserts or replaces the session stored under s.Code.
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, code string) (*Session, error)
	Delete(ctx context.Context, code string) error
	// Purge deletes and returns sessions last updated before cutoff.
	Purge(ctx context.Context, cutoff time.Time) ([]Session, error)
}
