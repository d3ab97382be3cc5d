package vote

import "context"

// Repository defines the data-access contract for the vote ledger.
// Service depends ONLY on this interface.
type Repository interface {
	// FindVote returns the restaurant the user voted for, or "" when none.
	FindVote(ctx context.Context, sessionID, userID string) (string, error)

	// Cast atomically records v and returns the restaurant's updated tally.
	// It returns *ExistingVoteError when the user already voted.
	Cast(ctx context.Context, v Vote) (Tally, error)

	// Tallies returns every restaurant voted for in the session.
	Tallies(ctx context.Context, sessionID string) ([]Tally, error)

	// DeleteSession removes all votes of a session.
	DeleteSession(ctx context.Context, sessionID string) (int64, error)
}
