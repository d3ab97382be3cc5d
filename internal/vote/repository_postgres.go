package vote

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindVote(ctx context.Context, sessionID, userID string) (string, error) {
	var restaurantID string
	err := r.db.QueryRow(ctx, `
		SELECT restaurant_id
		FROM votes
		WHERE session_id = $1 AND user_id = $2
	`, sessionID, userID).Scan(&restaurantID)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return restaurantID, err
}

// --------------------------------------------------
// Cast: check, insert and read back inside one tx.
// The (session_id, user_id) primary key decides races.
// --------------------------------------------------
func (r *PostgresRepository) Cast(ctx context.Context, v Vote) (Tally, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Tally{}, fmt.Errorf("begin vote tx: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := findVoteTx(ctx, tx, v.SessionID, v.UserID)
	if err != nil {
		return Tally{}, err
	}
	if existing != "" {
		return Tally{}, &ExistingVoteError{RestaurantID: existing}
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO votes (session_id, user_id, restaurant_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, user_id) DO NOTHING
	`, v.SessionID, v.UserID, v.RestaurantID)
	if err != nil {
		return Tally{}, fmt.Errorf("insert vote: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// a concurrent request committed first
		winner, err := findVoteTx(ctx, tx, v.SessionID, v.UserID)
		if err != nil {
			return Tally{}, err
		}
		return Tally{}, &ExistingVoteError{RestaurantID: winner}
	}

	rows, err := tx.Query(ctx, `
		SELECT user_id
		FROM votes
		WHERE session_id = $1 AND restaurant_id = $2
		ORDER BY created_at, user_id
	`, v.SessionID, v.RestaurantID)
	if err != nil {
		return Tally{}, fmt.Errorf("read voters: %w", err)
	}
	voters, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return Tally{}, fmt.Errorf("read voters: %w", err)
	}
	if !slices.Contains(voters, v.UserID) {
		return Tally{}, errors.New("vote not visible after insert")
	}

	if err := tx.Commit(ctx); err != nil {
		return Tally{}, fmt.Errorf("commit vote tx: %w", err)
	}

	return Tally{RestaurantID: v.RestaurantID, Votes: len(voters), VotedBy: voters}, nil
}

func (r *PostgresRepository) Tallies(ctx context.Context, sessionID string) ([]Tally, error) {
	rows, err := r.db.Query(ctx, `
		SELECT restaurant_id, user_id
		FROM votes
		WHERE session_id = $1
		ORDER BY created_at, user_id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs [][2]string
	for rows.Next() {
		var restaurantID, userID string
		if err := rows.Scan(&restaurantID, &userID); err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]string{restaurantID, userID})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return groupTallies(pairs), nil
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM votes WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func findVoteTx(ctx context.Context, tx pgx.Tx, sessionID, userID string) (string, error) {
	var restaurantID string
	err := tx.QueryRow(ctx, `
		SELECT restaurant_id
		FROM votes
		WHERE session_id = $1 AND user_id = $2
	`, sessionID, userID).Scan(&restaurantID)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find vote: %w", err)
	}
	return restaurantID, nil
}
