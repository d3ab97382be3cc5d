package feedback

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, f *Feedback) error
	ListBySession(ctx context.Context, sessionID string) ([]Feedback, error)
}

// --------------------------------------------------
// Postgres
// --------------------------------------------------

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, f *Feedback) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO feedback (id, session_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, f.ID, f.SessionID, f.UserID, f.Rating, f.Comment).Scan(&f.CreatedAt)
}

func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]Feedback, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, session_id, user_id, rating, comment, created_at
		FROM feedback
		WHERE session_id = $1
		ORDER BY created_at, id
	`, sessionID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Feedback, error) {
		var f Feedback
		err := row.Scan(&f.ID, &f.SessionID, &f.UserID, &f.Rating, &f.Comment, &f.CreatedAt)
		return f, err
	})
}

// --------------------------------------------------
// In-memory
// --------------------------------------------------

type InMemoryRepository struct {
	mu    sync.Mutex
	items []Feedback
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) Create(ctx context.Context, f *Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *f)
	return nil
}

func (r *InMemoryRepository) ListBySession(ctx context.Context, sessionID string) ([]Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Feedback, 0)
	for _, f := range r.items {
		if f.SessionID == sessionID {
			out = append(out, f)
		}
	}
	return out, nil
}
