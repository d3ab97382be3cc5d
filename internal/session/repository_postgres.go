package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, s *Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (code, name, members, passcode_hash, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			name          = EXCLUDED.name,
			members       = EXCLUDED.members,
			passcode_hash = EXCLUDED.passcode_hash,
			last_updated  = EXCLUDED.last_updated
	`, s.Code, s.Name, s.Members, nullIfEmpty(s.PasscodeHash), s.LastUpdated)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, code string) (*Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT code, name, members, passcode_hash, last_updated
		FROM sessions
		WHERE code = $1
	`, code)

	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errNoSession
	}
	return s, err
}

func (r *PostgresRepository) Delete(ctx context.Context, code string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNoSession
	}
	return nil
}

func (r *PostgresRepository) Purge(ctx context.Context, cutoff time.Time) ([]Session, error) {
	rows, err := r.db.Query(ctx, `
		DELETE FROM sessions
		WHERE last_updated < $1
		RETURNING code, name, members, passcode_hash, last_updated
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purged []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		purged = append(purged, *s)
	}
	return purged, rows.Err()
}

func scanSession(row pgx.Row) (*Session, error) {
	s := &Session{}
	var hash *string
	if err := row.Scan(&s.Code, &s.Name, &s.Members, &hash, &s.LastUpdated); err != nil {
		return nil, err
	}
	if hash != nil {
		s.PasscodeHash = *hash
		s.Protected = true
	}
	if s.Members == nil {
		s.Members = []string{}
	}
	return s, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
