// Package savedsearch stores a user's saved property-search filters.
package savedsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when the search does not exist or belongs to a
// different user.
var ErrNotFound = errors.New("saved search not found")

type SavedSearch struct {
	ID        string         `json:"id"`
	UserID    string         `json:"-"`
	Name      string         `json:"name" validate:"required"`
	Filters   map[string]any `json:"filters,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) Create(ctx context.Context, userID, name string, filters map[string]any) (SavedSearch, error) {
	search := SavedSearch{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Filters:   filters,
		CreatedAt: time.Now().UTC(),
	}

	var encoded any
	if filters != nil {
		b, err := json.Marshal(filters)
		if err != nil {
			return SavedSearch{}, fmt.Errorf("encode filters: %w", err)
		}
		encoded = string(b)
	}

	_, err := s.pool.Exec(ctx, `
INSERT INTO saved_searches (id, user_id, name, filters, created_at)
VALUES ($1, $2, $3, $4::jsonb, $5)`,
		search.ID, search.UserID, search.Name, encoded, search.CreatedAt)
	if err != nil {
		return SavedSearch{}, fmt.Errorf("insert saved search: %w", err)
	}
	return search, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]SavedSearch, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, user_id, name, COALESCE(filters, '{}'::jsonb), created_at
  FROM saved_searches WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved searches: %w", err)
	}
	defer rows.Close()

	var out []SavedSearch
	for rows.Next() {
		search, err := scanSearch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, search)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, userID, id string) (SavedSearch, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, user_id, name, COALESCE(filters, '{}'::jsonb), created_at
  FROM saved_searches WHERE id = $1 AND user_id = $2`, id, userID)
	search, err := scanSearch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return SavedSearch{}, ErrNotFound
	}
	return search, err
}

func (s *Store) Delete(ctx context.Context, userID, id string) error {
	ct, err := s.pool.Exec(ctx,
		`DELETE FROM saved_searches WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete saved search: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSearch(row pgx.Row) (SavedSearch, error) {
	var (
		search SavedSearch
		raw    []byte
	)
	if err := row.Scan(&search.ID, &search.UserID, &search.Name, &raw, &search.CreatedAt); err != nil {
		return SavedSearch{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &search.Filters); err != nil {
			return SavedSearch{}, fmt.Errorf("decode filters: %w", err)
		}
	}
	return search, nil
}
