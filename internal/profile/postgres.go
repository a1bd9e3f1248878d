// Package profile implements the customer-profile collaborator on postgres,
// with an optional redis read-through cache.
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Saurabh272/HomeSharp-sub002/internal/identity"
)

// Store reads and writes customer profiles. Concurrent external-id writes
// for the same user are last-writer-wins; the field is idempotently
// convergent so no transaction is needed.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// GetProfile returns the stored profile, or a zero Profile when the user
// has none yet.
func (s *Store) GetProfile(ctx context.Context, userID string) (identity.Profile, error) {
	var p identity.Profile
	row := s.pool.QueryRow(ctx,
		`SELECT COALESCE(external_id, ''), COALESCE(email, ''), COALESCE(phone, '')
		   FROM customer_profiles WHERE user_id = $1`, userID)
	if err := row.Scan(&p.ExternalID, &p.Email, &p.Phone); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identity.Profile{}, nil
		}
		return identity.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// SetExternalID adopts the visitor's external id into the profile,
// creating the row on first contact.
func (s *Store) SetExternalID(ctx context.Context, userID, externalID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO customer_profiles (user_id, external_id) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET external_id = EXCLUDED.external_id`,
		userID, externalID)
	if err != nil {
		return fmt.Errorf("set external id: %w", err)
	}
	return nil
}
