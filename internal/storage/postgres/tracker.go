package postgres

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/Saurabh272/HomeSharp-sub002/internal/domain"
)

// TrackerStore is the canonical event store.
type TrackerStore struct {
	db *DB
}

func NewTrackerStore(db *DB) *TrackerStore { return &TrackerStore{db: db} }

// Append writes one canonical record. Replays of the same event id are
// no-ops rather than duplicates.
func (s *TrackerStore) Append(ctx context.Context, rec domain.TrackerRecord) error {
	var params any
	if rec.Params != nil {
		b, err := json.Marshal(rec.Params)
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		params = string(b)
	}

	_, err := s.db.Pool.Exec(ctx, `
INSERT INTO event_tracker (user_id, external_id, event_id, event_name, type, ts, params)
VALUES (NULLIF($1, ''), NULLIF($2, ''), $3, $4, $5, $6, $7::jsonb)
ON CONFLICT (event_id) DO NOTHING`,
		rec.UserID, rec.ExternalID, rec.EventID, rec.EventName, rec.Type, rec.Timestamp, params)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}
