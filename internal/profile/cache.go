package profile

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Saurabh272/HomeSharp-sub002/internal/identity"
)

// CachedStore is a read-through cache in front of a ProfileStore. Profiles
// are read once per event, so authenticated batches hit the cache hard.
// Cache failures degrade to the inner store and are never surfaced.
type CachedStore struct {
	inner identity.ProfileStore
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCachedStore(inner identity.ProfileStore, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(userID string) string { return "profile:" + userID }

func (c *CachedStore) GetProfile(ctx context.Context, userID string) (identity.Profile, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(userID)).Bytes()
	if err == nil {
		var p identity.Profile
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
		// corrupt entry, fall through to the store
	} else if err != redis.Nil {
		c.log.Debug().Err(err).Msg("profile cache read failed")
	}

	p, err := c.inner.GetProfile(ctx, userID)
	if err != nil {
		return identity.Profile{}, err
	}

	if b, merr := json.Marshal(p); merr == nil {
		if serr := c.rdb.Set(ctx, cacheKey(userID), b, c.ttl).Err(); serr != nil {
			c.log.Debug().Err(serr).Msg("profile cache write failed")
		}
	}
	return p, nil
}

// SetExternalID writes through and invalidates the cached profile so the
// adopted id is visible to the next event.
func (c *CachedStore) SetExternalID(ctx context.Context, userID, externalID string) error {
	if err := c.inner.SetExternalID(ctx, userID, externalID); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, cacheKey(userID)).Err(); err != nil {
		c.log.Debug().Err(err).Msg("profile cache invalidation failed")
	}
	return nil
}
