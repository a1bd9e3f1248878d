// Package identity reconciles the visitor's transient external id (cookie)
// with the durable id stored against the customer profile. The profile
// value, once set, is authoritative across devices.
package identity

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Saurabh272/HomeSharp-sub002/internal/domain"
)

// Profile is the subset of the customer profile the pipeline reads.
type Profile struct {
	ExternalID string `json:"externalId,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// ProfileStore is the customer-profile collaborator. A missing profile is
// a zero Profile, not an error.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
	SetExternalID(ctx context.Context, userID, externalID string) error
}

// Resolver decides the effective external id for one event. It is pure
// apart from the profile write-through; cookie corrections are returned as
// values and applied at the response boundary.
type Resolver struct {
	profiles ProfileStore
	log      zerolog.Logger
}

func NewResolver(profiles ProfileStore, log zerolog.Logger) *Resolver {
	return &Resolver{profiles: profiles, log: log}
}

// Resolve returns the effective external id and, when the client cookie
// disagrees with the profile, a correction to apply to the response.
//
// Anonymous visitors keep their cookie value without any profile lookup.
// A profile-store failure falls back to the visitor's own id: identity
// resolution is never fatal to the pipeline.
func (r *Resolver) Resolve(ctx context.Context, userID, externalID string) (string, *domain.CookieUpdate) {
	if userID == "" {
		return externalID, nil
	}

	profile, err := r.profiles.GetProfile(ctx, userID)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("profile lookup failed, using visitor external id")
		return externalID, nil
	}

	switch {
	case profile.ExternalID == "":
		// first authenticated contact: adopt the visitor id into the profile
		if externalID != "" {
			if err := r.profiles.SetExternalID(ctx, userID, externalID); err != nil {
				r.log.Warn().Err(err).Str("user_id", userID).Msg("external id adoption failed")
			}
		}
		return externalID, nil
	case profile.ExternalID != externalID:
		// profile wins; rewrite the client cookie to match
		return profile.ExternalID, &domain.CookieUpdate{ExternalID: profile.ExternalID}
	default:
		return externalID, nil
	}
}
