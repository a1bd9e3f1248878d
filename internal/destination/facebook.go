package destination

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Saurabh272/HomeSharp-sub002/internal/config"
	"github.com/Saurabh272/HomeSharp-sub002/internal/domain"
	"github.com/Saurabh272/HomeSharp-sub002/internal/identity"
)

// Facebook sends server-side events to the Conversions API. Personal
// identifiers (email, phone) are looked up from the customer profile and
// one-way hashed before transmission; they never leave the process in
// clear text.
type Facebook struct {
	cfg        config.FacebookConfig
	client     *http.Client
	profiles   identity.ProfileStore
	production bool
	now        func() time.Time
	log        zerolog.Logger
}

func NewFacebook(cfg config.FacebookConfig, timeout time.Duration, profiles identity.ProfileStore, production bool, log zerolog.Logger) *Facebook {
	return &Facebook{
		cfg:        cfg,
		client:     newClient(timeout),
		profiles:   profiles,
		production: production,
		now:        time.Now,
		log:        log,
	}
}

func (f *Facebook) Name() domain.Destination { return domain.DestinationFacebook }

func (f *Facebook) Send(ctx context.Context, ev domain.Event, rc *domain.RequestContext) domain.DispatchResult {
	payload := f.buildPayload(ctx, ev, rc)

	resp, derr := postJSON(ctx, f.client, f.endpoint(), payload, nil)
	if derr != nil {
		return domain.DispatchResult{Destination: f.Name(), Err: derr}
	}
	if resp == nil {
		resp = payload
	}
	return domain.DispatchResult{Destination: f.Name(), Payload: resp}
}

func (f *Facebook) endpoint() string {
	base := strings.TrimRight(f.cfg.URL, "/")
	return base + "/" + f.cfg.PixelID + "/events?access_token=" + url.QueryEscape(f.cfg.AccessToken)
}

// buildPayload shapes one Conversions API event. Absent email/phone are
// sent as explicit nulls, not omitted. Outside production a static test
// event code is attached so events land in the test console.
func (f *Facebook) buildPayload(ctx context.Context, ev domain.Event, rc *domain.RequestContext) map[string]any {
	var em, ph any
	userData := map[string]any{
		"em": nil,
		"ph": nil,
	}

	if rc != nil {
		if rc.UserID != "" {
			em, ph = f.hashedIdentifiers(ctx, rc.UserID)
			userData["em"] = em
			userData["ph"] = ph
		}
		if rc.IPAddress != "" {
			userData["client_ip_address"] = rc.IPAddress
		}
		if rc.UserAgent != "" {
			userData["client_user_agent"] = rc.UserAgent
		}
		if rc.ExternalID != "" {
			userData["external_id"] = rc.ExternalID
		}
	}

	event := map[string]any{
		"event_name":    titleCase(ev.EventName),
		"event_time":    ev.Time(f.now()).Unix(),
		"action_source": "website",
		"user_data":     userData,
		"custom_data":   ev.Params,
	}

	payload := map[string]any{"data": []map[string]any{event}}
	if !f.production && f.cfg.TestEventCode != "" {
		payload["test_event_code"] = f.cfg.TestEventCode
	}
	return payload
}

// hashedIdentifiers fetches email/phone from the profile and hashes them.
// A failed or empty lookup yields nulls; the event is still sent.
func (f *Facebook) hashedIdentifiers(ctx context.Context, userID string) (em, ph any) {
	profile, err := f.profiles.GetProfile(ctx, userID)
	if err != nil {
		f.log.Warn().Err(err).Str("user_id", userID).Msg("profile lookup for conversions api failed")
		return nil, nil
	}
	if profile.Email != "" {
		em = hashIdentifier(profile.Email)
	}
	if profile.Phone != "" {
		ph = hashIdentifier(profile.Phone)
	}
	return em, ph
}

// hashIdentifier normalizes and SHA-256 hashes a personal identifier per
// the Conversions API matching rules.
func hashIdentifier(v string) string {
	normalized := strings.ToLower(strings.TrimSpace(v))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
