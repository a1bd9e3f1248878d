package destination

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/Saurabh272/HomeSharp-sub002/internal/config"
	"github.com/Saurabh272/HomeSharp-sub002/internal/domain"
)

// engagementTimeMsec is the fixed engagement time attached to every GA
// event; the measurement protocol needs a non-zero value for the event to
// count toward engagement metrics.
const engagementTimeMsec = 1

// GA sends events over the GA4 measurement protocol.
type GA struct {
	cfg    config.GAConfig
	client *http.Client
}

func NewGA(cfg config.GAConfig, timeout time.Duration) *GA {
	return &GA{cfg: cfg, client: newClient(timeout)}
}

func (g *GA) Name() domain.Destination { return domain.DestinationGA }

func (g *GA) Send(ctx context.Context, ev domain.Event, rc *domain.RequestContext) domain.DispatchResult {
	payload := g.buildPayload(ev, rc)

	resp, derr := postJSON(ctx, g.client, g.endpoint(), payload, nil)
	if derr != nil {
		return domain.DispatchResult{Destination: g.Name(), Err: derr}
	}
	if resp == nil {
		// the collect endpoint returns an empty body on success
		resp = payload
	}
	return domain.DispatchResult{Destination: g.Name(), Payload: resp}
}

func (g *GA) endpoint() string {
	q := url.Values{}
	q.Set("measurement_id", g.cfg.MeasurementID)
	q.Set("api_secret", g.cfg.APISecret)
	return g.cfg.URL + "?" + q.Encode()
}

// buildPayload is deterministic: the same (event, context) pair always
// yields the same body. A nil context produces an anonymous payload with no
// client_id and empty user_properties rather than failing.
func (g *GA) buildPayload(ev domain.Event, rc *domain.RequestContext) map[string]any {
	params := make(map[string]any, len(ev.Params)+4)
	for k, v := range ev.Params {
		params[k] = v
	}
	params["engagement_time_msec"] = engagementTimeMsec

	body := map[string]any{
		"events": []map[string]any{{
			"name":   snakeCase(ev.EventName),
			"params": params,
		}},
		"user_properties": userProperties(rc),
	}

	if rc == nil {
		return body
	}
	if rc.ExternalID != "" {
		body["client_id"] = rc.ExternalID
		params["external_id"] = rc.ExternalID
	}
	if rc.UserID != "" {
		params["user_id"] = rc.UserID
	}
	if rc.ReferrerURL != "" {
		params["page_referrer"] = rc.ReferrerURL
	}
	return body
}

// userProperties includes a key for exactly the non-null subset of context
// fields, each wrapped as {"value": ...}. Null fields are omitted entirely,
// never sent as null.
func userProperties(rc *domain.RequestContext) map[string]any {
	props := map[string]any{}
	if rc == nil {
		return props
	}
	fields := []struct {
		key   string
		value string
	}{
		{"device_category", rc.DeviceCategory},
		{"user_agent", rc.UserAgent},
		{"ip_address", rc.IPAddress},
		{"platform", rc.OperatingSystem},
		{"country", rc.Country},
		{"city", rc.City},
		{"browser", rc.Browser},
		{"device_brand", rc.DeviceBrand},
		{"device_model", rc.DeviceModel},
		{"os_version", rc.OSWithVersion},
		{"operating_system", rc.OperatingSystem},
		{"app_version", rc.AppVersion},
	}
	for _, f := range fields {
		if f.value != "" {
			props[f.key] = map[string]any{"value": f.value}
		}
	}
	return props
}
