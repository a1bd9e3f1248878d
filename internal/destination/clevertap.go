package destination

import (
	"context"
	"net/http"
	"time"

	"github.com/Saurabh272/HomeSharp-sub002/internal/config"
	"github.com/Saurabh272/HomeSharp-sub002/internal/domain"
)

// cleverTapEventType is the static record type for the upload API's event
// stream (as opposed to profile pushes).
const cleverTapEventType = "event"

// CleverTap sends events to the CleverTap upload API, keyed by the
// visitor's external id.
type CleverTap struct {
	cfg    config.CleverTapConfig
	client *http.Client
}

func NewCleverTap(cfg config.CleverTapConfig, timeout time.Duration) *CleverTap {
	return &CleverTap{cfg: cfg, client: newClient(timeout)}
}

func (c *CleverTap) Name() domain.Destination { return domain.DestinationCleverTap }

func (c *CleverTap) Send(ctx context.Context, ev domain.Event, rc *domain.RequestContext) domain.DispatchResult {
	payload := c.buildPayload(ev, rc)

	header := http.Header{}
	header.Set("X-CleverTap-Account-Id", c.cfg.AccountID)
	header.Set("X-CleverTap-Passcode", c.cfg.Passcode)

	resp, derr := postJSON(ctx, c.client, c.cfg.URL, map[string]any{"d": payload}, header)
	if derr != nil {
		return domain.DispatchResult{Destination: c.Name(), Err: derr}
	}
	if resp == nil {
		resp = payload
	}
	return domain.DispatchResult{Destination: c.Name(), Payload: resp}
}

func (c *CleverTap) buildPayload(ev domain.Event, rc *domain.RequestContext) []map[string]any {
	identity := ""
	if rc != nil {
		identity = rc.ExternalID
	}
	return []map[string]any{{
		"identity": identity,
		"type":     cleverTapEventType,
		"evtName":  ev.EventName,
		"evtData":  ev.Params,
	}}
}
