package domain

import "time"

// Event is one client-submitted behavioral event. Events are immutable once
// enrichment has merged the request context in; adapters only read them.
type Event struct {
	EventID   string         `json:"eventId" validate:"required"`
	EventName string         `json:"eventName" validate:"required"`
	Timestamp string         `json:"timestamp,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
}

// Time returns the event timestamp parsed as RFC3339, or now when the
// client sent none (timestamp is optional on the wire).
func (e Event) Time(now time.Time) time.Time {
	if e.Timestamp == "" {
		return now.UTC()
	}
	ts, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return now.UTC()
	}
	return ts.UTC()
}

// RequestContext is derived once per inbound request and shared read-only
// across every event and adapter of that request. Empty string means the
// field could not be resolved.
type RequestContext struct {
	IPAddress       string `json:"ipAddress,omitempty"`
	UserAgent       string `json:"userAgent,omitempty"`
	ReferrerURL     string `json:"referrerUrl,omitempty"`
	Browser         string `json:"browser,omitempty"`
	DeviceCategory  string `json:"deviceCategory,omitempty"`
	DeviceBrand     string `json:"deviceBrand,omitempty"`
	DeviceModel     string `json:"deviceModel,omitempty"`
	OperatingSystem string `json:"operatingSystem,omitempty"`
	OSWithVersion   string `json:"osWithVersion,omitempty"`
	City            string `json:"city,omitempty"`
	Country         string `json:"country,omitempty"`
	AppVersion      string `json:"appVersion,omitempty"`
	UserID          string `json:"userId,omitempty"`
	ExternalID      string `json:"externalId,omitempty"`
}

// Destination identifies one analytics provider receiving shaped copies.
type Destination string

const (
	DestinationGA        Destination = "ga"
	DestinationCleverTap Destination = "clevertap"
	DestinationFacebook  Destination = "facebook"
)

// DispatchError carries a provider failure without aborting siblings.
type DispatchError struct {
	Message    string `json:"error"`
	StatusCode int    `json:"status,omitempty"`
}

func (e *DispatchError) Error() string { return e.Message }

// DispatchResult is the outcome of one adapter for one event. Exactly one
// of Payload/Err is meaningful; results are never collapsed into a single
// pass/fail.
type DispatchResult struct {
	Destination Destination    `json:"destination"`
	Payload     any            `json:"payload,omitempty"`
	Err         *DispatchError `json:"err,omitempty"`
}

// CookieUpdate asks the response boundary to rewrite the visitor cookie to
// the profile's authoritative external id.
type CookieUpdate struct {
	ExternalID string
}

// TrackerType is the provenance tag stamped on every persisted record.
const TrackerType = "web_event"

// TrackerRecord is the canonical persisted row, written exactly once per
// processed event regardless of adapter outcomes.
type TrackerRecord struct {
	UserID     string
	ExternalID string
	EventID    string
	EventName  string
	Type       string
	Timestamp  time.Time
	Params     map[string]any
}
