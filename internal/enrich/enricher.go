// Package enrich derives the per-request context (client IP, geo, device,
// browser, app version, prior identity) from raw request metadata. Every
// lookup is best-effort: a miss yields empty fields, never an error.
package enrich

import (
	"net"
	"strings"

	"github.com/mileusna/useragent"
	"github.com/oschwald/geoip2-golang"
	"github.com/rs/zerolog"

	"github.com/Saurabh272/HomeSharp-sub002/internal/domain"
)

// RawRequest is the metadata the transport layer extracts from an inbound
// HTTP request before the pipeline runs.
type RawRequest struct {
	RemoteAddr   string
	ForwardedFor string
	UserAgent    string
	Referrer     string
	UserID       string
	ExternalID   string
}

// Enricher builds RequestContexts. The geo reader and app version are
// resolved once at startup; Enrich itself has no side effects beyond
// warning logs.
type Enricher struct {
	geo        *geoip2.Reader
	appVersion string
	log        zerolog.Logger
}

// New opens the MaxMind city database at geoPath. An empty path disables
// geo lookups; an unreadable database is degraded to the same (logged, not
// fatal).
func New(geoPath, appVersion string, log zerolog.Logger) *Enricher {
	e := &Enricher{appVersion: appVersion, log: log}
	if geoPath == "" {
		return e
	}
	reader, err := geoip2.Open(geoPath)
	if err != nil {
		log.Warn().Err(err).Str("path", geoPath).Msg("geo database unavailable, geo enrichment disabled")
		return e
	}
	e.geo = reader
	return e
}

// Close releases the geo database.
func (e *Enricher) Close() {
	if e.geo != nil {
		_ = e.geo.Close()
	}
}

// Enrich derives the request context. Identity fields already resolved
// upstream (auth token, cookie middleware) are copied through unchanged.
func (e *Enricher) Enrich(raw RawRequest) domain.RequestContext {
	rc := domain.RequestContext{
		IPAddress:   clientIP(raw.ForwardedFor, raw.RemoteAddr),
		UserAgent:   raw.UserAgent,
		ReferrerURL: raw.Referrer,
		AppVersion:  e.appVersion,
		UserID:      raw.UserID,
		ExternalID:  raw.ExternalID,
	}

	e.lookupGeo(&rc)
	parseUserAgent(&rc, raw.UserAgent)
	return rc
}

// clientIP prefers the first forwarded-for hop, falling back to the raw
// connection address.
func clientIP(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

func (e *Enricher) lookupGeo(rc *domain.RequestContext) {
	if e.geo == nil || rc.IPAddress == "" {
		return
	}
	ip := net.ParseIP(rc.IPAddress)
	if ip == nil {
		return
	}
	city, err := e.geo.City(ip)
	if err != nil {
		e.log.Warn().Err(err).Str("ip", rc.IPAddress).Msg("geo lookup failed")
		return
	}
	rc.City = city.City.Names["en"]
	rc.Country = city.Country.Names["en"]
}

func parseUserAgent(rc *domain.RequestContext, raw string) {
	if raw == "" {
		return
	}
	ua := useragent.Parse(raw)
	rc.Browser = ua.Name
	rc.OperatingSystem = ua.OS
	if ua.OS != "" && ua.OSVersion != "" {
		rc.OSWithVersion = ua.OS + " " + ua.OSVersion
	} else {
		rc.OSWithVersion = ua.OS
	}
	rc.DeviceCategory = deviceCategory(ua)
	rc.DeviceModel = ua.Device
	rc.DeviceBrand = deviceBrand(ua.Device)
}

func deviceCategory(ua useragent.UserAgent) string {
	switch {
	case ua.Bot:
		return "bot"
	case ua.Tablet:
		return "tablet"
	case ua.Mobile:
		return "mobile"
	case ua.Desktop:
		return "desktop"
	default:
		return ""
	}
}

// deviceBrand maps the parsed device model to a vendor where the model
// string makes it unambiguous.
func deviceBrand(device string) string {
	d := strings.ToLower(device)
	switch {
	case d == "":
		return ""
	case strings.Contains(d, "iphone"), strings.Contains(d, "ipad"), strings.Contains(d, "mac"):
		return "Apple"
	case strings.Contains(d, "pixel"):
		return "Google"
	case strings.Contains(d, "galaxy"), strings.Contains(d, "samsung"):
		return "Samsung"
	case strings.Contains(d, "huawei"):
		return "Huawei"
	case strings.Contains(d, "xiaomi"), strings.Contains(d, "redmi"):
		return "Xiaomi"
	default:
		return ""
	}
}
