package enrich

import (
	"testing"

	"github.com/rs/zerolog"
)

const chromeWindowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func newTestEnricher() *Enricher {
	return New("", "1.2.3", zerolog.Nop())
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		forwardedFor string
		remoteAddr   string
		want         string
	}{
		{"forwarded single", "203.0.113.9", "10.0.0.1:443", "203.0.113.9"},
		{"forwarded chain takes first", "203.0.113.9, 10.0.0.2, 10.0.0.3", "10.0.0.1:443", "203.0.113.9"},
		{"forwarded with spaces", "  203.0.113.9 ,10.0.0.2", "10.0.0.1:443", "203.0.113.9"},
		{"no forwarded header", "", "192.0.2.4:51234", "192.0.2.4"},
		{"remote addr without port", "", "192.0.2.4", "192.0.2.4"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := clientIP(tt.forwardedFor, tt.remoteAddr); got != tt.want {
				t.Errorf("clientIP(%q, %q) = %q, want %q", tt.forwardedFor, tt.remoteAddr, got, tt.want)
			}
		})
	}
}

func TestEnrichParsesUserAgent(t *testing.T) {
	t.Parallel()

	rc := newTestEnricher().Enrich(RawRequest{
		RemoteAddr: "192.0.2.4:51234",
		UserAgent:  chromeWindowsUA,
	})

	if rc.Browser != "Chrome" {
		t.Errorf("browser = %q, want Chrome", rc.Browser)
	}
	if rc.OperatingSystem != "Windows" {
		t.Errorf("os = %q, want Windows", rc.OperatingSystem)
	}
	if rc.DeviceCategory != "desktop" {
		t.Errorf("device category = %q, want desktop", rc.DeviceCategory)
	}
	if rc.OSWithVersion == "Windows" || rc.OSWithVersion == "" {
		// must carry a version suffix for this UA
		t.Errorf("os with version = %q, want version included", rc.OSWithVersion)
	}
	if rc.UserAgent != chromeWindowsUA {
		t.Errorf("user agent not passed through verbatim")
	}
}

func TestEnrichMissingUserAgentYieldsEmptyDeviceFields(t *testing.T) {
	t.Parallel()

	rc := newTestEnricher().Enrich(RawRequest{RemoteAddr: "192.0.2.4:51234"})

	if rc.Browser != "" || rc.DeviceCategory != "" || rc.OperatingSystem != "" || rc.DeviceModel != "" {
		t.Errorf("device fields not empty: %+v", rc)
	}
}

func TestEnrichCarriesIdentityAndReferrerThrough(t *testing.T) {
	t.Parallel()

	rc := newTestEnricher().Enrich(RawRequest{
		RemoteAddr: "192.0.2.4:51234",
		Referrer:   "https://example.com/listings",
		UserID:     "user-1",
		ExternalID: "ext-42",
	})

	if rc.UserID != "user-1" {
		t.Errorf("user id = %q, want carry-through", rc.UserID)
	}
	if rc.ExternalID != "ext-42" {
		t.Errorf("external id = %q, want carry-through", rc.ExternalID)
	}
	if rc.ReferrerURL != "https://example.com/listings" {
		t.Errorf("referrer = %q, want verbatim pass-through", rc.ReferrerURL)
	}
	if rc.AppVersion != "1.2.3" {
		t.Errorf("app version = %q, want static build identifier", rc.AppVersion)
	}
}

func TestEnrichWithoutGeoDatabaseLeavesGeoEmpty(t *testing.T) {
	t.Parallel()

	rc := newTestEnricher().Enrich(RawRequest{RemoteAddr: "8.8.8.8:443"})

	if rc.City != "" || rc.Country != "" {
		t.Errorf("geo fields = (%q, %q), want empty without a database", rc.City, rc.Country)
	}
}

func TestDeviceBrand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		device string
		want   string
	}{
		{"iPhone", "Apple"},
		{"Pixel 8", "Google"},
		{"Galaxy S24", "Samsung"},
		{"", ""},
		{"SomethingObscure", ""},
	}
	for _, tt := range tests {
		if got := deviceBrand(tt.device); got != tt.want {
			t.Errorf("deviceBrand(%q) = %q, want %q", tt.device, got, tt.want)
		}
	}
}
