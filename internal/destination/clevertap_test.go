package destination

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Saurabh272/HomeSharp-sub002/internal/config"
	"github.com/Saurabh272/HomeSharp-sub002/internal/domain"
)

func TestCleverTapBuildPayload(t *testing.T) {
	t.Parallel()

	ct := NewCleverTap(config.CleverTapConfig{}, time.Second)
	payload := ct.buildPayload(testEvent(), testContext())

	if len(payload) != 1 {
		t.Fatalf("payload length = %d, want 1", len(payload))
	}
	entry := payload[0]
	if entry["identity"] != "123456" {
		t.Errorf("identity = %v, want external id", entry["identity"])
	}
	if entry["type"] != cleverTapEventType {
		t.Errorf("type = %v, want %q", entry["type"], cleverTapEventType)
	}
	if entry["evtName"] != "test_event" {
		t.Errorf("evtName = %v, want raw event name", entry["evtName"])
	}
	data := entry["evtData"].(map[string]any)
	if data["card_mode"] != "card_mode" {
		t.Errorf("evtData = %v, want client params verbatim", data)
	}
}

func TestCleverTapSendWrapsAndAuthenticates(t *testing.T) {
	t.Parallel()

	var (
		gotAccount  string
		gotPasscode string
		gotBody     map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccount = r.Header.Get("X-CleverTap-Account-Id")
		gotPasscode = r.Header.Get("X-CleverTap-Passcode")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"status":"success","processed":1}`))
	}))
	defer srv.Close()

	ct := NewCleverTap(config.CleverTapConfig{URL: srv.URL, AccountID: "acct", Passcode: "pass"}, time.Second)
	res := ct.Send(context.Background(), testEvent(), testContext())

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if gotAccount != "acct" || gotPasscode != "pass" {
		t.Errorf("auth headers = (%q, %q)", gotAccount, gotPasscode)
	}
	d, ok := gotBody["d"].([]any)
	if !ok || len(d) != 1 {
		t.Fatalf("body not wrapped as {d: [payload]}: %v", gotBody)
	}

	// provider response is surfaced as the result payload
	resp, ok := res.Payload.(map[string]any)
	if !ok || resp["status"] != "success" {
		t.Errorf("payload = %v, want provider response", res.Payload)
	}
}

func TestCleverTapSendCapturesNetworkError(t *testing.T) {
	t.Parallel()

	ct := NewCleverTap(config.CleverTapConfig{URL: "http://127.0.0.1:1"}, 100*time.Millisecond)
	res := ct.Send(context.Background(), testEvent(), testContext())

	if res.Err == nil {
		t.Fatal("expected captured network error")
	}
	if res.Destination != domain.DestinationCleverTap {
		t.Errorf("destination = %v", res.Destination)
	}
}
