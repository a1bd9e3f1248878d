package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Saurabh272/HomeSharp-sub002/internal/destination"
	"github.com/Saurabh272/HomeSharp-sub002/internal/domain"
	"github.com/Saurabh272/HomeSharp-sub002/internal/identity"
	"github.com/Saurabh272/HomeSharp-sub002/internal/metrics"
)

type fakeAdapter struct {
	name domain.Destination
	fail bool

	mu    sync.Mutex
	calls []domain.Event
	seen  []string // external ids observed per call
}

func (f *fakeAdapter) Name() domain.Destination { return f.name }

func (f *fakeAdapter) Send(_ context.Context, ev domain.Event, rc *domain.RequestContext) domain.DispatchResult {
	f.mu.Lock()
	f.calls = append(f.calls, ev)
	f.seen = append(f.seen, rc.ExternalID)
	f.mu.Unlock()

	if f.fail {
		return domain.DispatchResult{Destination: f.name, Err: &domain.DispatchError{Message: "boom", StatusCode: 502}}
	}
	return domain.DispatchResult{Destination: f.name, Payload: map[string]any{"sent": ev.EventName}}
}

type fakeStore struct {
	mu      sync.Mutex
	records []domain.TrackerRecord
	err     error
}

func (f *fakeStore) Append(_ context.Context, rec domain.TrackerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

type fakeProfiles struct {
	profile identity.Profile
}

func (f *fakeProfiles) GetProfile(context.Context, string) (identity.Profile, error) {
	return f.profile, nil
}

func (f *fakeProfiles) SetExternalID(context.Context, string, string) error { return nil }

func newTestDispatcher(store EventStore, profiles identity.ProfileStore, adapters ...destination.Adapter) *Dispatcher {
	resolver := identity.NewResolver(profiles, zerolog.Nop())
	return New(adapters, resolver, store, metrics.New())
}

func anonymousContext() domain.RequestContext {
	return domain.RequestContext{ExternalID: "cookie-1", IPAddress: "127.0.0.1", UserAgent: "ua"}
}

func batch(names ...string) []domain.Event {
	events := make([]domain.Event, len(names))
	for i, n := range names {
		events[i] = domain.Event{EventID: "id-" + n, EventName: n, Params: map[string]any{"k": "v"}}
	}
	return events
}

func TestProcessFanOutAndAggregation(t *testing.T) {
	t.Parallel()

	ga := &fakeAdapter{name: domain.DestinationGA}
	ct := &fakeAdapter{name: domain.DestinationCleverTap}
	store := &fakeStore{}
	d := newTestDispatcher(store, &fakeProfiles{}, ga, ct)

	result, err := d.Process(context.Background(), batch("a", "b"), anonymousContext())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Results[domain.DestinationGA]) != 2 {
		t.Errorf("ga results = %d, want 2", len(result.Results[domain.DestinationGA]))
	}
	if len(result.Results[domain.DestinationCleverTap]) != 2 {
		t.Errorf("clevertap results = %d, want 2", len(result.Results[domain.DestinationCleverTap]))
	}
	if len(store.records) != 2 {
		t.Errorf("persisted records = %d, want exactly one per event", len(store.records))
	}
}

func TestProcessFailureIsolation(t *testing.T) {
	t.Parallel()

	ga := &fakeAdapter{name: domain.DestinationGA, fail: true}
	ct := &fakeAdapter{name: domain.DestinationCleverTap}
	fb := &fakeAdapter{name: domain.DestinationFacebook}
	store := &fakeStore{}
	d := newTestDispatcher(store, &fakeProfiles{}, ga, ct, fb)

	result, err := d.Process(context.Background(), batch("a"), anonymousContext())
	if err != nil {
		t.Fatalf("adapter failure must not fail the request: %v", err)
	}

	if res := result.Results[domain.DestinationGA][0]; res.Err == nil {
		t.Error("ga failure not captured")
	}
	for _, dest := range []domain.Destination{domain.DestinationCleverTap, domain.DestinationFacebook} {
		if res := result.Results[dest][0]; res.Err != nil {
			t.Errorf("%s affected by sibling failure: %v", dest, res.Err)
		}
	}
	if len(store.records) != 1 {
		t.Errorf("persisted records = %d, want 1 despite adapter failure", len(store.records))
	}
}

func TestProcessDisabledDestinationAbsent(t *testing.T) {
	t.Parallel()

	// clevertap disabled: not in the adapter set at all
	ga := &fakeAdapter{name: domain.DestinationGA}
	store := &fakeStore{}
	d := newTestDispatcher(store, &fakeProfiles{}, ga)

	result, err := d.Process(context.Background(), batch("a"), anonymousContext())
	if err != nil {
		t.Fatal(err)
	}
	if _, present := result.Results[domain.DestinationCleverTap]; present {
		t.Error("disabled destination produced results")
	}
	if len(result.Results) != 1 {
		t.Errorf("results = %v, want ga only", result.Results)
	}
}

func TestProcessResolvedIdentityEmbeddedInEveryPayload(t *testing.T) {
	t.Parallel()

	ga := &fakeAdapter{name: domain.DestinationGA}
	ct := &fakeAdapter{name: domain.DestinationCleverTap}
	store := &fakeStore{}
	profiles := &fakeProfiles{profile: identity.Profile{ExternalID: "profile-9"}}
	d := newTestDispatcher(store, profiles, ga, ct)

	rc := anonymousContext()
	rc.UserID = "user-1"
	result, err := d.Process(context.Background(), batch("a"), rc)
	if err != nil {
		t.Fatal(err)
	}

	for _, a := range []*fakeAdapter{ga, ct} {
		for _, seen := range a.seen {
			if seen != "profile-9" {
				t.Errorf("%s saw external id %q, want profile value", a.name, seen)
			}
		}
	}
	if result.Cookie == nil || result.Cookie.ExternalID != "profile-9" {
		t.Errorf("cookie update = %v, want correction to profile-9", result.Cookie)
	}
	if store.records[0].ExternalID != "profile-9" {
		t.Errorf("persisted external id = %q, want resolved value", store.records[0].ExternalID)
	}
}

func TestProcessPersistFailurePropagates(t *testing.T) {
	t.Parallel()

	ga := &fakeAdapter{name: domain.DestinationGA}
	store := &fakeStore{err: errors.New("disk full")}
	d := newTestDispatcher(store, &fakeProfiles{}, ga)

	_, err := d.Process(context.Background(), batch("a"), anonymousContext())
	if err == nil {
		t.Fatal("persistence failure must propagate")
	}
}

func TestProcessMergesContextParamsIntoRecord(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	d := newTestDispatcher(store, &fakeProfiles{}, &fakeAdapter{name: domain.DestinationGA})

	_, err := d.Process(context.Background(), batch("a"), anonymousContext())
	if err != nil {
		t.Fatal(err)
	}

	rec := store.records[0]
	if rec.Type != domain.TrackerType {
		t.Errorf("type = %q, want provenance tag", rec.Type)
	}
	if rec.Params["ip_address"] != "127.0.0.1" || rec.Params["user_agent"] != "ua" {
		t.Errorf("context params not merged: %v", rec.Params)
	}
	if rec.Params["k"] != "v" {
		t.Errorf("client params lost: %v", rec.Params)
	}
}

func TestProcessNoEvents(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	d := newTestDispatcher(store, &fakeProfiles{}, &fakeAdapter{name: domain.DestinationGA})

	result, err := d.Process(context.Background(), nil, anonymousContext())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Results) != 0 || len(store.records) != 0 {
		t.Errorf("empty batch produced work: %v", result.Results)
	}
}
