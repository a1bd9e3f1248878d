// Package dispatch orchestrates the pipeline for one request: identity
// resolution, concurrent destination fan-out, and canonical persistence,
// with partial-failure isolation between destinations.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Saurabh272/HomeSharp-sub002/internal/destination"
	"github.com/Saurabh272/HomeSharp-sub002/internal/domain"
	"github.com/Saurabh272/HomeSharp-sub002/internal/identity"
	"github.com/Saurabh272/HomeSharp-sub002/internal/logging"
	"github.com/Saurabh272/HomeSharp-sub002/internal/metrics"
)

// EventStore persists the canonical record; the one collaborator whose
// failure propagates to the caller.
type EventStore interface {
	Append(ctx context.Context, rec domain.TrackerRecord) error
}

// Result aggregates one request's processing: per-destination dispatch
// results across all events, plus any cookie correction to apply at the
// response boundary.
type Result struct {
	Results map[domain.Destination][]domain.DispatchResult
	Cookie  *domain.CookieUpdate
}

// Dispatcher owns Event/RequestContext/DispatchResult lifecycles for the
// duration of one request. It holds the ordered set of enabled adapters;
// disabled destinations simply are not in the slice.
type Dispatcher struct {
	adapters []destination.Adapter
	resolver *identity.Resolver
	store    EventStore
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(adapters []destination.Adapter, resolver *identity.Resolver, store EventStore, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		adapters: adapters,
		resolver: resolver,
		store:    store,
		metrics:  m,
		now:      time.Now,
	}
}

// Process runs the pipeline for every event of the request. Events run
// concurrently with no ordering guarantee between them; within one event,
// identity resolution strictly precedes fan-out and fan-out precedes
// persistence.
//
// Adapter failures are data in the Result. The returned error is non-nil
// only for persistence failures, which make the whole request fail.
func (d *Dispatcher) Process(ctx context.Context, events []domain.Event, rc domain.RequestContext) (*Result, error) {
	d.metrics.EventsReceived.Add(float64(len(events)))
	agg := &Result{Results: make(map[domain.Destination][]domain.DispatchResult, len(d.adapters))}

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		persistErr error
	)

	for _, ev := range events {
		wg.Add(1)
		go func(ev domain.Event) {
			defer wg.Done()

			results, cookie, err := d.processOne(ctx, ev, rc)

			mu.Lock()
			defer mu.Unlock()
			for _, res := range results {
				agg.Results[res.Destination] = append(agg.Results[res.Destination], res)
			}
			if cookie != nil {
				agg.Cookie = cookie
			}
			if err != nil && persistErr == nil {
				persistErr = err
			}
		}(ev)
	}
	wg.Wait()

	if persistErr != nil {
		return agg, persistErr
	}
	return agg, nil
}

// processOne handles a single event: resolve identity, fan out to every
// enabled adapter concurrently, then persist the canonical record exactly
// once, independent of adapter outcomes.
func (d *Dispatcher) processOne(ctx context.Context, ev domain.Event, rc domain.RequestContext) ([]domain.DispatchResult, *domain.CookieUpdate, error) {
	log := logging.Ctx(ctx)

	// The resolved id must be fixed before fan-out: every outbound payload
	// embeds it. rc is copied per event so adapters share nothing mutable.
	effectiveID, cookie := d.resolver.Resolve(ctx, rc.UserID, rc.ExternalID)
	evCtx := rc
	evCtx.ExternalID = effectiveID

	results := make([]domain.DispatchResult, len(d.adapters))
	var wg sync.WaitGroup
	for i, adapter := range d.adapters {
		wg.Add(1)
		go func(i int, adapter destination.Adapter) {
			defer wg.Done()
			start := d.now()
			results[i] = adapter.Send(ctx, ev, &evCtx)
			d.observe(adapter.Name(), results[i], d.now().Sub(start))
		}(i, adapter)
	}
	wg.Wait()

	for _, res := range results {
		if res.Err != nil {
			log.Warn().
				Str("destination", string(res.Destination)).
				Str("event", ev.EventName).
				Str("error", res.Err.Message).
				Msg("destination dispatch failed")
		}
	}

	if err := d.persist(ctx, ev, evCtx); err != nil {
		d.metrics.PersistFailures.Inc()
		log.Error().Err(err).Str("event_id", ev.EventID).Msg("event persistence failed")
		return results, cookie, fmt.Errorf("persist event %s: %w", ev.EventID, err)
	}
	d.metrics.EventsPersisted.Inc()

	return results, cookie, nil
}

func (d *Dispatcher) observe(dest domain.Destination, res domain.DispatchResult, elapsed time.Duration) {
	outcome := "success"
	if res.Err != nil {
		outcome = "failure"
	}
	d.metrics.DispatchTotal.WithLabelValues(string(dest), outcome).Inc()
	d.metrics.DispatchDuration.WithLabelValues(string(dest)).Observe(elapsed.Seconds())
}

// persist writes the canonical record with the context-derived params
// merged in. The persisted row is the source of truth regardless of which
// providers received copies.
func (d *Dispatcher) persist(ctx context.Context, ev domain.Event, rc domain.RequestContext) error {
	params := make(map[string]any, len(ev.Params)+3)
	for k, v := range ev.Params {
		params[k] = v
	}
	if rc.IPAddress != "" {
		params["ip_address"] = rc.IPAddress
	}
	if rc.UserAgent != "" {
		params["user_agent"] = rc.UserAgent
	}
	if rc.ReferrerURL != "" {
		params["referrer"] = rc.ReferrerURL
	}

	return d.store.Append(ctx, domain.TrackerRecord{
		UserID:     rc.UserID,
		ExternalID: rc.ExternalID,
		EventID:    ev.EventID,
		EventName:  ev.EventName,
		Type:       domain.TrackerType,
		Timestamp:  ev.Time(d.now()),
		Params:     params,
	})
}
