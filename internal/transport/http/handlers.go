package transporthttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Saurabh272/HomeSharp-sub002/internal/config"
	"github.com/Saurabh272/HomeSharp-sub002/internal/dispatch"
	"github.com/Saurabh272/HomeSharp-sub002/internal/domain"
	"github.com/Saurabh272/HomeSharp-sub002/internal/enrich"
	"github.com/Saurabh272/HomeSharp-sub002/internal/loan"
	"github.com/Saurabh272/HomeSharp-sub002/internal/logging"
	"github.com/Saurabh272/HomeSharp-sub002/internal/savedsearch"
)

// Pipeline is the dispatcher as the handlers see it.
type Pipeline interface {
	Process(ctx context.Context, events []domain.Event, rc domain.RequestContext) (*dispatch.Result, error)
}

// SearchStore is the saved-search repository as the handlers see it.
type SearchStore interface {
	Create(ctx context.Context, userID, name string, filters map[string]any) (savedsearch.SavedSearch, error)
	ListByUser(ctx context.Context, userID string) ([]savedsearch.SavedSearch, error)
	Get(ctx context.Context, userID, id string) (savedsearch.SavedSearch, error)
	Delete(ctx context.Context, userID, id string) error
}

// ReadyChecker reports whether the canonical store is reachable.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

type Server struct {
	Cfg      *config.Config
	Enricher *enrich.Enricher
	Pipeline Pipeline
	Searches SearchStore
	DB       ReadyChecker
	Metrics  http.Handler
	Log      zerolog.Logger
}

func decodeJSONStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// --- Health ---

func (s *Server) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.DB.Ready(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database not reachable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// --- Track ---

type trackRequest struct {
	Events []domain.Event `json:"events"`
}

// HandleTrack runs the core pipeline. Destination failures are data in the
// response; only malformed input or a persistence failure turns into an
// HTTP error.
func (s *Server) HandleTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if errs := domain.ValidateEvents(req.Events); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, fe := range errs {
			msgs[i] = fe.Error()
		}
		writeError(w, http.StatusBadRequest, strings.Join(msgs, "; "))
		return
	}

	ctx := r.Context()
	rc := s.Enricher.Enrich(enrich.RawRequest{
		RemoteAddr:   r.RemoteAddr,
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
		UserAgent:    r.UserAgent(),
		Referrer:     r.Referer(),
		UserID:       userIDFrom(ctx),
		ExternalID:   externalIDFrom(ctx),
	})

	result, err := s.Pipeline.Process(ctx, req.Events, rc)

	// Cookie corrections apply even when persistence failed: the profile's
	// id is authoritative either way.
	if result != nil && result.Cookie != nil {
		setExternalIDCookie(w, result.Cookie.ExternalID)
	}

	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("track pipeline failed")
		writeError(w, http.StatusInternalServerError, "event processing failed")
		return
	}

	writeSuccess(w, destinationResponses(result))
}

// destinationResponses groups results by destination under the
// <destination>Response keys. Disabled destinations contribute no key.
func destinationResponses(result *dispatch.Result) map[string]any {
	message := make(map[string]any, len(result.Results))
	for dest, results := range result.Results {
		entries := make([]any, 0, len(results))
		for _, res := range results {
			if res.Err != nil {
				entries = append(entries, res.Err)
				continue
			}
			entries = append(entries, res.Payload)
		}
		message[string(dest)+"Response"] = entries
	}
	return message
}

// --- EMI ---

func (s *Server) HandleEMI(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	principal, err := strconv.ParseFloat(q.Get("principal"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "principal must be a number")
		return
	}
	rate, err := strconv.ParseFloat(q.Get("rate"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "rate must be a number")
		return
	}
	months, err := strconv.Atoi(q.Get("months"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "months must be an integer")
		return
	}

	emi, err := loan.Monthly(principal, rate, months)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	message := map[string]any{"emi": emi}
	if q.Get("schedule") == "true" {
		schedule, err := loan.Schedule(principal, rate, months)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		message["schedule"] = schedule
	}
	writeSuccess(w, message)
}

// --- Saved searches ---

type savedSearchRequest struct {
	Name    string         `json:"name"`
	Filters map[string]any `json:"filters,omitempty"`
}

func (s *Server) HandleCreateSavedSearch(w http.ResponseWriter, r *http.Request) {
	var req savedSearchRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name: required")
		return
	}

	search, err := s.Searches.Create(r.Context(), userIDFrom(r.Context()), req.Name, req.Filters)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("create saved search failed")
		writeError(w, http.StatusInternalServerError, "could not save search")
		return
	}
	writeSuccess(w, search)
}

func (s *Server) HandleListSavedSearches(w http.ResponseWriter, r *http.Request) {
	searches, err := s.Searches.ListByUser(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("list saved searches failed")
		writeError(w, http.StatusInternalServerError, "could not list searches")
		return
	}
	if searches == nil {
		searches = []savedsearch.SavedSearch{}
	}
	writeSuccess(w, searches)
}

func (s *Server) HandleGetSavedSearch(w http.ResponseWriter, r *http.Request) {
	search, err := s.Searches.Get(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"))
	if errors.Is(err, savedsearch.ErrNotFound) {
		writeError(w, http.StatusNotFound, "saved search not found")
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("get saved search failed")
		writeError(w, http.StatusInternalServerError, "could not load search")
		return
	}
	writeSuccess(w, search)
}

func (s *Server) HandleDeleteSavedSearch(w http.ResponseWriter, r *http.Request) {
	err := s.Searches.Delete(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"))
	if errors.Is(err, savedsearch.ErrNotFound) {
		writeError(w, http.StatusNotFound, "saved search not found")
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("delete saved search failed")
		writeError(w, http.StatusInternalServerError, "could not delete search")
		return
	}
	writeSuccess(w, map[string]any{"deleted": true})
}

// --- Router ---

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger)
	r.Use(Recoverer)

	r.Get("/healthz", s.HandleHealthz)
	r.Get("/readyz", s.HandleReadyz)
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(BodyLimit(s.Cfg.HTTP.MaxBodyBytes))
			r.Use(RequireJSON)
			r.Use(BearerAuth(s.Cfg.Auth.Secret))
			r.Use(VisitorCookie)
			r.Post("/events", s.HandleTrack)
		})

		r.Get("/loans/emi", s.HandleEMI)

		r.Route("/saved-searches", func(r chi.Router) {
			r.Use(BodyLimit(s.Cfg.HTTP.MaxBodyBytes))
			r.Use(RequireJSON)
			r.Use(BearerAuth(s.Cfg.Auth.Secret))
			r.Use(RequireAuth)
			r.Post("/", s.HandleCreateSavedSearch)
			r.Get("/", s.HandleListSavedSearches)
			r.Get("/{id}", s.HandleGetSavedSearch)
			r.Delete("/{id}", s.HandleDeleteSavedSearch)
		})
	})

	return r
}
