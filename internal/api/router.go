// Package api exposes the signup service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	apperrors "activity-signups/internal/common/errors"
	"activity-signups/internal/common/logger"
	"activity-signups/internal/common/observability"
	"activity-signups/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessCheck reports whether one backing dependency is reachable.
type ReadinessCheck func(ctx context.Context) error

type Dependencies struct {
	Service       *service.Service
	Logger        logger.Logger
	Observability *observability.Observability

	// Checks run on /ready, keyed by dependency name.
	Checks map[string]ReadinessCheck

	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer

	// StaticDir, when set, is served under /static/ and "/" redirects there.
	StaticDir string
}

type handler struct {
	svc      *service.Service
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
	checks   map[string]ReadinessCheck
	gatherer prometheus.Gatherer
}

// NewRouter builds the full HTTP handler, middleware included.
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	h := &handler{
		svc:      deps.Service,
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
		checks:   deps.Checks,
		gatherer: gatherer,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /activities", h.listActivities)
	mux.HandleFunc("POST /activities/{activity}/signup", h.signUp)
	mux.HandleFunc("POST /activities/{activity}/unregister", h.unregister)

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /ready", h.ready)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if deps.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(deps.StaticDir))))
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/static/", http.StatusTemporaryRedirect)
		})
	}

	return chain(mux,
		withRequestID,
		withTracing(deps.Observability),
		withAccessLog(log),
	)
}

func (h *handler) listActivities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListActivities(r.Context()))
}

func (h *handler) signUp(w http.ResponseWriter, r *http.Request) {
	conf, err := h.svc.SignUp(r.Context(), r.PathValue("activity"), r.URL.Query().Get("email"))
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

func (h *handler) unregister(w http.ResponseWriter, r *http.Request) {
	conf, err := h.svc.Unregister(r.Context(), r.PathValue("activity"), r.URL.Query().Get("email"))
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := map[string]string{}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		h.logger.Warn("readiness check failed", map[string]interface{}{"failed": failed})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not_ready",
			"failed": failed,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
