// Package server exposes the workout service as a JSON API.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meltforce/titanlift/internal/coach"
	"github.com/meltforce/titanlift/internal/importer"
	"github.com/meltforce/titanlift/internal/metrics"
	"github.com/meltforce/titanlift/internal/workout"
)

// Options are the optional collaborators of a Server.
type Options struct {
	// APIKey, when set, is required on every mutating route.
	APIKey string

	// Metrics and Gatherer enable request metrics and GET /metrics.
	Metrics  *metrics.Manager
	Gatherer prometheus.Gatherer
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc      *workout.Service
	coach    *coach.Coach
	importer *importer.Importer
	tips     *coach.Tracker
	metrics  *metrics.Manager
	gatherer prometheus.Gatherer
	log      *slog.Logger
	apiKey   string
	router   chi.Router
}

// New creates a new Server with all routes configured. A nil coach serves
// fallbacks only.
func New(svc *workout.Service, c *coach.Coach, log *slog.Logger, opts Options) *Server {
	if log == nil {
		log = slog.Default()
	}
	if c == nil {
		c = coach.New(nil, log, coach.Options{})
	}
	s := &Server{
		svc:      svc,
		coach:    c,
		importer: importer.New(svc, log, false),
		tips:     coach.NewTracker(),
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		log:      log,
		apiKey:   opts.APIKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	if s.metrics != nil {
		s.router.Use(RequestMetrics(s.metrics))
	}
	s.router.Use(Recovery(s.log, s.metrics))
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		// Reads are open; tsnet handles access.
		r.Get("/exercises", s.handleListExercises)
		r.Get("/templates", s.handleListTemplates)
		r.Get("/templates/{id}", s.handleGetTemplate)
		r.Get("/workouts/active", s.handleActiveWorkout)
		r.Get("/workouts/{templateId}", s.handleGetWorkout)
		r.Get("/timer", s.handleTimer)
		r.Get("/rest/{exerciseId}", s.handleRestStatus)
		r.Get("/rest/{exerciseId}/preference", s.handleRestPreference)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/records", s.handleRecords)
		r.Get("/stats", s.handleStats)
		r.Get("/plates", s.handlePlates)
		r.Get("/coach/quote", s.handleQuote)
		r.Get("/coach/tip", s.handleTip)

		r.Group(func(r chi.Router) {
			if s.apiKey != "" {
				r.Use(APIKeyAuth(s.apiKey))
			}

			r.Post("/exercises", s.handleAddExercise)
			r.Put("/exercises", s.handleSaveExercises)

			r.Post("/templates", s.handleCreateTemplate)
			r.Patch("/templates/{id}", s.handleUpdateTemplate)
			r.Delete("/templates/{id}", s.handleDeleteTemplate)
			r.Post("/templates/{id}/exercises", s.handleAddTemplateExercise)
			r.Delete("/templates/{id}/exercises/{exerciseId}", s.handleRemoveTemplateExercise)

			r.Post("/workouts/{templateId}/start", s.handleStartWorkout)
			r.Put("/workouts/{templateId}", s.handleUpdateWorkout)
			r.Delete("/workouts/{templateId}", s.handleAbandonWorkout)
			r.Post("/workouts/{templateId}/finish", s.handleFinishWorkout)
			r.Post("/workouts/{templateId}/exercises/{ex}/sets", s.handleAddSet)
			r.Patch("/workouts/{templateId}/exercises/{ex}/sets/{set}", s.handleUpdateSet)
			r.Delete("/workouts/{templateId}/exercises/{ex}/sets/{set}", s.handleRemoveSet)
			r.Put("/workouts/{templateId}/exercises/{ex}/notes", s.handleSetNotes)
			r.Put("/workouts/{templateId}/exercises/{ex}/name", s.handleRenameExercise)

			r.Post("/timer/start", s.handleTimerStart)
			r.Post("/timer/pause", s.handleTimerPause)
			r.Post("/timer/reset", s.handleTimerReset)

			r.Post("/rest/{exerciseId}", s.handleRestStart)
			r.Delete("/rest/{exerciseId}", s.handleRestCancel)
			r.Put("/rest/{exerciseId}/preference", s.handleSetRestPreference)

			r.Delete("/sessions/{id}", s.handleDeleteSession)
			r.Post("/import/alpha", s.handleAlphaImport)

			r.Post("/coach/scan", s.handleScan)
			r.Post("/coach/scan/template", s.handleScanTemplate)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
