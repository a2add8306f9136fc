// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/readrobin/cliparse"
	"github.com/danielhkuo/readrobin/handlers"
	"github.com/danielhkuo/readrobin/metrics"
	"github.com/danielhkuo/readrobin/middleware"
	"github.com/danielhkuo/readrobin/scheduler"
)

func NewRouter(db *sql.DB, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	sched := scheduler.New(db)
	eventHandler := handlers.NewEventHandler(db, cfg)
	applicationHandler := handlers.NewApplicationHandler(db, cfg)
	readerHandler := handlers.NewReaderHandler(db, cfg, sched)
	assignmentHandler := handlers.NewAssignmentHandler(db, cfg, sched)
	reviewHandler := handlers.NewReviewHandler(db, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus scrape endpoint
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	// Event management (admin operations)
	mux.HandleFunc("POST /events", middleware.WithLogging("/events", eventHandler.CreateEvent))
	mux.HandleFunc("GET /events/{id}", middleware.WithLogging("/events/{id}", eventHandler.GetEvent))
	mux.HandleFunc("POST /events/{id}/activate", middleware.WithLogging("/events/{id}/activate", eventHandler.ActivateEvent))
	mux.HandleFunc("POST /events/{id}/deactivate", middleware.WithLogging("/events/{id}/deactivate", eventHandler.DeactivateEvent))
	mux.HandleFunc("PUT /events/{id}/config", middleware.WithLogging("/events/{id}/config", eventHandler.UpdateConfig))

	// Application intake (admin)
	mux.HandleFunc("POST /events/{id}/applications", middleware.WithLogging("/events/{id}/applications", applicationHandler.AddApplication))
	mux.HandleFunc("GET /events/{id}/applications", middleware.WithLogging("/events/{id}/applications", applicationHandler.ListApplications))

	// Reader registry (admin)
	mux.HandleFunc("POST /events/{id}/readers", middleware.WithLogging("/events/{id}/readers", readerHandler.AddReader))
	mux.HandleFunc("GET /events/{id}/readers", middleware.WithLogging("/events/{id}/readers", readerHandler.ListReaders))
	mux.HandleFunc("DELETE /events/{id}/readers/{userId}", middleware.WithLogging("/events/{id}/readers/{userId}", readerHandler.RemoveReader))

	// Assignment workflow (readers)
	mux.HandleFunc("POST /events/{id}/assignments/next", middleware.WithLogging("/events/{id}/assignments/next", assignmentHandler.NextAssignment))
	mux.HandleFunc("GET /events/{id}/assignments/current", middleware.WithLogging("/events/{id}/assignments/current", assignmentHandler.CurrentAssignment))
	mux.HandleFunc("POST /assignments/{id}/skip", middleware.WithLogging("/assignments/{id}/skip", assignmentHandler.SkipAssignment))
	mux.HandleFunc("POST /assignments/{id}/submit", middleware.WithLogging("/assignments/{id}/submit", assignmentHandler.SubmitReview))

	// Review retrieval (admin)
	mux.HandleFunc("GET /applications/{id}", middleware.WithLogging("/applications/{id}", reviewHandler.GetApplication))
	mux.HandleFunc("GET /applications/{id}/reviews", middleware.WithLogging("/applications/{id}/reviews", reviewHandler.GetApplicationReviews))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("readrobin API v1"))
	})

	return mux
}
