// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Read Robin API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg)

# Endpoints

Health and observability:

	GET /health
	GET /metrics

Event management (admin, requires X-Admin-Key):

	POST /events                   - Create event with rubric
	GET  /events/{id}              - Event info and rubric (no key)
	POST /events/{id}/activate     - Open for reading
	POST /events/{id}/deactivate   - Stop new assignments
	PUT  /events/{id}/config       - Update required reads / rubric

Intake and registry (admin):

	POST   /events/{id}/applications       - Add application
	GET    /events/{id}/applications       - Progress list
	POST   /events/{id}/readers            - Register reader
	GET    /events/{id}/readers            - Per-reader stats
	DELETE /events/{id}/readers/{userId}   - Remove reader, release assignment

Assignment workflow (reader, requires X-Reader-ID):

	POST /events/{id}/assignments/next     - Get or create assignment
	GET  /events/{id}/assignments/current  - Poll current assignment
	POST /assignments/{id}/skip            - Release without credit
	POST /assignments/{id}/submit          - Submit review, credit the read

Review retrieval (admin):

	GET /applications/{id}          - Application with progress
	GET /applications/{id}/reviews  - Reviews, scores, per-criterion stats

# Handler Initialization

The router creates one scheduler and injects it with the database connection
and configuration:

	sched := scheduler.New(db)
	assignmentHandler := handlers.NewAssignmentHandler(db, cfg, sched)

All handlers receive the database connection and configuration.
*/
package router
