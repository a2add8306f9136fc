// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Read Robin API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - EventHandler: Event lifecycle (create, activate, deactivate, config)
  - ApplicationHandler: Application intake and progress listing
  - ReaderHandler: Reader roster management and per-reader stats
  - AssignmentHandler: Assignment pickup, skip, and review submission
  - ReviewHandler: Application detail and collected reviews

Handlers are created via constructor functions that accept *sql.DB and Config;
the assignment and reader handlers also take a *scheduler.Scheduler:

	eventHandler := handlers.NewEventHandler(db, cfg)
	assignmentHandler := handlers.NewAssignmentHandler(db, cfg, sched)

# Event Lifecycle

Events start inactive and are toggled by the organizer:

	POST /events                  → CreateEvent (returns admin_key)
	POST /events/{id}/activate    → ActivateEvent
	POST /events/{id}/deactivate  → DeactivateEvent
	PUT  /events/{id}/config      → UpdateConfig (rubric replaceable until reviews exist)

Admin operations require the X-Admin-Key header.

# Review Flow

Readers interact with one assignment at a time:

	POST /events/{id}/assignments/next    → NextAssignment (pick or return held)
	GET  /events/{id}/assignments/current → CurrentAssignment
	POST /assignments/{id}/skip           → SkipAssignment
	POST /assignments/{id}/submit         → SubmitReview

Reader operations require the X-Reader-ID header. The pick ordering and all
hold/duplicate invariants live in the scheduler package; handlers translate
its sentinel errors into status codes and error kinds.

# Score Aggregation

Per-criterion aggregates are implemented in stats.go:

	stats, err := ComputeCriterionStats(db, appID)

This computes mean, median, P10, and P90 over the submitted scores for each
rubric criterion, in rubric position order.
*/
package handlers
