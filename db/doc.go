// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connection and schema creation.

# Opening a Connection

Open selects the driver from the configured database type:

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

SQLite (modernc.org/sqlite) is the default and needs no external service;
PostgreSQL (lib/pq) is used for multi-process deployments.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

The schema includes:

  - event: event metadata and required-reads configuration
  - rubric_criterion: scored dimensions of an event's rubric
  - application: review targets with completed-reads counters
  - reader: per-event reader eligibility
  - assignment: one reader's claim on one application (active/completed/skipped)
  - review: completed reads; also the reviewed-by set
  - review_score: per-criterion values for a review

# Relationships

	event 1──* rubric_criterion
	event 1──* application
	event 1──* reader
	event 1──* assignment
	application 1──* assignment
	assignment 1──1 review
	review 1──* review_score

All foreign keys use ON DELETE CASCADE.

# Invariant-bearing Indexes

Two partial unique indexes enforce the scheduling invariants at the store level,
so they hold across concurrent server processes:

  - assignment(event_id, user_id) WHERE status = 'active':
    a reader holds at most one active assignment per event.
  - assignment(application_id) WHERE status = 'active':
    an application is held by at most one reader at a time.

The UNIQUE (event_id, application_id, user_id) constraint on review is the
reviewed-by set: a reader can complete each application at most once, and the
set cannot drift from the review records because they are the same rows.
*/
package db
