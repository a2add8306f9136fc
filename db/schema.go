// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The schema is written in the dialect subset shared by SQLite and PostgreSQL:
// $N placeholders in queries, no serial columns, timestamps always bound by the
// application. The two partial unique indexes on assignment are load-bearing:
// they are what makes "one active assignment per reader" and "one reader per
// application" hold under concurrent writers.
const schema = `
-- Events
CREATE TABLE IF NOT EXISTS event (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    required_reads INTEGER NOT NULL CHECK (required_reads > 0),
    created_at TIMESTAMP NOT NULL
);

-- Rubric criteria
CREATE TABLE IF NOT EXISTS rubric_criterion (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL REFERENCES event(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    description TEXT,
    scale_min INTEGER NOT NULL,
    scale_max INTEGER NOT NULL,
    position INTEGER NOT NULL,
    UNIQUE (event_id, name)
);

CREATE INDEX IF NOT EXISTS idx_rubric_criterion_event ON rubric_criterion(event_id);

-- Applications
CREATE TABLE IF NOT EXISTS application (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL REFERENCES event(id) ON DELETE CASCADE,
    applicant_ref TEXT NOT NULL,
    completed_reads INTEGER NOT NULL DEFAULT 0 CHECK (completed_reads >= 0),
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_application_event ON application(event_id);

-- Readers (per-event eligibility registry)
CREATE TABLE IF NOT EXISTS reader (
    event_id TEXT NOT NULL REFERENCES event(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    added_at TIMESTAMP NOT NULL,
    PRIMARY KEY (event_id, user_id)
);

-- Assignments (append-only once non-active)
CREATE TABLE IF NOT EXISTS assignment (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL REFERENCES event(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    application_id TEXT NOT NULL REFERENCES application(id) ON DELETE CASCADE,
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed', 'skipped')),
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_assignment_active_reader
    ON assignment(event_id, user_id) WHERE status = 'active';
CREATE UNIQUE INDEX IF NOT EXISTS idx_assignment_active_app
    ON assignment(application_id) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_assignment_event_user ON assignment(event_id, user_id);
CREATE INDEX IF NOT EXISTS idx_assignment_app ON assignment(application_id);

-- Reviews (one row per completed read; doubles as the reviewed-by set)
CREATE TABLE IF NOT EXISTS review (
    id TEXT PRIMARY KEY,
    assignment_id TEXT NOT NULL UNIQUE REFERENCES assignment(id) ON DELETE CASCADE,
    event_id TEXT NOT NULL REFERENCES event(id) ON DELETE CASCADE,
    application_id TEXT NOT NULL REFERENCES application(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    comment TEXT,
    active_ms INTEGER NOT NULL DEFAULT 0,
    submitted_at TIMESTAMP NOT NULL,
    UNIQUE (event_id, application_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_review_application ON review(application_id);
CREATE INDEX IF NOT EXISTS idx_review_event_user ON review(event_id, user_id);

-- Review scores
CREATE TABLE IF NOT EXISTS review_score (
    review_id TEXT NOT NULL REFERENCES review(id) ON DELETE CASCADE,
    criterion_id TEXT NOT NULL REFERENCES rubric_criterion(id) ON DELETE CASCADE,
    value INTEGER NOT NULL,
    PRIMARY KEY (review_id, criterion_id)
);

CREATE INDEX IF NOT EXISTS idx_review_score_criterion ON review_score(criterion_id);
`
