// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielhkuo/readrobin/auth"
	"github.com/danielhkuo/readrobin/metrics"
	"github.com/danielhkuo/readrobin/models"
)

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrEventInactive      = errors.New("event is not active")
	ErrNotEligible        = errors.New("user is not a reader for this event")
	ErrNoWorkAvailable    = errors.New("no eligible application available")
	ErrNoActiveAssignment = errors.New("no active assignment")
	ErrInvalidScores      = errors.New("invalid scores")

	// ErrConsistency means the review records and the assignment ledger
	// disagree. It is never resolved silently: the caller surfaces it and the
	// operator investigates.
	ErrConsistency = errors.New("consistency violation between reviews and assignments")
)

// How many times Next retries candidate selection after losing an insert race
// to a concurrent reader.
const maxPickAttempts = 5

// Scheduler hands each reader one application at a time. Every mutation runs
// as a single database transaction; the store's unique indexes, not in-process
// locks, are what keep concurrent server processes consistent.
type Scheduler struct {
	db *sql.DB
}

func New(db *sql.DB) *Scheduler {
	return &Scheduler{db: db}
}

// ReviewInput is a reader's submitted review for their active assignment.
type ReviewInput struct {
	Scores   map[string]int // criterion ID -> value on that criterion's scale
	Comment  string
	ActiveMS int64
}

// CompleteResult reports the application's read progress after a completion.
// Duplicate is set when the assignment had already been completed and the
// stored outcome was returned instead of a second credit.
type CompleteResult struct {
	ReviewID       string
	ApplicationID  string
	CompletedReads int
	RequiredReads  int
	Closed         bool
	Duplicate      bool
}

// Next returns the reader's current assignment, or selects an application and
// creates a new one. The returned bool reports whether an assignment was
// created by this call. Calling Next again without completing or skipping
// returns the same assignment unchanged.
func (s *Scheduler) Next(ctx context.Context, eventID, userID string, now time.Time) (*models.Assignment, bool, error) {
	for attempt := 0; attempt < maxPickAttempts; attempt++ {
		asg, created, err := s.tryNext(ctx, eventID, userID, now)
		if err != nil && isUniqueViolation(err) {
			// Lost the insert race: either another process created an
			// assignment for this reader (found on retry) or another reader
			// claimed the picked application (reselect).
			continue
		}
		if err == ErrNoWorkAvailable {
			metrics.RecordNoWork()
		}
		return asg, created, err
	}
	return nil, false, fmt.Errorf("assignment contention not resolved after %d attempts", maxPickAttempts)
}

func (s *Scheduler) tryNext(ctx context.Context, eventID, userID string, now time.Time) (*models.Assignment, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var active bool
	var requiredReads int
	err = tx.QueryRowContext(ctx, `
		SELECT active, required_reads FROM event WHERE id = $1
	`, eventID).Scan(&active, &requiredReads)
	if err == sql.ErrNoRows {
		return nil, false, ErrEventNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query event: %w", err)
	}
	if !active {
		return nil, false, ErrEventInactive
	}

	var eligible bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM reader WHERE event_id = $1 AND user_id = $2
		)
	`, eventID, userID).Scan(&eligible)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check reader eligibility: %w", err)
	}
	if !eligible {
		return nil, false, ErrNotEligible
	}

	// Idempotent retry: an existing active assignment is returned unchanged.
	existing, err := activeAssignment(ctx, tx, eventID, userID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		var reviewed bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM review
				WHERE event_id = $1 AND application_id = $2 AND user_id = $3
			)
		`, eventID, existing.ApplicationID, userID).Scan(&reviewed)
		if err != nil {
			return nil, false, fmt.Errorf("failed to check reviewed set: %w", err)
		}
		if reviewed {
			metrics.RecordConsistencyViolation()
			slog.Error("active assignment targets an already-reviewed application",
				"assignment_id", existing.ID,
				"user_id", userID,
				"application_id", existing.ApplicationID,
			)
			return nil, false, fmt.Errorf("%w: assignment %s targets application %s already reviewed by user %s",
				ErrConsistency, existing.ID, existing.ApplicationID, userID)
		}
		return existing, false, nil
	}

	// Candidate selection. Exclusions: closed applications, applications this
	// reader already reviewed, applications another reader currently holds.
	// Order: applications this reader previously skipped go last, then fewest
	// completed reads, then oldest first. The order is a deterministic total
	// order so no application starves.
	var appID string
	err = tx.QueryRowContext(ctx, `
		SELECT a.id
		FROM application a
		WHERE a.event_id = $1
		  AND a.completed_reads < $2
		  AND NOT EXISTS (
			SELECT 1 FROM review r
			WHERE r.application_id = a.id AND r.user_id = $3
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM assignment act
			WHERE act.application_id = a.id AND act.status = 'active'
		  )
		ORDER BY
		  CASE WHEN EXISTS (
			SELECT 1 FROM assignment sk
			WHERE sk.application_id = a.id AND sk.user_id = $3 AND sk.status = 'skipped'
		  ) THEN 1 ELSE 0 END,
		  a.completed_reads,
		  a.created_at,
		  a.id
		LIMIT 1
	`, eventID, requiredReads, userID).Scan(&appID)
	if err == sql.ErrNoRows {
		return nil, false, ErrNoWorkAvailable
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to select candidate application: %w", err)
	}

	asg := models.Assignment{
		ID:            auth.NewID(),
		EventID:       eventID,
		UserID:        userID,
		ApplicationID: appID,
		Status:        models.StatusActive,
		StartTime:     now,
	}

	// The partial unique indexes on assignment are the arbiter here: a
	// concurrent claim of the same application, or a concurrent request by
	// the same reader, surfaces as a unique violation and Next retries.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO assignment (id, event_id, user_id, application_id, status, start_time)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, asg.ID, asg.EventID, asg.UserID, asg.ApplicationID, asg.Status, asg.StartTime)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	metrics.RecordAssignmentCreated()
	slog.Info("assignment created",
		"assignment_id", asg.ID,
		"event_id", eventID,
		"user_id", userID,
		"application_id", appID,
	)

	return &asg, true, nil
}

// Current returns the reader's active assignment for the event, or nil.
func (s *Scheduler) Current(ctx context.Context, eventID, userID string) (*models.Assignment, error) {
	return activeAssignment(ctx, s.db, eventID, userID)
}

// Skip releases the reader's active assignment without credit. The
// application stays eligible for this reader; it just sorts behind
// never-skipped candidates on the next request.
func (s *Scheduler) Skip(ctx context.Context, assignmentID, userID string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE assignment
		SET status = $1, end_time = $2
		WHERE id = $3 AND user_id = $4 AND status = $5
	`, models.StatusSkipped, now, assignmentID, userID, models.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to skip assignment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNoActiveAssignment
	}

	metrics.RecordAssignmentSkipped()
	slog.Info("assignment skipped", "assignment_id", assignmentID, "user_id", userID)

	return nil
}

// Complete records the review, marks the assignment completed, and increments
// the application's completed-reads counter in one transaction, so the
// reviewed-by set can never diverge from the review records. A retry of an
// already-completed assignment returns the original result with Duplicate set
// and increments nothing.
func (s *Scheduler) Complete(ctx context.Context, assignmentID, userID string, in ReviewInput, now time.Time) (*CompleteResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var asg models.Assignment
	err = tx.QueryRowContext(ctx, `
		SELECT id, event_id, user_id, application_id, status
		FROM assignment
		WHERE id = $1
	`, assignmentID).Scan(&asg.ID, &asg.EventID, &asg.UserID, &asg.ApplicationID, &asg.Status)
	if err == sql.ErrNoRows {
		return nil, ErrNoActiveAssignment
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment: %w", err)
	}
	if asg.UserID != userID {
		return nil, ErrNoActiveAssignment
	}

	switch asg.Status {
	case models.StatusCompleted:
		return completedResult(ctx, tx, assignmentID)
	case models.StatusSkipped:
		return nil, ErrNoActiveAssignment
	}

	var requiredReads int
	err = tx.QueryRowContext(ctx, `
		SELECT required_reads FROM event WHERE id = $1
	`, asg.EventID).Scan(&requiredReads)
	if err != nil {
		return nil, fmt.Errorf("failed to query event: %w", err)
	}

	// The assignment is active, so no review may exist for this pair yet. If
	// one does, the registry and the ledger have desynced.
	var reviewed bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM review
			WHERE event_id = $1 AND application_id = $2 AND user_id = $3
		)
	`, asg.EventID, asg.ApplicationID, userID).Scan(&reviewed)
	if err != nil {
		return nil, fmt.Errorf("failed to check reviewed set: %w", err)
	}
	if reviewed {
		metrics.RecordConsistencyViolation()
		slog.Error("review already exists for active assignment",
			"assignment_id", assignmentID,
			"user_id", userID,
			"application_id", asg.ApplicationID,
		)
		return nil, fmt.Errorf("%w: review already recorded for application %s by user %s while assignment %s is active",
			ErrConsistency, asg.ApplicationID, userID, assignmentID)
	}

	if err := validateScores(ctx, tx, asg.EventID, in.Scores); err != nil {
		return nil, err
	}

	// Close the assignment first. Zero rows means another process completed
	// it between our read and this write; recover by returning its result.
	res, err := tx.ExecContext(ctx, `
		UPDATE assignment
		SET status = $1, end_time = $2
		WHERE id = $3 AND status = $4
	`, models.StatusCompleted, now, assignmentID, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to close assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return completedResult(ctx, s.db, assignmentID)
	}

	reviewID := auth.NewID()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO review (id, assignment_id, event_id, application_id, user_id, comment, active_ms, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, reviewID, assignmentID, asg.EventID, asg.ApplicationID, userID, in.Comment, in.ActiveMS, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert review: %w", err)
	}

	for criterionID, value := range in.Scores {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO review_score (review_id, criterion_id, value)
			VALUES ($1, $2, $3)
		`, reviewID, criterionID, value)
		if err != nil {
			return nil, fmt.Errorf("failed to insert score: %w", err)
		}
	}

	// Guarded increment: a closed application must never gain another read.
	// With the one-holder-per-application index this cannot fail; if it does,
	// an invariant broke somewhere else and we refuse to paper over it.
	res, err = tx.ExecContext(ctx, `
		UPDATE application
		SET completed_reads = completed_reads + 1
		WHERE id = $1 AND completed_reads < $2
	`, asg.ApplicationID, requiredReads)
	if err != nil {
		return nil, fmt.Errorf("failed to increment completed reads: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		metrics.RecordConsistencyViolation()
		slog.Error("active assignment held on a closed application",
			"assignment_id", assignmentID,
			"application_id", asg.ApplicationID,
		)
		return nil, fmt.Errorf("%w: application %s already at required reads with assignment %s active",
			ErrConsistency, asg.ApplicationID, assignmentID)
	}

	var completedReads int
	err = tx.QueryRowContext(ctx, `
		SELECT completed_reads FROM application WHERE id = $1
	`, asg.ApplicationID).Scan(&completedReads)
	if err != nil {
		return nil, fmt.Errorf("failed to read back completed reads: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit review: %w", err)
	}

	metrics.RecordAssignmentCompleted()
	slog.Info("assignment completed",
		"assignment_id", assignmentID,
		"review_id", reviewID,
		"application_id", asg.ApplicationID,
		"completed_reads", completedReads,
		"required_reads", requiredReads,
	)

	return &CompleteResult{
		ReviewID:       reviewID,
		ApplicationID:  asg.ApplicationID,
		CompletedReads: completedReads,
		RequiredReads:  requiredReads,
		Closed:         completedReads >= requiredReads,
	}, nil
}

// RemoveReader drops the user from the event's reader registry and releases
// any active assignment they hold, so the application is not stuck awaiting a
// reviewer who can no longer act. Returns whether a registry row was removed
// and whether an assignment was released.
func (s *Scheduler) RemoveReader(ctx context.Context, eventID, userID string, now time.Time) (bool, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM reader WHERE event_id = $1 AND user_id = $2
	`, eventID, userID)
	if err != nil {
		return false, false, fmt.Errorf("failed to delete reader: %w", err)
	}
	deleted, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `
		UPDATE assignment
		SET status = $1, end_time = $2
		WHERE event_id = $3 AND user_id = $4 AND status = $5
	`, models.StatusSkipped, now, eventID, userID, models.StatusActive)
	if err != nil {
		return false, false, fmt.Errorf("failed to release assignment: %w", err)
	}
	released, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return false, false, fmt.Errorf("failed to commit reader removal: %w", err)
	}

	if released > 0 {
		metrics.RecordAssignmentSkipped()
		slog.Info("released active assignment of removed reader", "event_id", eventID, "user_id", userID)
	}

	return deleted > 0, released > 0, nil
}

// ReapStale skips active assignments older than the given age. Extension
// point for abandoned sessions; the policy (whether and how often to run it)
// belongs to the caller.
func (s *Scheduler) ReapStale(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-olderThan)

	res, err := s.db.ExecContext(ctx, `
		UPDATE assignment
		SET status = $1, end_time = $2
		WHERE status = $3 AND start_time < $4
	`, models.StatusSkipped, now, models.StatusActive, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reap stale assignments: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if n > 0 {
		metrics.RecordAssignmentsReaped(int(n))
		slog.Info("reaped stale assignments", "count", n, "cutoff", cutoff)
	}

	return int(n), nil
}

// querier is the subset of *sql.DB and *sql.Tx the read helpers need.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func activeAssignment(ctx context.Context, q querier, eventID, userID string) (*models.Assignment, error) {
	var asg models.Assignment
	err := q.QueryRowContext(ctx, `
		SELECT id, event_id, user_id, application_id, status, start_time
		FROM assignment
		WHERE event_id = $1 AND user_id = $2 AND status = $3
	`, eventID, userID, models.StatusActive).Scan(
		&asg.ID, &asg.EventID, &asg.UserID, &asg.ApplicationID, &asg.Status, &asg.StartTime,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active assignment: %w", err)
	}
	return &asg, nil
}

// completedResult loads the stored outcome of an already-completed assignment
// so a client retry gets the original response instead of a second credit.
func completedResult(ctx context.Context, q querier, assignmentID string) (*CompleteResult, error) {
	var out CompleteResult
	err := q.QueryRowContext(ctx, `
		SELECT r.id, r.application_id, a.completed_reads, e.required_reads
		FROM review r
		JOIN application a ON a.id = r.application_id
		JOIN event e ON e.id = r.event_id
		WHERE r.assignment_id = $1
	`, assignmentID).Scan(&out.ReviewID, &out.ApplicationID, &out.CompletedReads, &out.RequiredReads)
	if err == sql.ErrNoRows {
		// Completed assignment without a review row: the atomic unit broke.
		metrics.RecordConsistencyViolation()
		slog.Error("completed assignment has no review record", "assignment_id", assignmentID)
		return nil, fmt.Errorf("%w: completed assignment %s has no review record", ErrConsistency, assignmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load completed review: %w", err)
	}

	out.Closed = out.CompletedReads >= out.RequiredReads
	out.Duplicate = true
	return &out, nil
}

func validateScores(ctx context.Context, q querier, eventID string, scores map[string]int) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, scale_min, scale_max
		FROM rubric_criterion
		WHERE event_id = $1
	`, eventID)
	if err != nil {
		return fmt.Errorf("failed to query rubric: %w", err)
	}
	defer rows.Close()

	type scale struct {
		name     string
		min, max int
	}
	rubric := make(map[string]scale)
	for rows.Next() {
		var id string
		var sc scale
		if err := rows.Scan(&id, &sc.name, &sc.min, &sc.max); err != nil {
			return fmt.Errorf("failed to scan criterion: %w", err)
		}
		rubric[id] = sc
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read rubric: %w", err)
	}

	for id, sc := range rubric {
		value, ok := scores[id]
		if !ok {
			return fmt.Errorf("%w: missing score for criterion %q", ErrInvalidScores, sc.name)
		}
		if value < sc.min || value > sc.max {
			return fmt.Errorf("%w: score %d for criterion %q outside scale [%d, %d]",
				ErrInvalidScores, value, sc.name, sc.min, sc.max)
		}
	}
	for id := range scores {
		if _, ok := rubric[id]; !ok {
			return fmt.Errorf("%w: unknown criterion %q", ErrInvalidScores, id)
		}
	}

	return nil
}

// isUniqueViolation matches unique constraint errors from both supported
// drivers (modernc.org/sqlite and lib/pq).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
