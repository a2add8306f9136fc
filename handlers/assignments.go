// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/readrobin/cliparse"
	"github.com/danielhkuo/readrobin/middleware"
	"github.com/danielhkuo/readrobin/models"
	"github.com/danielhkuo/readrobin/scheduler"
)

type AssignmentHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	sched *scheduler.Scheduler
}

func NewAssignmentHandler(db *sql.DB, cfg cliparse.Config, sched *scheduler.Scheduler) *AssignmentHandler {
	return &AssignmentHandler{db: db, cfg: cfg, sched: sched}
}

// kindResponse writes an error body whose error field is a machine-readable
// kind, so clients can branch on it instead of parsing messages.
func kindResponse(w http.ResponseWriter, statusCode int, kind, message string) {
	middleware.JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   kind,
		Message: message,
	})
}

// NextAssignment handles POST /events/{id}/assignments/next
// Returns 201 when an assignment was created, 200 when the reader's existing
// active assignment is returned unchanged.
func (h *AssignmentHandler) NextAssignment(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if eventID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "event_id is required")
		return
	}

	userID := middleware.ReaderID(r)
	if userID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-Reader-ID header is required")
		return
	}

	asg, created, err := h.sched.Next(r.Context(), eventID, userID, time.Now())
	switch {
	case err == nil:
	case errors.Is(err, scheduler.ErrEventNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
		return
	case errors.Is(err, scheduler.ErrEventInactive):
		kindResponse(w, http.StatusConflict, models.ErrKindEventInactive, "Event is not accepting reads")
		return
	case errors.Is(err, scheduler.ErrNotEligible):
		kindResponse(w, http.StatusForbidden, models.ErrKindNotEligible, "User is not a reader for this event")
		return
	case errors.Is(err, scheduler.ErrNoWorkAvailable):
		kindResponse(w, http.StatusNotFound, models.ErrKindNoWorkAvailable, "No applications left to read")
		return
	case errors.Is(err, scheduler.ErrConsistency):
		kindResponse(w, http.StatusInternalServerError, models.ErrKindConsistencyViolation, err.Error())
		return
	default:
		slog.Error("failed to get next assignment", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to get assignment")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	middleware.JSONResponse(w, status, models.AssignmentResponse{Assignment: asg})
}

// CurrentAssignment handles GET /events/{id}/assignments/current
// The assignment field is null when the reader holds nothing.
func (h *AssignmentHandler) CurrentAssignment(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if eventID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "event_id is required")
		return
	}

	userID := middleware.ReaderID(r)
	if userID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-Reader-ID header is required")
		return
	}

	asg, err := h.sched.Current(r.Context(), eventID, userID)
	if err != nil {
		slog.Error("failed to get current assignment", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to get assignment")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.AssignmentResponse{Assignment: asg})
}

// SkipAssignment handles POST /assignments/{id}/skip
func (h *AssignmentHandler) SkipAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID := r.PathValue("id")
	if assignmentID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "assignment_id is required")
		return
	}

	userID := middleware.ReaderID(r)
	if userID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-Reader-ID header is required")
		return
	}

	err := h.sched.Skip(r.Context(), assignmentID, userID, time.Now())
	if errors.Is(err, scheduler.ErrNoActiveAssignment) {
		kindResponse(w, http.StatusConflict, models.ErrKindNoActiveAssignment, "Assignment is not active")
		return
	}
	if err != nil {
		slog.Error("failed to skip assignment", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to skip assignment")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SkipResponse{
		AssignmentID: assignmentID,
		Message:      "assignment skipped",
	})
}

// SubmitReview handles POST /assignments/{id}/submit
// A duplicate submit of an already-completed assignment returns the original
// result with 200 and adds no credit.
func (h *AssignmentHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	assignmentID := r.PathValue("id")
	if assignmentID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "assignment_id is required")
		return
	}

	userID := middleware.ReaderID(r)
	if userID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-Reader-ID header is required")
		return
	}

	var req models.SubmitReviewRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Scores) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "scores are required")
		return
	}
	if req.ActiveMS < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "active_ms must not be negative")
		return
	}

	in := scheduler.ReviewInput{
		Scores:   req.Scores,
		Comment:  req.Comment,
		ActiveMS: req.ActiveMS,
	}

	result, err := h.sched.Complete(r.Context(), assignmentID, userID, in, time.Now())
	switch {
	case err == nil:
	case errors.Is(err, scheduler.ErrNoActiveAssignment):
		kindResponse(w, http.StatusConflict, models.ErrKindNoActiveAssignment, "Assignment is not active")
		return
	case errors.Is(err, scheduler.ErrInvalidScores):
		// Strip the sentinel prefix; the detail after it names the criterion.
		msg := strings.TrimPrefix(err.Error(), scheduler.ErrInvalidScores.Error()+": ")
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	case errors.Is(err, scheduler.ErrConsistency):
		kindResponse(w, http.StatusInternalServerError, models.ErrKindConsistencyViolation, err.Error())
		return
	default:
		slog.Error("failed to submit review", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit review")
		return
	}

	slog.Info("review submitted",
		"assignment_id", assignmentID,
		"user_id", userID,
		"client_ip", middleware.GetClientIP(r),
		"duplicate", result.Duplicate,
	)

	middleware.JSONResponse(w, http.StatusOK, models.SubmitReviewResponse{
		ReviewID:       result.ReviewID,
		ApplicationID:  result.ApplicationID,
		CompletedReads: result.CompletedReads,
		RequiredReads:  result.RequiredReads,
		Closed:         result.Closed,
		Duplicate:      result.Duplicate,
	})
}
