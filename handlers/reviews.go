// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/readrobin/auth"
	"github.com/danielhkuo/readrobin/cliparse"
	"github.com/danielhkuo/readrobin/middleware"
	"github.com/danielhkuo/readrobin/models"
)

type ReviewHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewReviewHandler(db *sql.DB, cfg cliparse.Config) *ReviewHandler {
	return &ReviewHandler{db: db, cfg: cfg}
}

// GetApplication handles GET /applications/{id}
// Returns the application with its read progress. The admin key is checked
// against the event the application belongs to.
func (h *ReviewHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("id")
	if appID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "application_id is required")
		return
	}

	var p models.ApplicationProgress
	err := h.db.QueryRow(`
		SELECT a.id, a.event_id, a.applicant_ref, a.completed_reads, a.created_at,
		       e.required_reads,
		       EXISTS(SELECT 1 FROM assignment act WHERE act.application_id = a.id AND act.status = 'active')
		FROM application a
		JOIN event e ON e.id = a.event_id
		WHERE a.id = $1
	`, appID).Scan(&p.ID, &p.EventID, &p.ApplicantRef, &p.CompletedReads, &p.CreatedAt, &p.RequiredReads, &p.Assigned)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Application not found")
		return
	}
	if err != nil {
		slog.Error("failed to query application", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Validate admin key against the owning event
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(p.EventID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	p.Closed = p.CompletedReads >= p.RequiredReads

	middleware.JSONResponse(w, http.StatusOK, p)
}

// GetApplicationReviews handles GET /applications/{id}/reviews
// Returns the application's reviews with their scores plus per-criterion
// aggregate stats
func (h *ReviewHandler) GetApplicationReviews(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("id")
	if appID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "application_id is required")
		return
	}

	var eventID string
	err := h.db.QueryRow(`SELECT event_id FROM application WHERE id = $1`, appID).Scan(&eventID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Application not found")
		return
	}
	if err != nil {
		slog.Error("failed to query application", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Validate admin key against the owning event
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(eventID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	reviews, err := h.loadReviews(appID)
	if err != nil {
		slog.Error("failed to query reviews", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	stats, err := ComputeCriterionStats(h.db, appID)
	if err != nil {
		slog.Error("failed to compute criterion stats", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ApplicationReviewsResponse{
		ApplicationID: appID,
		Reviews:       reviews,
		Stats:         stats,
	})
}

func (h *ReviewHandler) loadReviews(appID string) ([]models.Review, error) {
	rows, err := h.db.Query(`
		SELECT id, assignment_id, event_id, application_id, user_id, comment, active_ms, submitted_at
		FROM review
		WHERE application_id = $1
		ORDER BY submitted_at, id
	`, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.AssignmentID, &rv.EventID, &rv.ApplicationID,
			&rv.UserID, &rv.Comment, &rv.ActiveMS, &rv.SubmittedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range reviews {
		scores, err := h.loadScores(reviews[i].ID)
		if err != nil {
			return nil, err
		}
		reviews[i].Scores = scores
	}

	return reviews, nil
}

func (h *ReviewHandler) loadScores(reviewID string) (map[string]int, error) {
	rows, err := h.db.Query(`
		SELECT criterion_id, value FROM review_score WHERE review_id = $1
	`, reviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make(map[string]int)
	for rows.Next() {
		var criterionID string
		var value int
		if err := rows.Scan(&criterionID, &value); err != nil {
			return nil, err
		}
		scores[criterionID] = value
	}

	return scores, rows.Err()
}
