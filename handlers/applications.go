// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/readrobin/auth"
	"github.com/danielhkuo/readrobin/cliparse"
	"github.com/danielhkuo/readrobin/middleware"
	"github.com/danielhkuo/readrobin/models"
)

type ApplicationHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewApplicationHandler(db *sql.DB, cfg cliparse.Config) *ApplicationHandler {
	return &ApplicationHandler{db: db, cfg: cfg}
}

// AddApplication handles POST /events/{id}/applications
func (h *ApplicationHandler) AddApplication(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if eventID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "event_id is required")
		return
	}

	// Validate admin key
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(eventID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	var req models.AddApplicationRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ApplicantRef == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "applicant_ref is required")
		return
	}

	var exists bool
	err := h.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM event WHERE id = $1)`, eventID).Scan(&exists)
	if err != nil {
		slog.Error("failed to query event", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
		return
	}

	appID := auth.NewID()
	_, err = h.db.Exec(`
		INSERT INTO application (id, event_id, applicant_ref, completed_reads, created_at)
		VALUES ($1, $2, $3, 0, $4)
	`, appID, eventID, req.ApplicantRef, time.Now())
	if err != nil {
		slog.Error("failed to insert application", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add application")
		return
	}

	slog.Info("application added", "event_id", eventID, "application_id", appID)

	middleware.JSONResponse(w, http.StatusCreated, models.AddApplicationResponse{
		ApplicationID: appID,
	})
}

// ListApplications handles GET /events/{id}/applications
// Returns every application with its read progress
func (h *ApplicationHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if eventID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "event_id is required")
		return
	}

	// Validate admin key
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(eventID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	var requiredReads int
	err := h.db.QueryRow(`SELECT required_reads FROM event WHERE id = $1`, eventID).Scan(&requiredReads)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		slog.Error("failed to query event", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := h.db.Query(`
		SELECT a.id, a.event_id, a.applicant_ref, a.completed_reads, a.created_at,
		       EXISTS(SELECT 1 FROM assignment act WHERE act.application_id = a.id AND act.status = 'active')
		FROM application a
		WHERE a.event_id = $1
		ORDER BY a.created_at, a.id
	`, eventID)
	if err != nil {
		slog.Error("failed to query applications", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	apps := []models.ApplicationProgress{}
	for rows.Next() {
		var p models.ApplicationProgress
		if err := rows.Scan(&p.ID, &p.EventID, &p.ApplicantRef, &p.CompletedReads, &p.CreatedAt, &p.Assigned); err != nil {
			slog.Error("failed to scan application", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		p.RequiredReads = requiredReads
		p.Closed = p.CompletedReads >= requiredReads
		apps = append(apps, p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read applications", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, apps)
}
