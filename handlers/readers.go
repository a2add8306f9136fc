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
	"github.com/danielhkuo/readrobin/scheduler"
)

type ReaderHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	sched *scheduler.Scheduler
}

func NewReaderHandler(db *sql.DB, cfg cliparse.Config, sched *scheduler.Scheduler) *ReaderHandler {
	return &ReaderHandler{db: db, cfg: cfg, sched: sched}
}

// AddReader handles POST /events/{id}/readers
// Adding an already-registered reader is a no-op reported via is_new.
func (h *ReaderHandler) AddReader(w http.ResponseWriter, r *http.Request) {
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

	var req models.AddReaderRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.UserID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "user_id is required")
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

	res, err := h.db.Exec(`
		INSERT INTO reader (event_id, user_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, user_id) DO NOTHING
	`, eventID, req.UserID, time.Now())
	if err != nil {
		slog.Error("failed to insert reader", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add reader")
		return
	}

	n, err := res.RowsAffected()
	if err != nil {
		slog.Error("failed to read rows affected", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add reader")
		return
	}
	isNew := n > 0

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
		slog.Info("reader added", "event_id", eventID, "user_id", req.UserID)
	}

	middleware.JSONResponse(w, status, models.AddReaderResponse{
		UserID: req.UserID,
		IsNew:  isNew,
	})
}

// RemoveReader handles DELETE /events/{id}/readers/{userId}
// Removal releases the reader's active assignment so the application
// becomes claimable again. Past reviews are kept.
func (h *ReaderHandler) RemoveReader(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	userID := r.PathValue("userId")
	if eventID == "" || userID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "event_id and user_id are required")
		return
	}

	// Validate admin key
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(eventID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	removed, released, err := h.sched.RemoveReader(r.Context(), eventID, userID, time.Now())
	if err != nil {
		slog.Error("failed to remove reader", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to remove reader")
		return
	}
	if !removed {
		middleware.ErrorResponse(w, http.StatusNotFound, "Reader not found")
		return
	}

	slog.Info("reader removed", "event_id", eventID, "user_id", userID, "released_assignment", released)

	middleware.JSONResponse(w, http.StatusOK, map[string]interface{}{
		"user_id":  userID,
		"released": released,
	})
}

// ListReaders handles GET /events/{id}/readers
// Returns each registered reader with progress stats
func (h *ReaderHandler) ListReaders(w http.ResponseWriter, r *http.Request) {
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

	// Average reading time comes from self-reported active_ms on reviews,
	// which excludes time the tab sat idle.
	rows, err := h.db.Query(`
		SELECT rd.user_id,
		       rd.added_at,
		       (SELECT COUNT(*) FROM review rv WHERE rv.event_id = rd.event_id AND rv.user_id = rd.user_id),
		       (SELECT COUNT(*) FROM assignment a WHERE a.event_id = rd.event_id AND a.user_id = rd.user_id AND a.status = 'skipped'),
		       COALESCE((SELECT AVG(rv.active_ms) FROM review rv WHERE rv.event_id = rd.event_id AND rv.user_id = rd.user_id), 0)
		FROM reader rd
		WHERE rd.event_id = $1
		ORDER BY rd.added_at, rd.user_id
	`, eventID)
	if err != nil {
		slog.Error("failed to query readers", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	readers := []models.ReaderStats{}
	for rows.Next() {
		var stats models.ReaderStats
		var avgMS float64
		if err := rows.Scan(&stats.UserID, &stats.AddedAt, &stats.ReadCount, &stats.SkipCount, &avgMS); err != nil {
			slog.Error("failed to scan reader", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		stats.AverageSeconds = avgMS / 1000
		readers = append(readers, stats)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read readers", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, readers)
}
