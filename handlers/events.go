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

type EventHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewEventHandler(db *sql.DB, cfg cliparse.Config) *EventHandler {
	return &EventHandler{db: db, cfg: cfg}
}

const defaultRequiredReads = 3

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.RequiredReads == 0 {
		req.RequiredReads = defaultRequiredReads
	}
	if req.RequiredReads < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "required_reads must be at least 1")
		return
	}
	if msg := validateRubric(req.Rubric); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	eventID := auth.NewID()
	adminKey := auth.GenerateAdminKey(eventID, h.cfg.AdminKeySalt)

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create event")
		return
	}
	defer tx.Rollback()

	// Events start inactive; the organizer activates once setup is done.
	_, err = tx.Exec(`
		INSERT INTO event (id, name, active, required_reads, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, eventID, req.Name, false, req.RequiredReads, time.Now())
	if err != nil {
		slog.Error("failed to insert event", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create event")
		return
	}

	if err := insertRubric(tx, eventID, req.Rubric); err != nil {
		slog.Error("failed to insert rubric", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create event")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit event", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create event")
		return
	}

	slog.Info("event created", "event_id", eventID, "name", req.Name, "required_reads", req.RequiredReads)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateEventResponse{
		EventID:  eventID,
		AdminKey: adminKey,
	})
}

// GetEvent handles GET /events/{id}
// Returns event details with the rubric. No key required: readers need the
// rubric to score, and the event ID itself is unguessable.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	if eventID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "event_id is required")
		return
	}

	var event models.Event
	err := h.db.QueryRow(`
		SELECT id, name, active, required_reads, created_at
		FROM event
		WHERE id = $1
	`, eventID).Scan(&event.ID, &event.Name, &event.Active, &event.RequiredReads, &event.CreatedAt)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		slog.Error("failed to query event", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rubric, err := h.loadRubric(eventID)
	if err != nil {
		slog.Error("failed to query rubric", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.EventWithRubric{
		Event:  event,
		Rubric: rubric,
	})
}

// ActivateEvent handles POST /events/{id}/activate
func (h *EventHandler) ActivateEvent(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// DeactivateEvent handles POST /events/{id}/deactivate
// Existing active assignments survive deactivation; only new requests stop.
func (h *EventHandler) DeactivateEvent(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *EventHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
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

	res, err := h.db.Exec(`UPDATE event SET active = $1 WHERE id = $2`, active, eventID)
	if err != nil {
		slog.Error("failed to update event", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update event")
		return
	}
	n, err := res.RowsAffected()
	if err != nil {
		slog.Error("failed to read rows affected", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update event")
		return
	}
	if n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
		return
	}

	slog.Info("event state changed", "event_id", eventID, "active", active)

	middleware.JSONResponse(w, http.StatusOK, map[string]interface{}{
		"event_id": eventID,
		"active":   active,
	})
}

// UpdateConfig handles PUT /events/{id}/config
// required_reads can change at any time; the rubric may only be replaced
// while the event has no reviews, because recorded scores reference the
// criteria they were scored against.
func (h *EventHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
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

	var req models.UpdateEventConfigRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.RequiredReads == nil && req.Rubric == nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if req.RequiredReads != nil && *req.RequiredReads < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "required_reads must be at least 1")
		return
	}
	if req.Rubric != nil {
		if msg := validateRubric(req.Rubric); msg != "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, msg)
			return
		}
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM event WHERE id = $1)`, eventID).Scan(&exists)
	if err != nil {
		slog.Error("failed to query event", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Event not found")
		return
	}

	if req.RequiredReads != nil {
		_, err = tx.Exec(`UPDATE event SET required_reads = $1 WHERE id = $2`, *req.RequiredReads, eventID)
		if err != nil {
			slog.Error("failed to update required reads", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update config")
			return
		}
	}

	if req.Rubric != nil {
		var hasReviews bool
		err = tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM review WHERE event_id = $1)`, eventID).Scan(&hasReviews)
		if err != nil {
			slog.Error("failed to query reviews", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if hasReviews {
			middleware.ErrorResponse(w, http.StatusConflict, "Cannot replace rubric after reviews exist")
			return
		}

		_, err = tx.Exec(`DELETE FROM rubric_criterion WHERE event_id = $1`, eventID)
		if err != nil {
			slog.Error("failed to delete rubric", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update config")
			return
		}
		if err := insertRubric(tx, eventID, req.Rubric); err != nil {
			slog.Error("failed to insert rubric", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update config")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit config update", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update config")
		return
	}

	slog.Info("event config updated", "event_id", eventID)

	middleware.JSONResponse(w, http.StatusOK, map[string]string{
		"event_id": eventID,
		"message":  "config updated",
	})
}

func (h *EventHandler) loadRubric(eventID string) ([]models.RubricCriterion, error) {
	rows, err := h.db.Query(`
		SELECT id, event_id, name, description, scale_min, scale_max, position
		FROM rubric_criterion
		WHERE event_id = $1
		ORDER BY position
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rubric := []models.RubricCriterion{}
	for rows.Next() {
		var c models.RubricCriterion
		if err := rows.Scan(&c.ID, &c.EventID, &c.Name, &c.Description, &c.ScaleMin, &c.ScaleMax, &c.Position); err != nil {
			return nil, err
		}
		rubric = append(rubric, c)
	}

	return rubric, rows.Err()
}

func validateRubric(rubric []models.RubricCriterionInput) string {
	if len(rubric) == 0 {
		return "rubric must have at least 1 criterion"
	}

	seen := make(map[string]bool)
	for _, c := range rubric {
		if c.Name == "" {
			return "criterion name is required"
		}
		if seen[c.Name] {
			return "duplicate criterion name: " + c.Name
		}
		seen[c.Name] = true
		if c.ScaleMin >= c.ScaleMax {
			return "criterion " + c.Name + " must have scale_min < scale_max"
		}
	}

	return ""
}

func insertRubric(tx *sql.Tx, eventID string, rubric []models.RubricCriterionInput) error {
	for i, c := range rubric {
		_, err := tx.Exec(`
			INSERT INTO rubric_criterion (id, event_id, name, description, scale_min, scale_max, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, auth.NewID(), eventID, c.Name, c.Description, c.ScaleMin, c.ScaleMax, i)
		if err != nil {
			return err
		}
	}
	return nil
}
