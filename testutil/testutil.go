// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/readrobin/auth"
	"github.com/danielhkuo/readrobin/cliparse"
	"github.com/danielhkuo/readrobin/db"
	"github.com/danielhkuo/readrobin/models"
)

// SetupTestDB opens a fresh SQLite database in a per-test temp directory and
// applies the full schema. The file is removed with the test's temp dir.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open("sqlite", filepath.Join(t.TempDir(), "readrobin_test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3327,
		DatabaseURL:  "test.db",
		DatabaseType: "sqlite",
		AdminKeySalt: "test-admin-salt",
	}
}

// CreateTestEvent creates an event with a two-criterion rubric and returns
// its ID and admin key.
func CreateTestEvent(t *testing.T, conn *sql.DB, cfg cliparse.Config, active bool, requiredReads int) (eventID, adminKey string) {
	t.Helper()

	eventID = auth.NewID()
	adminKey = auth.GenerateAdminKey(eventID, cfg.AdminKeySalt)

	_, err := conn.Exec(`
		INSERT INTO event (id, name, active, required_reads, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, eventID, "Test Event "+eventID[:8], active, requiredReads, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test event: %v", err)
	}

	AddTestCriterion(t, conn, eventID, "Impact", 1, 5, 0)
	AddTestCriterion(t, conn, eventID, "Feasibility", 1, 5, 1)

	return eventID, adminKey
}

// AddTestCriterion adds a rubric criterion to an event and returns its ID
func AddTestCriterion(t *testing.T, conn *sql.DB, eventID, name string, scaleMin, scaleMax, position int) string {
	t.Helper()

	criterionID := auth.NewID()
	_, err := conn.Exec(`
		INSERT INTO rubric_criterion (id, event_id, name, description, scale_min, scale_max, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, criterionID, eventID, name, "", scaleMin, scaleMax, position)
	if err != nil {
		t.Fatalf("Failed to create test criterion: %v", err)
	}

	return criterionID
}

// AddTestApplication adds an application to an event and returns its ID
func AddTestApplication(t *testing.T, conn *sql.DB, eventID, applicantRef string) string {
	t.Helper()

	appID := auth.NewID()
	_, err := conn.Exec(`
		INSERT INTO application (id, event_id, applicant_ref, completed_reads, created_at)
		VALUES ($1, $2, $3, 0, $4)
	`, appID, eventID, applicantRef, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test application: %v", err)
	}

	return appID
}

// AddTestReader registers a reader for an event
func AddTestReader(t *testing.T, conn *sql.DB, eventID, userID string) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO reader (event_id, user_id, added_at)
		VALUES ($1, $2, $3)
	`, eventID, userID, time.Now())
	if err != nil {
		t.Fatalf("Failed to register test reader: %v", err)
	}
}

// EventRubric returns the event's criterion IDs in position order
func EventRubric(t *testing.T, conn *sql.DB, eventID string) []string {
	t.Helper()

	rows, err := conn.Query(`
		SELECT id FROM rubric_criterion WHERE event_id = $1 ORDER BY position
	`, eventID)
	if err != nil {
		t.Fatalf("Failed to query rubric: %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("Failed to scan criterion ID: %v", err)
		}
		ids = append(ids, id)
	}

	return ids
}

// FullScores builds a score map covering every rubric criterion of the event
// with the given value.
func FullScores(t *testing.T, conn *sql.DB, eventID string, value int) map[string]int {
	t.Helper()

	scores := make(map[string]int)
	for _, id := range EventRubric(t, conn, eventID) {
		scores[id] = value
	}

	return scores
}

// ApplicationReads returns the application's completed_reads counter
func ApplicationReads(t *testing.T, conn *sql.DB, appID string) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(`SELECT completed_reads FROM application WHERE id = $1`, appID).Scan(&n); err != nil {
		t.Fatalf("Failed to query completed reads: %v", err)
	}

	return n
}

// ReviewerSet returns the distinct user IDs that reviewed the application
func ReviewerSet(t *testing.T, conn *sql.DB, appID string) map[string]bool {
	t.Helper()

	rows, err := conn.Query(`SELECT user_id FROM review WHERE application_id = $1`, appID)
	if err != nil {
		t.Fatalf("Failed to query reviews: %v", err)
	}
	defer rows.Close()

	users := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			t.Fatalf("Failed to scan reviewer: %v", err)
		}
		users[u] = true
	}

	return users
}

// SubmitTestReview records a completed review directly in the store,
// bypassing the scheduler. The assignment is created already completed.
func SubmitTestReview(t *testing.T, conn *sql.DB, eventID, appID, userID string, scores map[string]int) string {
	t.Helper()

	now := time.Now()
	assignmentID := auth.NewID()
	_, err := conn.Exec(`
		INSERT INTO assignment (id, event_id, user_id, application_id, status, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, assignmentID, eventID, userID, appID, models.StatusCompleted, now, now)
	if err != nil {
		t.Fatalf("Failed to create test assignment: %v", err)
	}

	reviewID := auth.NewID()
	_, err = conn.Exec(`
		INSERT INTO review (id, assignment_id, event_id, application_id, user_id, comment, active_ms, submitted_at)
		VALUES ($1, $2, $3, $4, $5, '', 60000, $6)
	`, reviewID, assignmentID, eventID, appID, userID, now)
	if err != nil {
		t.Fatalf("Failed to create test review: %v", err)
	}

	for criterionID, value := range scores {
		_, err := conn.Exec(`
			INSERT INTO review_score (review_id, criterion_id, value)
			VALUES ($1, $2, $3)
		`, reviewID, criterionID, value)
		if err != nil {
			t.Fatalf("Failed to create test score: %v", err)
		}
	}

	_, err = conn.Exec(`
		UPDATE application SET completed_reads = completed_reads + 1 WHERE id = $1
	`, appID)
	if err != nil {
		t.Fatalf("Failed to increment completed reads: %v", err)
	}

	return reviewID
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// DecodeJSON is the error-returning variant of AssertJSON for use inside
// goroutines, where t.Fatal must not be called.
func DecodeJSON(w *httptest.ResponseRecorder, v interface{}) error {
	return json.NewDecoder(w.Body).Decode(v)
}
