// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/readrobin/models"
	"github.com/danielhkuo/readrobin/scheduler"
	"github.com/danielhkuo/readrobin/testutil"
)

func TestAddReader(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewReaderHandler(db, cfg, scheduler.New(db))

	eventID, adminKey := testutil.CreateTestEvent(t, db, cfg, true, 2)

	body := models.AddReaderRequest{UserID: "alice"}
	req := testutil.MakeRequest("POST", "/events/"+eventID+"/readers", body, map[string]string{"X-Admin-Key": adminKey})
	req.SetPathValue("id", eventID)
	w := httptest.NewRecorder()

	handler.AddReader(w, req)

	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.AddReaderResponse
	testutil.AssertJSON(t, w, &resp)
	if !resp.IsNew {
		t.Error("Expected is_new true for first registration")
	}

	// Re-adding the same reader is a 200 no-op
	req = testutil.MakeRequest("POST", "/events/"+eventID+"/readers", body, map[string]string{"X-Admin-Key": adminKey})
	req.SetPathValue("id", eventID)
	w = httptest.NewRecorder()

	handler.AddReader(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSON(t, w, &resp)
	if resp.IsNew {
		t.Error("Expected is_new false for repeat registration")
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM reader WHERE event_id = $1 AND user_id = $2`, eventID, "alice").Scan(&count); err != nil {
		t.Fatalf("Failed to count readers: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 registry row, got %d", count)
	}
}

func TestAddReaderRequiresAdminKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewReaderHandler(db, cfg, scheduler.New(db))

	eventID, _ := testutil.CreateTestEvent(t, db, cfg, true, 2)

	body := models.AddReaderRequest{UserID: "alice"}
	req := testutil.MakeRequest("POST", "/events/"+eventID+"/readers", body, map[string]string{"X-Admin-Key": "bogus"})
	req.SetPathValue("id", eventID)
	w := httptest.NewRecorder()

	handler.AddReader(w, req)

	testutil.AssertStatus(t, w, http.StatusUnauthorized)
}

func TestRemoveReaderEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	sched := scheduler.New(db)
	handler := NewReaderHandler(db, cfg, sched)

	eventID, adminKey := testutil.CreateTestEvent(t, db, cfg, true, 2)
	testutil.AddTestReader(t, db, eventID, "alice")

	req := testutil.MakeRequest("DELETE", "/events/"+eventID+"/readers/alice", nil, map[string]string{"X-Admin-Key": adminKey})
	req.SetPathValue("id", eventID)
	req.SetPathValue("userId", "alice")
	w := httptest.NewRecorder()

	handler.RemoveReader(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	// Removing an unknown reader is a 404
	req = testutil.MakeRequest("DELETE", "/events/"+eventID+"/readers/ghost", nil, map[string]string{"X-Admin-Key": adminKey})
	req.SetPathValue("id", eventID)
	req.SetPathValue("userId", "ghost")
	w = httptest.NewRecorder()

	handler.RemoveReader(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestListReadersStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewReaderHandler(db, cfg, scheduler.New(db))

	eventID, adminKey := testutil.CreateTestEvent(t, db, cfg, true, 3)
	appA := testutil.AddTestApplication(t, db, eventID, "applicant-a")
	appB := testutil.AddTestApplication(t, db, eventID, "applicant-b")
	testutil.AddTestReader(t, db, eventID, "alice")
	testutil.AddTestReader(t, db, eventID, "bob")

	scores := testutil.FullScores(t, db, eventID, 3)
	testutil.SubmitTestReview(t, db, eventID, appA, "alice", scores)
	testutil.SubmitTestReview(t, db, eventID, appB, "alice", scores)

	req := testutil.MakeRequest("GET", "/events/"+eventID+"/readers", nil, map[string]string{"X-Admin-Key": adminKey})
	req.SetPathValue("id", eventID)
	w := httptest.NewRecorder()

	handler.ListReaders(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var stats []models.ReaderStats
	testutil.AssertJSON(t, w, &stats)
	if len(stats) != 2 {
		t.Fatalf("Expected 2 readers, got %d", len(stats))
	}

	byUser := make(map[string]models.ReaderStats)
	for _, s := range stats {
		byUser[s.UserID] = s
	}

	if byUser["alice"].ReadCount != 2 {
		t.Errorf("Expected alice read count 2, got %d", byUser["alice"].ReadCount)
	}
	if byUser["alice"].AverageSeconds != 60 {
		t.Errorf("Expected alice average 60s, got %f", byUser["alice"].AverageSeconds)
	}
	if byUser["bob"].ReadCount != 0 {
		t.Errorf("Expected bob read count 0, got %d", byUser["bob"].ReadCount)
	}
}
