// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/readrobin/models"
	"github.com/danielhkuo/readrobin/testutil"
)

func TestGetApplication(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewReviewHandler(db, cfg)

	eventID, adminKey := testutil.CreateTestEvent(t, db, cfg, true, 2)
	appID := testutil.AddTestApplication(t, db, eventID, "submission-042")
	testutil.SubmitTestReview(t, db, eventID, appID, "alice", testutil.FullScores(t, db, eventID, 4))

	req := testutil.MakeRequest("GET", "/applications/"+appID, nil, map[string]string{"X-Admin-Key": adminKey})
	req.SetPathValue("id", appID)
	w := httptest.NewRecorder()

	handler.GetApplication(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ApplicationProgress
	testutil.AssertJSON(t, w, &resp)
	if resp.ID != appID {
		t.Errorf("Expected application %s, got %s", appID, resp.ID)
	}
	if resp.ApplicantRef != "submission-042" {
		t.Errorf("Expected applicant_ref 'submission-042', got '%s'", resp.ApplicantRef)
	}
	if resp.CompletedReads != 1 || resp.RequiredReads != 2 || resp.Closed {
		t.Errorf("Expected 1/2 reads open, got %d/%d closed=%v", resp.CompletedReads, resp.RequiredReads, resp.Closed)
	}
}

func TestGetApplicationAuth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewReviewHandler(db, cfg)

	eventID, _ := testutil.CreateTestEvent(t, db, cfg, true, 2)
	_, otherKey := testutil.CreateTestEvent(t, db, cfg, true, 2)
	appID := testutil.AddTestApplication(t, db, eventID, "submission-001")

	// A valid key for a different event must not unlock this application
	req := testutil.MakeRequest("GET", "/applications/"+appID, nil, map[string]string{"X-Admin-Key": otherKey})
	req.SetPathValue("id", appID)
	w := httptest.NewRecorder()

	handler.GetApplication(w, req)

	testutil.AssertStatus(t, w, http.StatusUnauthorized)
}

func TestGetApplicationNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewReviewHandler(db, cfg)

	req := testutil.MakeRequest("GET", "/applications/ghost", nil, nil)
	req.SetPathValue("id", "ghost")
	w := httptest.NewRecorder()

	handler.GetApplication(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestGetApplicationReviews(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewReviewHandler(db, cfg)

	eventID, adminKey := testutil.CreateTestEvent(t, db, cfg, true, 3)
	appID := testutil.AddTestApplication(t, db, eventID, "submission-007")
	rubric := testutil.EventRubric(t, db, eventID)

	// Three reviews with spread-out scores on the first criterion
	testutil.SubmitTestReview(t, db, eventID, appID, "alice", map[string]int{rubric[0]: 1, rubric[1]: 3})
	testutil.SubmitTestReview(t, db, eventID, appID, "bob", map[string]int{rubric[0]: 3, rubric[1]: 3})
	testutil.SubmitTestReview(t, db, eventID, appID, "carol", map[string]int{rubric[0]: 5, rubric[1]: 3})

	req := testutil.MakeRequest("GET", "/applications/"+appID+"/reviews", nil, map[string]string{"X-Admin-Key": adminKey})
	req.SetPathValue("id", appID)
	w := httptest.NewRecorder()

	handler.GetApplicationReviews(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ApplicationReviewsResponse
	testutil.AssertJSON(t, w, &resp)

	if len(resp.Reviews) != 3 {
		t.Fatalf("Expected 3 reviews, got %d", len(resp.Reviews))
	}
	for _, rv := range resp.Reviews {
		if len(rv.Scores) != 2 {
			t.Errorf("Review %s: expected 2 scores, got %d", rv.ID, len(rv.Scores))
		}
	}

	if len(resp.Stats) != 2 {
		t.Fatalf("Expected stats for 2 criteria, got %d", len(resp.Stats))
	}

	first := resp.Stats[0]
	if first.Count != 3 {
		t.Errorf("Expected count 3, got %d", first.Count)
	}
	if first.Mean != 3 {
		t.Errorf("Expected mean 3, got %f", first.Mean)
	}
	if first.Median != 3 {
		t.Errorf("Expected median 3, got %f", first.Median)
	}

	// Interpolated percentiles carry float noise, so compare with a tolerance
	second := resp.Stats[1]
	for label, got := range map[string]float64{
		"mean": second.Mean, "median": second.Median, "p10": second.P10, "p90": second.P90,
	} {
		if math.Abs(got-3) > 1e-9 {
			t.Errorf("Expected %s of 3, got %f", label, got)
		}
	}
}

func TestGetApplicationReviewsEmpty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewReviewHandler(db, cfg)

	eventID, adminKey := testutil.CreateTestEvent(t, db, cfg, true, 2)
	appID := testutil.AddTestApplication(t, db, eventID, "submission-100")

	req := testutil.MakeRequest("GET", "/applications/"+appID+"/reviews", nil, map[string]string{"X-Admin-Key": adminKey})
	req.SetPathValue("id", appID)
	w := httptest.NewRecorder()

	handler.GetApplicationReviews(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ApplicationReviewsResponse
	testutil.AssertJSON(t, w, &resp)
	if len(resp.Reviews) != 0 {
		t.Errorf("Expected no reviews, got %d", len(resp.Reviews))
	}
	// The full rubric still appears, zeroed
	if len(resp.Stats) != 2 {
		t.Fatalf("Expected stats for 2 criteria, got %d", len(resp.Stats))
	}
	for _, cs := range resp.Stats {
		if cs.Count != 0 || cs.Mean != 0 {
			t.Errorf("Criterion %s: expected zeroed aggregates, got %+v", cs.Name, cs)
		}
	}
}

func TestPercentile(t *testing.T) {
	testCases := []struct {
		name     string
		sorted   []float64
		p        float64
		expected float64
	}{
		{"empty", nil, 0.5, 0},
		{"single value", []float64{4}, 0.5, 4},
		{"median of two", []float64{2, 4}, 0.5, 3},
		{"median of odd set", []float64{1, 3, 5}, 0.5, 3},
		{"p10 interpolated", []float64{1, 2, 3, 4, 5}, 0.1, 1.4},
		{"p90 interpolated", []float64{1, 2, 3, 4, 5}, 0.9, 4.6},
		{"p100 is max", []float64{1, 2, 3}, 1.0, 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := percentile(tc.sorted, tc.p)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("Expected %f, got %f", tc.expected, got)
			}
		})
	}
}

func TestMean(t *testing.T) {
	if got := mean(nil); got != 0 {
		t.Errorf("Expected 0 for empty input, got %f", got)
	}
	if got := mean([]float64{2, 4, 6}); got != 4 {
		t.Errorf("Expected 4, got %f", got)
	}
}
