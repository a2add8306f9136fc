// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/danielhkuo/readrobin/models"
)

// ComputeCriterionStats aggregates the recorded scores of one application
// per rubric criterion: count, mean, median, p10, p90. Criteria with no
// scores yet are included with zeroed aggregates so the caller sees the full
// rubric.
func ComputeCriterionStats(db *sql.DB, appID string) ([]models.CriterionStats, error) {
	criteria, err := getApplicationCriteria(db, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rubric criteria: %w", err)
	}

	scores, err := getCriterionScores(db, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to get criterion scores: %w", err)
	}

	stats := make([]models.CriterionStats, len(criteria))
	for i, c := range criteria {
		values := scores[c.ID]
		sort.Float64s(values)

		stats[i] = models.CriterionStats{
			CriterionID: c.ID,
			Name:        c.Name,
			Count:       len(values),
			Mean:        mean(values),
			Median:      percentile(values, 0.5),
			P10:         percentile(values, 0.1),
			P90:         percentile(values, 0.9),
		}
	}

	return stats, nil
}

type criterionName struct {
	ID   string
	Name string
}

// getApplicationCriteria returns the rubric of the application's event in
// position order
func getApplicationCriteria(db *sql.DB, appID string) ([]criterionName, error) {
	rows, err := db.Query(`
		SELECT rc.id, rc.name
		FROM rubric_criterion rc
		JOIN application a ON a.event_id = rc.event_id
		WHERE a.id = $1
		ORDER BY rc.position
	`, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var criteria []criterionName
	for rows.Next() {
		var c criterionName
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		criteria = append(criteria, c)
	}

	return criteria, rows.Err()
}

// getCriterionScores retrieves the application's scores grouped by criterion
func getCriterionScores(db *sql.DB, appID string) (map[string][]float64, error) {
	rows, err := db.Query(`
		SELECT rs.criterion_id, rs.value
		FROM review_score rs
		JOIN review r ON rs.review_id = r.id
		WHERE r.application_id = $1
		ORDER BY rs.criterion_id
	`, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make(map[string][]float64)
	for rows.Next() {
		var criterionID string
		var value float64
		if err := rows.Scan(&criterionID, &value); err != nil {
			return nil, err
		}
		scores[criterionID] = append(scores[criterionID], value)
	}

	return scores, rows.Err()
}

// percentile calculates the p-th percentile of sorted data
// p should be in range [0, 1]
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0.0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	// Linear interpolation between closest ranks
	rank := p * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	// Interpolate
	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// mean calculates the arithmetic mean
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
