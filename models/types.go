package models

import "time"

// Assignment status constants
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
)

// Error kind constants surfaced in ErrorResponse.Error
const (
	ErrKindNotEligible          = "NotEligible"
	ErrKindNoWorkAvailable      = "NoWorkAvailable"
	ErrKindNoActiveAssignment   = "NoActiveAssignment"
	ErrKindEventInactive        = "EventInactive"
	ErrKindConsistencyViolation = "ConsistencyViolation"
)

// Request types

type RubricCriterionInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ScaleMin    int    `json:"scale_min"`
	ScaleMax    int    `json:"scale_max"`
}

type CreateEventRequest struct {
	Name          string                 `json:"name"`
	RequiredReads int                    `json:"required_reads"`
	Rubric        []RubricCriterionInput `json:"rubric"`
}

type UpdateEventConfigRequest struct {
	RequiredReads *int                   `json:"required_reads,omitempty"`
	Rubric        []RubricCriterionInput `json:"rubric,omitempty"`
}

type AddApplicationRequest struct {
	ApplicantRef string `json:"applicant_ref"`
}

type AddReaderRequest struct {
	UserID string `json:"user_id"`
}

// criterion_id -> score value on that criterion's scale
type SubmitReviewRequest struct {
	Scores   map[string]int `json:"scores"`
	Comment  string         `json:"comment"`
	ActiveMS int64          `json:"active_ms"`
}

// Response types

type CreateEventResponse struct {
	EventID  string `json:"event_id"`
	AdminKey string `json:"admin_key"`
}

type AddApplicationResponse struct {
	ApplicationID string `json:"application_id"`
}

type AddReaderResponse struct {
	UserID string `json:"user_id"`
	IsNew  bool   `json:"is_new"`
}

type AssignmentResponse struct {
	Assignment *Assignment `json:"assignment"`
}

type SubmitReviewResponse struct {
	ReviewID       string `json:"review_id"`
	ApplicationID  string `json:"application_id"`
	CompletedReads int    `json:"completed_reads"`
	RequiredReads  int    `json:"required_reads"`
	Closed         bool   `json:"closed"`
	Duplicate      bool   `json:"duplicate"`
}

type SkipResponse struct {
	AssignmentID string `json:"assignment_id"`
	Message      string `json:"message"`
}

// Domain types

type Event struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Active        bool      `json:"active"`
	RequiredReads int       `json:"required_reads"`
	CreatedAt     time.Time `json:"created_at"`
}

type RubricCriterion struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ScaleMin    int    `json:"scale_min"`
	ScaleMax    int    `json:"scale_max"`
	Position    int    `json:"position"`
}

type EventWithRubric struct {
	Event  Event             `json:"event"`
	Rubric []RubricCriterion `json:"rubric"`
}

type Application struct {
	ID             string    `json:"id"`
	EventID        string    `json:"event_id"`
	ApplicantRef   string    `json:"applicant_ref"`
	CompletedReads int       `json:"completed_reads"`
	CreatedAt      time.Time `json:"created_at"`
}

// ApplicationProgress is an Application annotated with live scheduling state.
type ApplicationProgress struct {
	Application
	RequiredReads int  `json:"required_reads"`
	Closed        bool `json:"closed"`
	Assigned      bool `json:"assigned"`
}

type Assignment struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	UserID        string     `json:"user_id"`
	ApplicationID string     `json:"application_id"`
	Status        string     `json:"status"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
}

type Review struct {
	ID            string         `json:"id"`
	AssignmentID  string         `json:"assignment_id"`
	EventID       string         `json:"event_id"`
	ApplicationID string         `json:"application_id"`
	UserID        string         `json:"user_id"`
	Comment       string         `json:"comment"`
	ActiveMS      int64          `json:"active_ms"`
	SubmittedAt   time.Time      `json:"submitted_at"`
	Scores        map[string]int `json:"scores"`
}

// ReaderStats summarizes one reader's activity within an event.
type ReaderStats struct {
	UserID         string    `json:"user_id"`
	AddedAt        time.Time `json:"added_at"`
	ReadCount      int       `json:"read_count"`
	SkipCount      int       `json:"skip_count"`
	AverageSeconds float64   `json:"average_seconds"`
}

// CriterionStats is the per-criterion aggregate over an application's reviews.
type CriterionStats struct {
	CriterionID string  `json:"criterion_id"`
	Name        string  `json:"name"`
	Count       int     `json:"count"`
	Mean        float64 `json:"mean"`
	Median      float64 `json:"median"`
	P10         float64 `json:"p10"`
	P90         float64 `json:"p90"`
}

type ApplicationReviewsResponse struct {
	ApplicationID string           `json:"application_id"`
	Reviews       []Review         `json:"reviews"`
	Stats         []CriterionStats `json:"stats"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
