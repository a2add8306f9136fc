// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreateEventRequest: name, required_reads, rubric
  - UpdateEventConfigRequest: required_reads, rubric (both optional)
  - AddApplicationRequest: applicant_ref
  - AddReaderRequest: user_id
  - SubmitReviewRequest: scores (map[string]int), comment, active_ms

# Response Types

Types for JSON responses:

  - CreateEventResponse: event_id, admin_key
  - AddApplicationResponse: application_id
  - AddReaderResponse: user_id, is_new
  - AssignmentResponse: assignment (null when the reader holds none)
  - SubmitReviewResponse: review_id, application_id, read progress
  - SkipResponse: assignment_id, message
  - ErrorResponse: error, message

# Domain Types

Internal data structures:

  - Event: event metadata and required-reads configuration
  - RubricCriterion: one scored dimension of an event's rubric
  - Application: review target with its completed-reads counter
  - Assignment: a reader's claim on one application
  - Review: a completed read with per-criterion scores
  - ReaderStats: per-reader read/skip/timing summary
  - CriterionStats: per-criterion aggregates over an application's reviews

# Constants

Assignment status values:

	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"

Error kinds (ErrorResponse.Error):

	NotEligible
	NoWorkAvailable
	NoActiveAssignment
	EventInactive
	ConsistencyViolation
*/
package models
