// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package scheduler implements the assignment workflow: each reader holds at
// most one active assignment per event, each application is held by at most
// one reader at a time, and no reader ever reviews the same application
// twice.
//
// The database is the source of truth for all of it. Two partial unique
// indexes on the assignment table enforce the holding invariants even across
// multiple server processes, and the review table's unique (event, application,
// user) key is itself the reviewed-by set, so a review can never be recorded
// without updating the set that excludes repeat reads. Writes that race are
// resolved by retrying selection, not by locking.
package scheduler
