// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Read Robin API server.

Read Robin is an application assignment scheduler for hackathon-style
review workflows: each reader is handed one application at a time, every
application collects a required number of reads from distinct readers, and no
reader ever reviews the same application twice.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=readrobin.db ADMIN_KEY_SALT=secret go run .

Or with flags:

	go run . -p 3327 -d readrobin.db -admin-salt secret

A .env file in the working directory is loaded if present.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file path or PostgreSQL connection string
  - ADMIN_KEY_SALT (-admin-salt): Secret for event admin key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3327)
  - DATABASE_TYPE (-t): "sqlite" (default) or "postgres"
  - REAP_INTERVAL (-reap-interval): How often to reap stale assignments
    (0 disables the reaper)
  - REAP_AFTER (-reap-after): Age at which a held assignment counts as stale

# Architecture

The server uses a handler-based architecture with dependency injection:

  - scheduler: Transactional assignment selection, skip, submit, reap
  - handlers: HTTP request handlers (events, readers, applications,
    assignments, reviews)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, metrics recording, JSON helpers
  - metrics: Prometheus collectors on a private registry
  - models: Request/response types
  - auth: ID generation and admin key validation
  - db: Driver selection and schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
