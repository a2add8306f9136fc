// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3327)
  - DatabaseURL: SQLite file or PostgreSQL connection string (required)
  - DatabaseType: "sqlite" (default) or "postgres"
  - AdminKeySalt: Secret for admin key HMAC (required)
  - ReapInterval: How often the stale-assignment reaper runs (0 = disabled)
  - ReapAfter: Age at which an active assignment counts as stale

# CLI Flags

	-p             Server port
	-d             Database URL
	-t             Database type
	-admin-salt    Admin key salt
	-reap-interval Reaper cadence
	-reap-after    Stale age threshold

# Environment Variables

Flags fall back to environment variables:

	PORT           → -p
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	ADMIN_KEY_SALT → -admin-salt
	REAP_INTERVAL  → -reap-interval
	REAP_AFTER     → -reap-after

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if required values are missing:

  - DATABASE_URL must be provided
  - ADMIN_KEY_SALT must be provided
  - REAP_AFTER must accompany REAP_INTERVAL
*/
package cliparse
