package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/danielhkuo/readrobin/cliparse"
	"github.com/danielhkuo/readrobin/db"
	"github.com/danielhkuo/readrobin/middleware"
	"github.com/danielhkuo/readrobin/router"
	"github.com/danielhkuo/readrobin/scheduler"
)

func main() {
	var err error

	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the store (SQLite or PostgreSQL)
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready")

	// Create router
	mux := router.NewRouter(dbConn, cfg)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)

	reapCtx, stopReaper := context.WithCancel(context.Background())
	if cfg.ReapInterval > 0 {
		go runReaper(reapCtx, scheduler.New(dbConn), cfg.ReapInterval, cfg.ReapAfter)
		slog.Info("Stale assignment reaper enabled", "interval", cfg.ReapInterval, "reap_after", cfg.ReapAfter)
	}

	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		stopReaper()
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}

// runReaper periodically skips assignments that have been held longer than
// reapAfter, so abandoned sessions don't pin applications forever.
func runReaper(ctx context.Context, sched *scheduler.Scheduler, interval, reapAfter time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sched.ReapStale(ctx, reapAfter, time.Now()); err != nil {
				slog.Error("stale assignment reap failed", "error", err)
			}
		}
	}
}
