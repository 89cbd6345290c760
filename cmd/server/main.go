/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance backend. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment), parse command-line flags
  2. Open the store (SQLite file or PostgreSQL through GORM)
  3. Ensure the default "Morning" shift exists
  4. Build media stores, the announcer and its dispatcher
  5. Create the directory and check-in services, the API handler
  6. Configure HTTP router, start the daily report scheduler if enabled
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: $PORT or 8080)
  -db      SQLite database path (default: $DATABASE_PATH or attendance.db)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, drain pending announcements
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/attendance.db"

  # Run against PostgreSQL
  STORE_DRIVER=postgres DATABASE_URL="host=db user=att dbname=att" ./server

  # Speak check-ins through espeak
  ANNOUNCER=command TTS_COMMAND="espeak -s 150" ./server

SEE ALSO:
  - config/config.go: Environment keys
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/auth"
	"github.com/warp/attendance-engine/checkin"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/directory"
	"github.com/warp/attendance-engine/logger"
	"github.com/warp/attendance-engine/media"
	"github.com/warp/attendance-engine/notify"
	"github.com/warp/attendance-engine/store/gormdb"
	"github.com/warp/attendance-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DatabasePath = *dbPath

	log := logger.New(cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// closingStore is what main needs from either store implementation.
type closingStore interface {
	attendance.Store
	Close() error
}

func openStore(cfg config.Config, log *slog.Logger) (closingStore, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return gormdb.OpenPostgres(cfg.DatabaseURL, log)
	default:
		return sqlite.New(cfg.DatabasePath)
	}
}

func newNotifier(cfg config.Config, log *slog.Logger) (notify.Notifier, func(), error) {
	var announcer notify.Announcer
	switch cfg.Announcer {
	case config.AnnouncerNone:
		return notify.Nop{}, func() {}, nil
	case config.AnnouncerCommand:
		a, err := notify.NewCommandAnnouncer(cfg.TTSCommand)
		if err != nil {
			return nil, nil, err
		}
		announcer = a
	case config.AnnouncerTelegram:
		a, err := notify.NewTelegramAnnouncer(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return nil, nil, err
		}
		announcer = a
	default:
		announcer = notify.LogAnnouncer{Log: log}
	}

	d := notify.NewDispatcher(announcer, cfg.AnnounceWorkers, cfg.AnnounceQueue, log)
	return d, d.Close, nil
}

func run(cfg config.Config, log *slog.Logger) error {
	// Initialize store
	store, err := openStore(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	shift, err := attendance.EnsureDefaultShift(ctx, store)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to ensure default shift: %w", err)
	}
	log.Info("default shift ready", "name", shift.Name, "start", shift.Start.String(), "grace_minutes", shift.GraceMinutes)

	photos, err := media.NewDiskStore(cfg.PhotoDir, "photo")
	if err != nil {
		return err
	}
	snapshots, err := media.NewDiskStore(cfg.SnapshotDir, "frame")
	if err != nil {
		return err
	}

	notifier, closeNotifier, err := newNotifier(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize announcer: %w", err)
	}
	defer closeNotifier()

	authn := auth.New(cfg.JWTSecret, cfg.JWTTTL)
	if !authn.Enabled() {
		log.Warn("JWT_SECRET is not set; admin routes are open")
	}

	dir := directory.New(store, photos, cfg.Location, log)
	svc := checkin.New(store, checkin.Options{
		ShiftName: cfg.ShiftName,
		Location:  cfg.Location,
		Snapshots: snapshots,
		Notifier:  notifier,
		Log:       log,
	})

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	active, err := svc.ActiveShift(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("SHIFT_NAME: %w", err)
	}
	log.Info("active shift", "name", active.Name, "start", active.Start.String(), "grace_minutes", active.GraceMinutes)

	if cfg.DailyReportAt != "" {
		at, err := attendance.ParseClock(cfg.DailyReportAt)
		if err != nil {
			return fmt.Errorf("DAILY_REPORT_AT: %w", err)
		}
		scheduler := checkin.NewReportScheduler(svc, at, log)
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Create router
	handler := api.NewHandler(dir, svc, store, cfg.MaxUploadBytes, log)
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		Auth:        authn,
		Limiter:     api.NewClientLimiter(cfg.CheckInRate, cfg.CheckInBurst, log),
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			"addr", "http://localhost:"+cfg.Port,
			"store", cfg.StoreDriver,
			"timezone", cfg.Location.String(),
			"announcer", cfg.Announcer,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	log.Info("shutting down server")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
