package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"stockdash/internal/chartdata"
	"stockdash/internal/config"
	"stockdash/internal/domain"
	"stockdash/internal/httpapi"
	"stockdash/internal/prefs"
	"stockdash/internal/sample"
	"stockdash/internal/slogx"
	"stockdash/internal/snapshot"
	"stockdash/internal/store"
)

func main() {
	os.Exit(run())
}

func fail(format string, args ...any) int {
	log.Printf(format, args...)
	return 1
}

// run starts the server and blocks until shutdown. Deferred cleanup runs
// before the exit code is returned.
func run() int {
	// A missing .env is fine.
	_ = godotenv.Load()

	// Load config.
	cfgPath := "config/stockdash.yaml"
	if p := os.Getenv("STOCKDASH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fail("loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return fail("invalid config: %v", err)
	}

	// Setup logging.
	var w io.Writer = os.Stdout
	if cfg.Logging.File != "" {
		logFile, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fail("opening log file: %v", err)
		}
		defer logFile.Close()
		w = io.MultiWriter(os.Stdout, logFile)
	}
	logger := slogx.New(w, cfg.Logging.Level, cfg.Logging.Format)

	loc, err := time.LoadLocation(cfg.Chart.Location)
	if err != nil {
		return fail("loading chart location %q: %v", cfg.Chart.Location, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create stores.
	cat := sample.Default()
	snaps := store.NewParquetStore(cfg.Storage.DataDir)
	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return fail("opening holdings store: %v", err)
	}
	defer db.Close()
	if seeded, err := db.Seed(ctx, cat.Holdings()); err != nil {
		return fail("seeding holdings: %v", err)
	} else if seeded {
		logger.Info("seeded holdings", "path", cfg.Storage.SQLitePath)
	}
	themes := prefs.NewStore(cfg.Storage.PrefsPath, domain.Theme(cfg.UI.DefaultTheme), logger)

	opts := []chartdata.Option{
		chartdata.WithLocation(loc),
		chartdata.WithWindows(cfg.Chart.HistoryDays, cfg.Chart.PredictionDays),
	}
	if cfg.Chart.Seed != 0 {
		opts = append(opts, chartdata.WithSource(chartdata.SeededSource(cfg.Chart.Seed)))
	}
	charts := chartdata.NewAssembler(opts...)

	srv := httpapi.NewDashboardServer(cat, charts, db, snaps, themes, logger)
	if err := srv.Init(ctx); err != nil {
		return fail("initializing dashboard: %v", err)
	}

	if cfg.Chart.SnapshotCron != "" {
		exporter := snapshot.NewExporter(cat, charts, snaps, logger, 4)
		sched, err := snapshot.NewScheduler(exporter, cfg.Chart.SnapshotCron, loc, logger)
		if err != nil {
			return fail("snapshot schedule: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: srv.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("dashboard server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down dashboard server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		return 1
	}
	return 0
}
