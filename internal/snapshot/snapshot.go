// Package snapshot writes the day's price charts for every catalog stock to
// Parquet, either once (chart-export) or on a cron schedule (dash-server).
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"stockdash/internal/chartdata"
	"stockdash/internal/dashboard"
	"stockdash/internal/sample"
	"stockdash/internal/store"
)

// Exporter builds and persists chart snapshots.
type Exporter struct {
	catalog *sample.Catalog
	charts  *chartdata.Assembler
	store   *store.ParquetStore
	log     *slog.Logger
	workers int
}

// NewExporter creates an Exporter. workers bounds how many symbols are
// built concurrently; values below 1 mean one at a time.
func NewExporter(catalog *sample.Catalog, charts *chartdata.Assembler, ps *store.ParquetStore, log *slog.Logger, workers int) *Exporter {
	if workers < 1 {
		workers = 1
	}
	return &Exporter{catalog: catalog, charts: charts, store: ps, log: log, workers: workers}
}

// ExportAll writes one chart file per stock for day and returns the paths
// written, sorted.
func (e *Exporter) ExportAll(ctx context.Context, day time.Time) ([]string, error) {
	primary, ok := dashboard.PrimaryModel(e.catalog.Models())
	if !ok {
		return nil, fmt.Errorf("no prediction models configured")
	}

	var (
		mu    sync.Mutex
		paths []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, stock := range e.catalog.Stocks() {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chart, err := e.charts.PriceChart(chartdata.StockRequest(stock, primary))
			if err != nil {
				return fmt.Errorf("%s: %w", stock.Symbol, err)
			}
			path, err := e.store.WriteChart(stock.Symbol, day, chart)
			if err != nil {
				return fmt.Errorf("%s: %w", stock.Symbol, err)
			}
			e.log.Debug("chart snapshot written", "symbol", stock.Symbol, "points", len(chart.Labels), "path", path)
			mu.Lock()
			paths = append(paths, path)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// Scheduler runs ExportAll on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	exporter *Exporter
	loc      *time.Location
	log      *slog.Logger
}

// NewScheduler registers the export job at spec, a standard five-field cron
// expression evaluated in loc.
func NewScheduler(exporter *Exporter, spec string, loc *time.Location, log *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		exporter: exporter,
		loc:      loc,
		log:      log,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("register snapshot job %q: %w", spec, err)
	}
	return s, nil
}

// Start starts the cron scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("snapshot scheduler started")
}

// Stop stops the scheduler and waits for a running export to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("snapshot scheduler stopped")
}

func (s *Scheduler) run() {
	start := time.Now()
	paths, err := s.exporter.ExportAll(context.Background(), start.In(s.loc))
	if err != nil {
		s.log.Error("chart snapshot failed", "error", err)
		return
	}
	s.log.Info("chart snapshot complete", "files", len(paths), "elapsed", time.Since(start).Round(time.Millisecond))
}
