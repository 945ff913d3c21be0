package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"stockdash/internal/chartdata"
	"stockdash/internal/config"
	"stockdash/internal/sample"
	"stockdash/internal/slogx"
	"stockdash/internal/snapshot"
	"stockdash/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfgPath := "config/stockdash.yaml"
	if p := os.Getenv("STOCKDASH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	dataDir := flag.String("data", cfg.Storage.DataDir, "output data directory")
	seed := flag.Uint64("seed", cfg.Chart.Seed, "random seed (0 = random)")
	workers := flag.Int("workers", 4, "concurrent symbols")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logger := slogx.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	loc, err := time.LoadLocation(cfg.Chart.Location)
	if err != nil {
		log.Fatalf("loading chart location %q: %v", cfg.Chart.Location, err)
	}
	opts := []chartdata.Option{
		chartdata.WithLocation(loc),
		chartdata.WithWindows(cfg.Chart.HistoryDays, cfg.Chart.PredictionDays),
	}
	if *seed != 0 {
		opts = append(opts, chartdata.WithSource(chartdata.SeededSource(*seed)))
	}
	charts := chartdata.NewAssembler(opts...)

	exporter := snapshot.NewExporter(sample.Default(), charts, store.NewParquetStore(*dataDir), logger, *workers)
	paths, err := exporter.ExportAll(context.Background(), time.Now().In(loc))
	if err != nil {
		log.Fatalf("exporting charts: %v", err)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	logger.Info("export complete", "files", len(paths), "dir", *dataDir)
}
