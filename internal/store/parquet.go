package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/parquet-go/parquet-go"

	"stockdash/internal/chartdata"
)

// ParquetStore archives generated charts as Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// ChartPointRecord is the Parquet schema for one chart position. Optional
// columns are null where the corresponding line has no value.
type ChartPointRecord struct {
	Symbol     string   `parquet:"symbol"`
	Position   int32    `parquet:"position"`
	Label      string   `parquet:"label"`
	Historical *float64 `parquet:"historical,optional"`
	Prediction *float64 `parquet:"prediction,optional"`
	Model      string   `parquet:"model"`
}

// ---------------------------------------------------------------------------
// Chart snapshots
// ---------------------------------------------------------------------------

// WriteChart writes a price chart for symbol generated on day to
//
//	<DataDir>/charts/<SYMBOL>/<YYYY-MM-DD>.parquet
//
// replacing any snapshot already written for that day.
func (s *ParquetStore) WriteChart(symbol string, day time.Time, chart *chartdata.Chart) (string, error) {
	records, err := chartRecords(symbol, chart)
	if err != nil {
		return "", err
	}
	path := s.chartPath(symbol, day)
	if err := writeParquetFile(path, records); err != nil {
		return "", fmt.Errorf("writing chart for %s: %w", symbol, err)
	}
	return path, nil
}

// ReadChart reads the snapshot written for symbol on day back into a chart.
func (s *ParquetStore) ReadChart(symbol string, day time.Time) (*chartdata.Chart, error) {
	path := s.chartPath(symbol, day)
	records, err := readParquetFile[ChartPointRecord](path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("chart %s %s: %w", symbol, day.Format("2006-01-02"), ErrNotFound)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Position < records[j].Position })

	chart := &chartdata.Chart{
		Title:  fmt.Sprintf("%s - Historical Prices & Predictions", strings.ToUpper(symbol)),
		YAxis:  "Price ($)",
		Labels: make([]string, len(records)),
	}
	hist := make(chartdata.Series, len(records))
	pred := make(chartdata.Series, len(records))
	model := ""
	for i, r := range records {
		chart.Labels[i] = r.Label
		hist[i] = null.FloatFromPtr(r.Historical)
		pred[i] = null.FloatFromPtr(r.Prediction)
		model = r.Model
	}
	chart.Datasets = []chartdata.Dataset{
		{Label: "Historical Prices", Kind: chartdata.KindHistorical, Data: hist},
		{Label: model + " Prediction", Kind: chartdata.KindPrediction, Data: pred},
	}
	return chart, nil
}

// ListChartDates returns the sorted dates (YYYY-MM-DD) with a snapshot for symbol.
func (s *ParquetStore) ListChartDates(symbol string) ([]string, error) {
	dir := filepath.Join(s.DataDir, "charts", strings.ToUpper(symbol))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var dates []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(e.Name(), ".parquet"))
	}
	sort.Strings(dates)
	return dates, nil
}

func chartRecords(symbol string, chart *chartdata.Chart) ([]ChartPointRecord, error) {
	hist, ok := chart.Dataset(chartdata.KindHistorical)
	if !ok {
		return nil, fmt.Errorf("chart for %s has no historical dataset", symbol)
	}
	pred, _ := chart.Dataset(chartdata.KindPrediction)
	model := strings.TrimSuffix(pred.Label, " Prediction")

	records := make([]ChartPointRecord, len(chart.Labels))
	for i, label := range chart.Labels {
		records[i] = ChartPointRecord{
			Symbol:   strings.ToUpper(symbol),
			Position: int32(i),
			Label:    label,
			Model:    model,
		}
		if i < len(hist.Data) {
			records[i].Historical = hist.Data[i].Ptr()
		}
		if i < len(pred.Data) {
			records[i].Prediction = pred.Data[i].Ptr()
		}
	}
	return records, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// chartPath returns the filesystem path for a chart snapshot.
// Layout: <dataDir>/charts/<SYMBOL>/<YYYY-MM-DD>.parquet
func (s *ParquetStore) chartPath(symbol string, t time.Time) string {
	date := t.Format("2006-01-02")
	return filepath.Join(s.DataDir, "charts", strings.ToUpper(symbol), date+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
