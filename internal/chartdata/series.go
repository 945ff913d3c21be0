package chartdata

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"

	"stockdash/internal/domain"
)

const (
	DefaultHistoryDays    = 30
	DefaultPredictionDays = 15

	// historyStartRatio places the start of a per-stock history 10% below
	// the current price.
	historyStartRatio = 0.9
	// targetConfidenceScale converts a model's confidence into the forecast
	// target's premium over the current price.
	targetConfidenceScale = 0.05
)

// DatasetKind tells a renderer how to draw a dataset.
type DatasetKind string

const (
	KindHistorical DatasetKind = "historical"
	KindPrediction DatasetKind = "prediction"
	KindValue      DatasetKind = "value"
)

// Series is a chart line positionally aligned with the chart labels. Invalid
// entries are placeholders where the line has no value.
type Series []null.Float

// Values returns the real values of s in order, skipping placeholders.
func (s Series) Values() []float64 {
	out := make([]float64, 0, len(s))
	for _, v := range s {
		if v.Valid {
			out = append(out, v.Float64)
		}
	}
	return out
}

// Dataset is one named line on a chart.
type Dataset struct {
	Label string
	Kind  DatasetKind
	Data  Series
}

// Chart is a renderer-ready set of labels and datasets. Every dataset has
// exactly len(Labels) entries.
type Chart struct {
	Title    string
	YAxis    string
	Labels   []string
	Datasets []Dataset
}

// Dataset returns the first dataset of the given kind.
func (c *Chart) Dataset(kind DatasetKind) (Dataset, bool) {
	for _, d := range c.Datasets {
		if d.Kind == kind {
			return d, true
		}
	}
	return Dataset{}, false
}

// PriceRequest describes a combined historical and forecast price chart.
type PriceRequest struct {
	Symbol       string
	ModelName    string
	HistoryStart float64 // first point of the historical walk
	CurrentPrice float64 // last historical point and forecast origin
	Target       float64 // forecast destination
}

// StockRequest derives the chart for a selected stock: history from 90% of
// the current price, forecast toward a premium scaled by the primary model's
// confidence.
func StockRequest(stock domain.Stock, primary domain.PredictionModel) PriceRequest {
	return PriceRequest{
		Symbol:       stock.Symbol,
		ModelName:    primary.Name,
		HistoryStart: stock.Price * historyStartRatio,
		CurrentPrice: stock.Price,
		Target:       stock.Price * (1 + primary.Confidence*targetConfidenceScale),
	}
}

// SeedRequest reproduces the dashboard's opening chart: a fixed history
// start and the primary model's stored prediction as the target.
func SeedRequest(stock domain.Stock, historyStart float64, primary domain.PredictionModel) PriceRequest {
	return PriceRequest{
		Symbol:       stock.Symbol,
		ModelName:    primary.Name,
		HistoryStart: historyStart,
		CurrentPrice: stock.Price,
		Target:       primary.Prediction,
	}
}

// Assembler builds charts from the date and price generators.
type Assembler struct {
	src            Source
	now            func() time.Time
	loc            *time.Location
	historyDays    int
	predictionDays int
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithSource sets the random source used by the price generators.
func WithSource(src Source) Option {
	return func(a *Assembler) { a.src = src }
}

// WithClock sets the function that reports the current time.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithLocation sets the time zone that decides which calendar day is today.
func WithLocation(loc *time.Location) Option {
	return func(a *Assembler) { a.loc = loc }
}

// WithWindows overrides the historical and prediction window lengths.
func WithWindows(history, prediction int) Option {
	return func(a *Assembler) {
		a.historyDays = history
		a.predictionDays = prediction
	}
}

// NewAssembler returns an Assembler with a 30-day history, a 15-day
// forecast, the default random source and the wall clock.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{
		src:            DefaultSource(),
		now:            time.Now,
		historyDays:    DefaultHistoryDays,
		predictionDays: DefaultPredictionDays,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HistoryDays returns the historical window length.
func (a *Assembler) HistoryDays() int { return a.historyDays }

// PredictionDays returns the forecast window length.
func (a *Assembler) PredictionDays() int { return a.predictionDays }

// Source returns the assembler's random source.
func (a *Assembler) Source() Source { return a.src }

func (a *Assembler) today() time.Time {
	t := a.now()
	if a.loc != nil {
		t = t.In(a.loc)
	}
	return t
}

// PriceChart builds the historical and forecast lines for req. The
// historical dataset holds real values only in the history window and the
// prediction dataset only in the forecast window, so no position carries
// both lines.
func (a *Assembler) PriceChart(req PriceRequest) (*Chart, error) {
	histDays, err := DaysEnding(a.today(), a.historyDays)
	if err != nil {
		return nil, fmt.Errorf("history dates: %w", err)
	}
	var predDays []time.Time
	if a.predictionDays > 0 {
		predDays, err = DaysAfter(histDays[len(histDays)-1], a.predictionDays)
		if err != nil {
			return nil, fmt.Errorf("prediction dates: %w", err)
		}
	}

	hist, err := HistoricalPrices(a.src, req.HistoryStart, req.CurrentPrice, a.historyDays)
	if err != nil {
		return nil, fmt.Errorf("historical prices for %s: %w", req.Symbol, err)
	}
	pred, err := PredictionPrices(a.src, req.CurrentPrice, req.Target, a.predictionDays)
	if err != nil {
		return nil, fmt.Errorf("prediction prices for %s: %w", req.Symbol, err)
	}

	total := len(hist) + len(pred)
	labels := make([]string, 0, total)
	labels = append(labels, Labels(histDays)...)
	labels = append(labels, Labels(predDays)...)

	historical := make(Series, total)
	for i, v := range hist {
		historical[i] = null.FloatFrom(v)
	}
	prediction := make(Series, total)
	for i, v := range pred {
		prediction[len(hist)+i] = null.FloatFrom(v)
	}

	modelName := req.ModelName
	if modelName == "" {
		modelName = "Model"
	}
	return &Chart{
		Title:  fmt.Sprintf("%s - Historical Prices & Predictions", req.Symbol),
		YAxis:  "Price ($)",
		Labels: labels,
		Datasets: []Dataset{
			{Label: "Historical Prices", Kind: KindHistorical, Data: historical},
			{Label: modelName + " Prediction", Kind: KindPrediction, Data: prediction},
		},
	}, nil
}

// ValueChart builds a single history-window line walking from start to end,
// used for the portfolio value chart.
func (a *Assembler) ValueChart(label string, start, end float64) (*Chart, error) {
	days, err := DaysEnding(a.today(), a.historyDays)
	if err != nil {
		return nil, fmt.Errorf("value dates: %w", err)
	}
	values, err := HistoricalPrices(a.src, start, end, a.historyDays)
	if err != nil {
		return nil, fmt.Errorf("%s values: %w", label, err)
	}
	data := make(Series, len(values))
	for i, v := range values {
		data[i] = null.FloatFrom(v)
	}
	return &Chart{
		YAxis:    "Value ($)",
		Labels:   Labels(days),
		Datasets: []Dataset{{Label: label, Kind: KindValue, Data: data}},
	}, nil
}
