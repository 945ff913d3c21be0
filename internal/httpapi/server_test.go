package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"stockdash/internal/chartdata"
	"stockdash/internal/domain"
	"stockdash/internal/prefs"
	"stockdash/internal/sample"
	"stockdash/internal/slogx"
	"stockdash/internal/store"
)

var testNow = func() time.Time { return time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC) }

func newTestServer(t *testing.T) *DashboardServer {
	t.Helper()
	dir := t.TempDir()
	cat := sample.Default()

	db, err := store.NewSQLiteStore(filepath.Join(dir, "stockdash.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Seed(context.Background(), cat.Holdings()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	log := slogx.Discard()
	charts := chartdata.NewAssembler(
		chartdata.WithSource(chartdata.SeededSource(1)),
		chartdata.WithClock(testNow),
		chartdata.WithLocation(time.UTC),
	)
	themes := prefs.NewStore(filepath.Join(dir, "prefs.json"), domain.ThemeLight, log)

	snaps := store.NewParquetStore(filepath.Join(dir, "data"))

	srv := NewDashboardServer(cat, charts, db, snaps, themes, log)
	if err := srv.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return srv
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// lastValid returns the last non-null value of a dataset.
func lastValid(d DatasetJSON) float64 {
	vals := d.Data.Values()
	if len(vals) == 0 {
		return math.NaN()
	}
	return vals[len(vals)-1]
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t).Handler()
	rec := do(t, h, http.MethodOptions, "/api/stocks", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestStocksEndpoints(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodGet, "/api/stocks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	stocks := decode[StocksResponse](t, rec)
	if len(stocks.Stocks) != 5 || stocks.Stocks[0].Symbol != "AAPL" {
		t.Fatalf("stocks = %+v", stocks.Stocks)
	}
	if stocks.Stocks[0].ChangeText != "+2.15 (+1.24%)" || stocks.Stocks[0].Class != "positive" {
		t.Errorf("AAPL display = %q / %q", stocks.Stocks[0].ChangeText, stocks.Stocks[0].Class)
	}

	rec = do(t, h, http.MethodGet, "/api/stocks/tsla", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if s := decode[StockJSON](t, rec); s.Symbol != "TSLA" || s.Class != "negative" {
		t.Errorf("TSLA = %+v", s)
	}

	rec = do(t, h, http.MethodGet, "/api/stocks/NFLX", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown symbol status = %d, want 404", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "Available symbols: AAPL, GOOGL, MSFT, TSLA, AMZN") {
		t.Errorf("error body = %s", body)
	}
}

func TestSearch(t *testing.T) {
	h := newTestServer(t).Handler()

	if rec := do(t, h, http.MethodGet, "/api/search?q=+amzn+", ""); rec.Code != http.StatusOK {
		t.Errorf("search amzn status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/search?q=", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("blank search status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/search?q=zzz", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown search status = %d, want 404", rec.Code)
	}
}

func TestDefaultChart(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodGet, "/api/chart", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	chart := decode[ChartJSON](t, rec)
	if chart.Title != "AAPL - Historical Prices & Predictions" {
		t.Errorf("Title = %q", chart.Title)
	}
	if len(chart.Labels) != 45 || len(chart.Datasets) != 2 {
		t.Fatalf("got %d labels, %d datasets", len(chart.Labels), len(chart.Datasets))
	}
	if chart.Labels[29] != "Jun 30" || chart.Labels[30] != "Jul 1" {
		t.Errorf("boundary labels = %q, %q", chart.Labels[29], chart.Labels[30])
	}

	hist, pred := chart.Datasets[0], chart.Datasets[1]
	if hist.Label != "Historical Prices" || pred.Label != "LSTM Prediction" {
		t.Errorf("dataset labels = %q, %q", hist.Label, pred.Label)
	}
	if len(hist.Data) != 45 || len(pred.Data) != 45 {
		t.Fatalf("dataset lengths = %d, %d", len(hist.Data), len(pred.Data))
	}
	if got := lastValid(hist); got != 175.43 {
		t.Errorf("last historical = %v, want 175.43", got)
	}
	for i := range hist.Data {
		if hist.Data[i].Valid == pred.Data[i].Valid {
			t.Errorf("position %d: historical valid=%v prediction valid=%v", i, hist.Data[i].Valid, pred.Data[i].Valid)
		}
	}
}

func TestSelectUpdatesSession(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodPost, "/api/select/msft", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	view := decode[StockViewResponse](t, rec)
	if view.Stock.Symbol != "MSFT" {
		t.Errorf("Stock = %+v", view.Stock)
	}
	if view.Chart.Title != "MSFT - Historical Prices & Predictions" {
		t.Errorf("Chart.Title = %q", view.Chart.Title)
	}
	if len(view.Models) != 3 || !view.Models[0].Best || view.Models[0].Name != "LSTM" {
		t.Errorf("Models = %+v", view.Models)
	}
	for _, m := range view.Models {
		lo := 378.85 * (1 + m.Confidence*0.1*0.9)
		hi := 378.85 * (1 + m.Confidence*0.1*1.1)
		if m.Prediction < lo-1e-9 || m.Prediction > hi+1e-9 {
			t.Errorf("%s prediction %v outside [%v, %v]", m.Name, m.Prediction, lo, hi)
		}
	}

	chart := decode[ChartJSON](t, do(t, h, http.MethodGet, "/api/chart", ""))
	if chart.Title != "MSFT - Historical Prices & Predictions" {
		t.Errorf("session chart not updated: %q", chart.Title)
	}

	// A failed select keeps the previous session.
	if rec := do(t, h, http.MethodPost, "/api/select/NFLX", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown select status = %d", rec.Code)
	}
	chart = decode[ChartJSON](t, do(t, h, http.MethodGet, "/api/chart", ""))
	if chart.Title != "MSFT - Historical Prices & Predictions" {
		t.Errorf("session changed after failed select: %q", chart.Title)
	}
}

func TestStockChartIsStateless(t *testing.T) {
	h := newTestServer(t).Handler()

	chart := decode[ChartJSON](t, do(t, h, http.MethodGet, "/api/chart/googl", ""))
	if chart.Title != "GOOGL - Historical Prices & Predictions" {
		t.Errorf("Title = %q", chart.Title)
	}
	if got := lastValid(chart.Datasets[0]); got != 2847.63 {
		t.Errorf("last historical = %v", got)
	}

	session := decode[ChartJSON](t, do(t, h, http.MethodGet, "/api/chart", ""))
	if session.Title != "AAPL - Historical Prices & Predictions" {
		t.Errorf("session chart changed: %q", session.Title)
	}
}

func TestModels(t *testing.T) {
	h := newTestServer(t).Handler()

	resp := decode[ModelsResponse](t, do(t, h, http.MethodGet, "/api/models", ""))
	if len(resp.Models) != 3 {
		t.Fatalf("got %d models", len(resp.Models))
	}
	first := resp.Models[0]
	if first.Name != "LSTM" || first.Rank != 1 || !first.Best {
		t.Errorf("first model = %+v", first)
	}
	if first.AccuracyText != "87.3%" || first.PredictionText != "$182.45" || first.ConfidenceText != "85%" {
		t.Errorf("display = %q %q %q", first.AccuracyText, first.PredictionText, first.ConfidenceText)
	}

	resp = decode[ModelsResponse](t, do(t, h, http.MethodGet, "/api/models/tsla", ""))
	if resp.Symbol != "TSLA" || len(resp.Models) != 3 {
		t.Errorf("per-stock models = %+v", resp)
	}
}

func TestPortfolio(t *testing.T) {
	h := newTestServer(t).Handler()

	resp := decode[PortfolioResponse](t, do(t, h, http.MethodGet, "/api/portfolio", ""))
	if len(resp.Holdings) != 2 {
		t.Fatalf("got %d holdings", len(resp.Holdings))
	}
	if !almostEqual(resp.Summary.CostBasis, 3200) || !almostEqual(resp.Summary.MarketValue, 3648.55) {
		t.Errorf("summary = %+v", resp.Summary)
	}
	if resp.Holdings[0].GainLossText != "+$254.30 (+15.41%)" {
		t.Errorf("AAPL gain text = %q", resp.Holdings[0].GainLossText)
	}

	chart := decode[ChartJSON](t, do(t, h, http.MethodGet, "/api/portfolio/chart", ""))
	if len(chart.Labels) != 30 || len(chart.Datasets) != 1 {
		t.Fatalf("portfolio chart: %d labels, %d datasets", len(chart.Labels), len(chart.Datasets))
	}
	if chart.Datasets[0].Label != "Portfolio Value" {
		t.Errorf("dataset label = %q", chart.Datasets[0].Label)
	}
	if got := lastValid(chart.Datasets[0]); !almostEqual(got, 3648.55) {
		t.Errorf("last portfolio value = %v, want 3648.55", got)
	}
}

func TestAddPosition(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodPost, "/api/portfolio", `{"symbol":" aapl ","shares":10,"cost":185}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	pos := decode[PositionResponse](t, rec)
	if pos.Holding.Symbol != "AAPL" || pos.Holding.Shares != 20 || !almostEqual(pos.Holding.AvgCost, 175) {
		t.Errorf("holding = %+v", pos.Holding)
	}
	if pos.Message != "Added 10 shares of AAPL to portfolio" {
		t.Errorf("message = %q", pos.Message)
	}
	if pos.Holding.SharesText != "20" {
		t.Errorf("shares text = %q", pos.Holding.SharesText)
	}

	resp := decode[PortfolioResponse](t, do(t, h, http.MethodGet, "/api/portfolio", ""))
	if len(resp.Holdings) != 2 || !almostEqual(resp.Summary.CostBasis, 5250) {
		t.Errorf("after add: %d holdings, summary %+v", len(resp.Holdings), resp.Summary)
	}
	chart := decode[ChartJSON](t, do(t, h, http.MethodGet, "/api/portfolio/chart", ""))
	if got := lastValid(chart.Datasets[0]); !almostEqual(got, resp.Summary.MarketValue) {
		t.Errorf("portfolio chart ends at %v, want %v", got, resp.Summary.MarketValue)
	}

	tests := []struct {
		body string
		want int
	}{
		{`{"symbol":"NFLX","shares":1,"cost":1}`, http.StatusNotFound},
		{`{"symbol":"MSFT","shares":0,"cost":1}`, http.StatusBadRequest},
		{`{"symbol":"","shares":1,"cost":1}`, http.StatusBadRequest},
		{`{"symbol":"MSFT","shares":1,"cost":-5}`, http.StatusBadRequest},
		{`{"symbol":"TSLA","shares":10,"cost":1e308}`, http.StatusBadRequest},
		{`{"symbol":"AAPL","shares":9223372036854775807,"cost":1}`, http.StatusBadRequest},
		{`not json`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := do(t, h, http.MethodPost, "/api/portfolio", tt.body); rec.Code != tt.want {
			t.Errorf("POST %s: status = %d, want %d", tt.body, rec.Code, tt.want)
		}
	}

	rec = do(t, h, http.MethodGet, "/api/portfolio", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("portfolio after rejected adds: status = %d", rec.Code)
	}
	resp = decode[PortfolioResponse](t, rec)
	if len(resp.Holdings) != 2 || resp.Holdings[0].Shares != 20 || !almostEqual(resp.Summary.CostBasis, 5250) {
		t.Errorf("portfolio after rejected adds = %+v", resp)
	}
}

func TestAddPositionLargeShareCount(t *testing.T) {
	h := newTestServer(t).Handler()

	pos := decode[PositionResponse](t, do(t, h, http.MethodPost, "/api/portfolio", `{"symbol":"GOOGL","shares":1250,"cost":140}`))
	if pos.Message != "Added 1,250 shares of GOOGL to portfolio" {
		t.Errorf("message = %q", pos.Message)
	}
	if pos.Holding.Shares != 1250 || pos.Holding.SharesText != "1,250" {
		t.Errorf("holding = %+v", pos.Holding)
	}
}

func TestConcurrentAddsKeepNewestChart(t *testing.T) {
	h := newTestServer(t).Handler()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/portfolio", strings.NewReader(`{"symbol":"TSLA","shares":1,"cost":200}`))
			h.ServeHTTP(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	resp := decode[PortfolioResponse](t, do(t, h, http.MethodGet, "/api/portfolio", ""))
	if len(resp.Holdings) != 3 || resp.Holdings[2].Shares != 8 {
		t.Fatalf("holdings = %+v", resp.Holdings)
	}
	chart := decode[ChartJSON](t, do(t, h, http.MethodGet, "/api/portfolio/chart", ""))
	if got := lastValid(chart.Datasets[0]); !almostEqual(got, resp.Summary.MarketValue) {
		t.Errorf("portfolio chart ends at %v, want %v", got, resp.Summary.MarketValue)
	}
}

func TestRemovePosition(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodDelete, "/api/portfolio/msft", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[PortfolioResponse](t, rec)
	if len(resp.Holdings) != 1 || resp.Holdings[0].Symbol != "AAPL" {
		t.Fatalf("holdings = %+v", resp.Holdings)
	}
	chart := decode[ChartJSON](t, do(t, h, http.MethodGet, "/api/portfolio/chart", ""))
	if got := lastValid(chart.Datasets[0]); !almostEqual(got, 1754.30) {
		t.Errorf("portfolio chart ends at %v, want 1754.30", got)
	}

	if rec := do(t, h, http.MethodDelete, "/api/portfolio/MSFT", ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", rec.Code)
	}
}

func TestSnapshots(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	dates := decode[SnapshotDatesResponse](t, do(t, h, http.MethodGet, "/api/snapshots/aapl", ""))
	if dates.Symbol != "AAPL" || len(dates.Dates) != 0 {
		t.Errorf("empty archive = %+v", dates)
	}

	ps := srv.snapshots.(*store.ParquetStore)
	if _, err := ps.WriteChart("AAPL", testNow(), srv.session.Price); err != nil {
		t.Fatalf("WriteChart: %v", err)
	}

	dates = decode[SnapshotDatesResponse](t, do(t, h, http.MethodGet, "/api/snapshots/aapl", ""))
	if len(dates.Dates) != 1 || dates.Dates[0] != "2024-06-30" {
		t.Fatalf("dates = %+v", dates.Dates)
	}

	rec := do(t, h, http.MethodGet, "/api/snapshots/AAPL/2024-06-30", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	chart := decode[ChartJSON](t, rec)
	if len(chart.Labels) != 45 || len(chart.Datasets) != 2 {
		t.Fatalf("snapshot: %d labels, %d datasets", len(chart.Labels), len(chart.Datasets))
	}
	if got := lastValid(chart.Datasets[0]); !almostEqual(got, 175.43) {
		t.Errorf("last historical = %v, want 175.43", got)
	}

	if rec := do(t, h, http.MethodGet, "/api/snapshots/AAPL/2024-07-01", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing day: status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/snapshots/AAPL/yesterday", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", rec.Code)
	}
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, SummaryJSON{MarketValue: math.Inf(-1)})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
		t.Errorf("body = %v, %v", body, err)
	}
}

func TestNewsAndSentiment(t *testing.T) {
	h := newTestServer(t).Handler()

	news := decode[NewsResponse](t, do(t, h, http.MethodGet, "/api/news", ""))
	if len(news.Articles) != 5 {
		t.Errorf("got %d articles, want 5", len(news.Articles))
	}

	s := decode[SentimentJSON](t, do(t, h, http.MethodGet, "/api/sentiment", ""))
	if s.Overall != "Positive" || s.NewsCount != 45 || s.PositiveNews != 28 {
		t.Errorf("sentiment = %+v", s)
	}
}

func TestTheme(t *testing.T) {
	h := newTestServer(t).Handler()

	th := decode[ThemeResponse](t, do(t, h, http.MethodGet, "/api/theme?prefers=dark", ""))
	if th.Theme != domain.ThemeDark || th.Stored || th.Title != "Switch to light mode" {
		t.Errorf("preferred theme = %+v", th)
	}

	if rec := do(t, h, http.MethodPut, "/api/theme/sepia", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid theme status = %d, want 400", rec.Code)
	}

	th = decode[ThemeResponse](t, do(t, h, http.MethodPut, "/api/theme/dark", ""))
	if th.Theme != domain.ThemeDark || !th.Stored {
		t.Errorf("after set = %+v", th)
	}

	th = decode[ThemeResponse](t, do(t, h, http.MethodPost, "/api/theme/toggle", ""))
	if th.Theme != domain.ThemeLight || th.Title != "Switch to dark mode" {
		t.Errorf("after toggle = %+v", th)
	}

	th = decode[ThemeResponse](t, do(t, h, http.MethodGet, "/api/theme?prefers=dark", ""))
	if th.Theme != domain.ThemeLight {
		t.Errorf("stored theme should win, got %+v", th)
	}
}

func TestThemeEventsStream(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/theme/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	next := func() prefs.Event {
		t.Helper()
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				t.Fatalf("reading stream: %v", err)
			}
			if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				var e prefs.Event
				if err := json.Unmarshal([]byte(data), &e); err != nil {
					t.Fatalf("bad event %q: %v", data, err)
				}
				return e
			}
		}
	}

	if e := next(); e.Type != "snapshot" || e.Theme != domain.ThemeLight {
		t.Errorf("first event = %+v", e)
	}

	put, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/theme/dark", nil)
	putResp, err := http.DefaultClient.Do(put)
	if err != nil {
		t.Fatalf("PUT theme: %v", err)
	}
	putResp.Body.Close()

	if e := next(); e.Type != "set" || e.Theme != domain.ThemeDark {
		t.Errorf("second event = %+v", e)
	}
}

func TestThemeWebSocket(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/theme/ws?prefers=dark", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.CloseNow()

	var e prefs.Event
	if err := wsjson.Read(ctx, c, &e); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if e.Type != "snapshot" || e.Theme != domain.ThemeDark {
		t.Errorf("snapshot = %+v", e)
	}

	if rec := do(t, srv.Handler(), http.MethodPost, "/api/theme/toggle?prefers=dark", ""); rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}
	if err := wsjson.Read(ctx, c, &e); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if e.Type != "set" || e.Theme != domain.ThemeLight {
		t.Errorf("update = %+v", e)
	}
	c.Close(websocket.StatusNormalClosure, "")
}
