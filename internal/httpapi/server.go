package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"stockdash/internal/chartdata"
	"stockdash/internal/dashboard"
	"stockdash/internal/domain"
	"stockdash/internal/prefs"
	"stockdash/internal/sample"
	"stockdash/internal/store"
)

// Holdings is the portfolio storage the server needs.
type Holdings interface {
	ListHoldings(ctx context.Context) ([]domain.Holding, error)
	DeleteHolding(ctx context.Context, symbol string) error
	dashboard.HoldingUpdater
}

// Snapshots reads archived chart snapshots.
type Snapshots interface {
	ListChartDates(symbol string) ([]string, error)
	ReadChart(symbol string, day time.Time) (*chartdata.Chart, error)
}

// DashboardServer serves the dashboard HTTP API.
type DashboardServer struct {
	catalog   *sample.Catalog
	charts    *chartdata.Assembler
	holdings  Holdings
	snapshots Snapshots
	prefs     *prefs.Store
	log       *slog.Logger

	// Serializes portfolio chart rebuilds so the newest read wins.
	refreshMu sync.Mutex

	// Charts currently on screen. Guarded by mu.
	mu      sync.Mutex
	session chartdata.Session
}

// NewDashboardServer creates a new dashboard HTTP server. Call Init before
// serving.
func NewDashboardServer(
	catalog *sample.Catalog,
	charts *chartdata.Assembler,
	holdings Holdings,
	snapshots Snapshots,
	themes *prefs.Store,
	log *slog.Logger,
) *DashboardServer {
	return &DashboardServer{
		catalog:   catalog,
		charts:    charts,
		holdings:  holdings,
		snapshots: snapshots,
		prefs:     themes,
		log:       log,
	}
}

// Init builds the initial chart session: the default price chart and the
// portfolio value chart.
func (s *DashboardServer) Init(ctx context.Context) error {
	stock, err := s.catalog.Lookup(sample.SeedSymbol)
	if err != nil {
		return err
	}
	primary, ok := dashboard.PrimaryModel(s.catalog.Models())
	if !ok {
		return fmt.Errorf("no prediction models configured")
	}
	price, err := s.charts.PriceChart(chartdata.SeedRequest(stock, sample.SeedHistoryStart, primary))
	if err != nil {
		return fmt.Errorf("building default chart: %w", err)
	}

	s.mu.Lock()
	s.session = chartdata.Session{Symbol: stock.Symbol, Price: price}
	s.mu.Unlock()

	if err := s.refreshPortfolio(ctx); err != nil {
		return err
	}
	s.log.Info("dashboard initialized", "symbol", stock.Symbol, "labels", len(price.Labels))
	return nil
}

// RegisterRoutes registers all API routes on the given mux.
func (s *DashboardServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stocks", s.handleStocks)
	mux.HandleFunc("GET /api/stocks/{symbol}", s.handleStock)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/select/{symbol}", s.handleSelect)
	mux.HandleFunc("GET /api/chart", s.handleSessionChart)
	mux.HandleFunc("GET /api/chart/{symbol}", s.handleStockChart)
	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("GET /api/models/{symbol}", s.handleStockModels)
	mux.HandleFunc("GET /api/portfolio", s.handlePortfolio)
	mux.HandleFunc("POST /api/portfolio", s.handleAddPosition)
	mux.HandleFunc("DELETE /api/portfolio/{symbol}", s.handleRemovePosition)
	mux.HandleFunc("GET /api/portfolio/chart", s.handlePortfolioChart)
	mux.HandleFunc("GET /api/news", s.handleNews)
	mux.HandleFunc("GET /api/sentiment", s.handleSentiment)
	mux.HandleFunc("GET /api/snapshots/{symbol}", s.handleSnapshotDates)
	mux.HandleFunc("GET /api/snapshots/{symbol}/{date}", s.handleSnapshot)
	mux.HandleFunc("GET /api/theme", s.handleGetTheme)
	mux.HandleFunc("PUT /api/theme/{theme}", s.handleSetTheme)
	mux.HandleFunc("POST /api/theme/toggle", s.handleToggleTheme)
	mux.HandleFunc("GET /api/theme/events", s.handleThemeEvents)
	mux.HandleFunc("GET /api/theme/ws", s.handleThemeWS)
}

// Handler returns an http.Handler with CORS and request logging middleware.
func (s *DashboardServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return requestLogger(s.log, corsMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding JSON response", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeErr maps a domain error to its HTTP status.
func (s *DashboardServer) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sample.ErrUnknownSymbol), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chartdata.ErrInvalidArgument),
		errors.Is(err, dashboard.ErrInvalidPosition),
		errors.Is(err, dashboard.ErrEmptySearch),
		errors.Is(err, prefs.ErrInvalidTheme):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// primary returns the model driving price chart targets.
func (s *DashboardServer) primary() domain.PredictionModel {
	m, _ := dashboard.PrimaryModel(s.catalog.Models())
	return m
}

// ---------------------------------------------------------------------------
// Stocks and charts
// ---------------------------------------------------------------------------

func (s *DashboardServer) handleStocks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StocksResponse{Stocks: convertStocks(s.catalog.Stocks())})
}

func (s *DashboardServer) handleStock(w http.ResponseWriter, r *http.Request) {
	stock, err := s.catalog.Lookup(r.PathValue("symbol"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, convertStock(stock))
}

func (s *DashboardServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	stock, err := dashboard.Search(s.catalog, r.URL.Query().Get("q"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, convertStock(stock))
}

func (s *DashboardServer) handleSelect(w http.ResponseWriter, r *http.Request) {
	stock, err := s.catalog.Lookup(r.PathValue("symbol"))
	if err != nil {
		s.writeErr(w, err)
		return
	}

	s.mu.Lock()
	next, err := s.charts.Select(s.session, stock, s.primary())
	if err == nil {
		s.session = next
	}
	s.mu.Unlock()
	if err != nil {
		s.writeErr(w, err)
		return
	}

	s.log.Info("stock selected", "symbol", stock.Symbol)
	models := dashboard.ModelsForStock(stock, s.catalog.Models(), s.charts.Source())
	writeJSON(w, StockViewResponse{
		Stock:  convertStock(stock),
		Chart:  convertChart(next.Price),
		Models: convertModels(models),
	})
}

func (s *DashboardServer) handleSessionChart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	chart := s.session.Price
	s.mu.Unlock()
	writeJSON(w, convertChart(chart))
}

func (s *DashboardServer) handleStockChart(w http.ResponseWriter, r *http.Request) {
	stock, err := s.catalog.Lookup(r.PathValue("symbol"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	chart, err := s.charts.PriceChart(chartdata.StockRequest(stock, s.primary()))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, convertChart(chart))
}

func (s *DashboardServer) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, ModelsResponse{Models: convertModels(s.catalog.Models())})
}

func (s *DashboardServer) handleStockModels(w http.ResponseWriter, r *http.Request) {
	stock, err := s.catalog.Lookup(r.PathValue("symbol"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	models := dashboard.ModelsForStock(stock, s.catalog.Models(), s.charts.Source())
	writeJSON(w, ModelsResponse{Symbol: stock.Symbol, Models: convertModels(models)})
}

// ---------------------------------------------------------------------------
// Portfolio
// ---------------------------------------------------------------------------

func (s *DashboardServer) rows(ctx context.Context) ([]dashboard.HoldingRow, error) {
	holdings, err := s.holdings.ListHoldings(ctx)
	if err != nil {
		return nil, err
	}
	return dashboard.BuildRows(holdings, s.catalog), nil
}

// refreshPortfolio rebuilds the portfolio value chart from stored holdings.
func (s *DashboardServer) refreshPortfolio(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	rows, err := s.rows(ctx)
	if err != nil {
		return fmt.Errorf("loading holdings: %w", err)
	}
	sum := dashboard.Summarize(rows)
	if sum.CostBasis <= 0 || sum.MarketValue <= 0 {
		s.mu.Lock()
		s.session.Portfolio = nil
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.charts.WithPortfolio(s.session, sum.CostBasis, sum.MarketValue)
	if err != nil {
		return fmt.Errorf("building portfolio chart: %w", err)
	}
	s.session = next
	return nil
}

func (s *DashboardServer) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	rows, err := s.rows(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, convertPortfolio(rows))
}

func (s *DashboardServer) handleAddPosition(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	h, err := dashboard.AddPosition(r.Context(), s.holdings, s.catalog, dashboard.Position{
		Symbol: req.Symbol,
		Shares: req.Shares,
		Cost:   req.Cost,
	})
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if err := s.refreshPortfolio(r.Context()); err != nil {
		s.log.Warn("refreshing portfolio chart", "error", err)
	}

	s.log.Info("position added", "symbol", h.Symbol, "shares", req.Shares, "cost", req.Cost)
	rows := dashboard.BuildRows([]domain.Holding{h}, s.catalog)
	writeJSON(w, PositionResponse{
		Holding: convertRow(rows[0]),
		Message: fmt.Sprintf("Added %s shares of %s to portfolio", dashboard.FormatInt(req.Shares), h.Symbol),
	})
}

func (s *DashboardServer) handleRemovePosition(w http.ResponseWriter, r *http.Request) {
	symbol := sample.NormalizeSymbol(r.PathValue("symbol"))
	if err := s.holdings.DeleteHolding(r.Context(), symbol); err != nil {
		s.writeErr(w, err)
		return
	}
	if err := s.refreshPortfolio(r.Context()); err != nil {
		s.log.Warn("refreshing portfolio chart", "error", err)
	}
	s.log.Info("position removed", "symbol", symbol)
	rows, err := s.rows(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, convertPortfolio(rows))
}

func (s *DashboardServer) handlePortfolioChart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	chart := s.session.Portfolio
	s.mu.Unlock()
	writeJSON(w, convertChart(chart))
}

// ---------------------------------------------------------------------------
// News and sentiment
// ---------------------------------------------------------------------------

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

func (s *DashboardServer) handleSnapshotDates(w http.ResponseWriter, r *http.Request) {
	symbol := sample.NormalizeSymbol(r.PathValue("symbol"))
	dates, err := s.snapshots.ListChartDates(symbol)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, SnapshotDatesResponse{Symbol: symbol, Dates: dates})
}

func (s *DashboardServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := sample.NormalizeSymbol(r.PathValue("symbol"))
	day, err := time.Parse("2006-01-02", r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	chart, err := s.snapshots.ReadChart(symbol, day)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, convertChart(chart))
}

func (s *DashboardServer) handleNews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, NewsResponse{Articles: convertNews(s.catalog.News())})
}

func (s *DashboardServer) handleSentiment(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, convertSentiment(s.catalog.Sentiment()))
}

// ---------------------------------------------------------------------------
// Theme
// ---------------------------------------------------------------------------

// preferred reads the client's color scheme hint from ?prefers=.
func preferred(r *http.Request) domain.Theme {
	return domain.Theme(r.URL.Query().Get("prefers"))
}

func (s *DashboardServer) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, themeResponse(s.prefs, s.prefs.Effective(preferred(r))))
}

func (s *DashboardServer) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	t := domain.Theme(r.PathValue("theme"))
	if err := s.prefs.Set(t); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, themeResponse(s.prefs, t))
}

func (s *DashboardServer) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	t, err := s.prefs.Toggle(preferred(r))
	if err != nil {
		// The new theme is live in memory even when persisting failed.
		s.log.Warn("persisting theme", "error", err)
	}
	writeJSON(w, themeResponse(s.prefs, t))
}

// handleThemeEvents streams theme changes as server-sent events, starting
// with a snapshot of the effective theme.
func (s *DashboardServer) handleThemeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	subID, ch := s.prefs.Subscribe(16)
	defer s.prefs.Unsubscribe(subID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	send := func(e prefs.Event) error {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := send(prefs.Event{Type: "snapshot", Theme: s.prefs.Effective(preferred(r))}); err != nil {
		return
	}
	s.log.Debug("theme events client subscribed", "subID", subID)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("theme events client disconnected", "subID", subID)
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := send(e); err != nil {
				return
			}
		}
	}
}

// handleThemeWS pushes the same events as handleThemeEvents over a
// WebSocket. Incoming messages are ignored.
func (s *DashboardServer) handleThemeWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Warn("websocket accept", "error", err)
		return
	}
	defer c.CloseNow()

	subID, ch := s.prefs.Subscribe(16)
	defer s.prefs.Unsubscribe(subID)

	ctx := c.CloseRead(r.Context())
	write := func(e prefs.Event) error {
		wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return wsjson.Write(wctx, c, e)
	}

	if err := write(prefs.Event{Type: "snapshot", Theme: s.prefs.Effective(preferred(r))}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := write(e); err != nil {
				return
			}
		}
	}
}
