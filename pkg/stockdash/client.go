// Package stockdash is a Go client for the dash-server HTTP API.
package stockdash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"stockdash/internal/httpapi"
)

// Client provides a Go SDK for interacting with the dash-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	// GET requests are retried on transport errors.
	maxRetries      uint64
	initialInterval time.Duration
}

// ClientOptions holds options for creating a new Client.
type ClientOptions struct {
	Timeout         time.Duration
	RequestsPerSec  int
	MaxRetries      uint64
	InitialInterval time.Duration
}

// NewClient creates a new dashboard API client with default options.
func NewClient(baseURL string) *Client {
	return NewClientWithOptions(baseURL, ClientOptions{})
}

// NewClientWithOptions creates a client; zero fields take defaults.
func NewClientWithOptions(baseURL string, opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 10
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.InitialInterval == 0 {
		opts.InitialInterval = 200 * time.Millisecond
	}
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		httpClient:      &http.Client{Timeout: opts.Timeout},
		limiter:         rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
		maxRetries:      opts.MaxRetries,
		initialInterval: opts.InitialInterval,
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stockdash: %d: %s", e.Status, e.Message)
}

// Stocks retrieves all quoted stocks.
func (c *Client) Stocks(ctx context.Context) ([]httpapi.StockJSON, error) {
	var resp httpapi.StocksResponse
	if err := c.do(ctx, http.MethodGet, "/api/stocks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Stocks, nil
}

// Select makes symbol the server's current stock and returns its view.
func (c *Client) Select(ctx context.Context, symbol string) (*httpapi.StockViewResponse, error) {
	var resp httpapi.StockViewResponse
	if err := c.do(ctx, http.MethodPost, "/api/select/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Chart retrieves the server's current price chart.
func (c *Client) Chart(ctx context.Context) (*httpapi.ChartJSON, error) {
	var resp httpapi.ChartJSON
	if err := c.do(ctx, http.MethodGet, "/api/chart", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Models retrieves the ranked prediction models.
func (c *Client) Models(ctx context.Context) ([]httpapi.ModelJSON, error) {
	var resp httpapi.ModelsResponse
	if err := c.do(ctx, http.MethodGet, "/api/models", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// Portfolio retrieves holdings and their summary.
func (c *Client) Portfolio(ctx context.Context) (*httpapi.PortfolioResponse, error) {
	var resp httpapi.PortfolioResponse
	if err := c.do(ctx, http.MethodGet, "/api/portfolio", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddPosition buys shares of symbol at cost per share.
func (c *Client) AddPosition(ctx context.Context, symbol string, shares int, cost float64) (*httpapi.PositionResponse, error) {
	body := httpapi.PositionRequest{Symbol: symbol, Shares: shares, Cost: cost}
	var resp httpapi.PositionResponse
	if err := c.do(ctx, http.MethodPost, "/api/portfolio", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemovePosition deletes the holding for symbol and returns the remaining
// portfolio.
func (c *Client) RemovePosition(ctx context.Context, symbol string) (*httpapi.PortfolioResponse, error) {
	var resp httpapi.PortfolioResponse
	if err := c.do(ctx, http.MethodDelete, "/api/portfolio/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SnapshotDates lists the days with an archived chart for symbol.
func (c *Client) SnapshotDates(ctx context.Context, symbol string) ([]string, error) {
	var resp httpapi.SnapshotDatesResponse
	if err := c.do(ctx, http.MethodGet, "/api/snapshots/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Dates, nil
}

// Snapshot retrieves the chart archived for symbol on date (YYYY-MM-DD).
func (c *Client) Snapshot(ctx context.Context, symbol, date string) (*httpapi.ChartJSON, error) {
	var resp httpapi.ChartJSON
	path := "/api/snapshots/" + url.PathEscape(symbol) + "/" + url.PathEscape(date)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// News retrieves the scored news feed.
func (c *Client) News(ctx context.Context) ([]httpapi.NewsArticleJSON, error) {
	var resp httpapi.NewsResponse
	if err := c.do(ctx, http.MethodGet, "/api/news", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Articles, nil
}

// Sentiment retrieves the overall market sentiment.
func (c *Client) Sentiment(ctx context.Context) (*httpapi.SentimentJSON, error) {
	var resp httpapi.SentimentJSON
	if err := c.do(ctx, http.MethodGet, "/api/sentiment", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var data []byte
	if in != nil {
		var err error
		if data, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	send := func() (*http.Response, error) {
		var body io.Reader
		if data != nil {
			body = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		r, err := send()
		if err != nil {
			if method != http.MethodGet {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = c.initialInterval
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(strategy, c.maxRetries), ctx)); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
