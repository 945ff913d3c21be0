// Package sample holds the dashboard's built-in market data: quotes,
// prediction models, news, sentiment and the starting portfolio.
package sample

import (
	"errors"
	"fmt"
	"strings"

	"stockdash/internal/domain"
)

// ErrUnknownSymbol is returned when a symbol is not in the catalog.
var ErrUnknownSymbol = errors.New("unknown symbol")

// SeedSymbol and SeedHistoryStart describe the chart shown before any stock
// is selected.
const (
	SeedSymbol       = "AAPL"
	SeedHistoryStart = 165.00
)

// Catalog is an immutable set of sample data. Accessors return copies.
type Catalog struct {
	stocks    []domain.Stock
	models    []domain.PredictionModel
	news      []domain.NewsArticle
	sentiment domain.Sentiment
	holdings  []domain.Holding
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		stocks: []domain.Stock{
			{Symbol: "AAPL", Name: "Apple Inc.", Price: 175.43, Change: 2.15, ChangePercent: 1.24},
			{Symbol: "GOOGL", Name: "Alphabet Inc.", Price: 2847.63, Change: -15.22, ChangePercent: -0.53},
			{Symbol: "MSFT", Name: "Microsoft Corp.", Price: 378.85, Change: 5.67, ChangePercent: 1.52},
			{Symbol: "TSLA", Name: "Tesla Inc.", Price: 248.42, Change: -8.33, ChangePercent: -3.24},
			{Symbol: "AMZN", Name: "Amazon.com Inc.", Price: 3342.88, Change: 12.45, ChangePercent: 0.37},
		},
		models: []domain.PredictionModel{
			{Name: "LSTM", Accuracy: 87.3, Prediction: 182.45, Confidence: 0.85},
			{Name: "ARIMA", Accuracy: 73.1, Prediction: 179.22, Confidence: 0.72},
			{Name: "Linear Regression", Accuracy: 65.8, Prediction: 176.88, Confidence: 0.68},
		},
		sentiment: domain.Sentiment{
			Overall:      domain.SentimentPositive,
			Score:        0.65,
			NewsCount:    45,
			PositiveNews: 28,
			NegativeNews: 12,
			NeutralNews:  5,
		},
		news: []domain.NewsArticle{
			{Title: "Apple Reports Strong Q4 Earnings", Sentiment: domain.SentimentPositive, Score: 0.8, Source: "Financial Times"},
			{Title: "iPhone Sales Exceed Expectations", Sentiment: domain.SentimentPositive, Score: 0.75, Source: "Reuters"},
			{Title: "Supply Chain Concerns for Tech Sector", Sentiment: domain.SentimentNegative, Score: -0.6, Source: "Bloomberg"},
			{Title: "Tech Stocks Rally Amid AI Optimism", Sentiment: domain.SentimentPositive, Score: 0.7, Source: "Wall Street Journal"},
			{Title: "Market Volatility Continues", Sentiment: domain.SentimentNegative, Score: -0.4, Source: "CNBC"},
		},
		holdings: []domain.Holding{
			{Symbol: "AAPL", Shares: 10, AvgCost: 165.00, CurrentValue: 1754.30},
			{Symbol: "MSFT", Shares: 5, AvgCost: 350.00, CurrentValue: 1894.25},
		},
	}
}

// Stocks returns all quotes in display order.
func (c *Catalog) Stocks() []domain.Stock {
	return append([]domain.Stock(nil), c.stocks...)
}

// Symbols returns the quoted symbols in display order.
func (c *Catalog) Symbols() []string {
	out := make([]string, len(c.stocks))
	for i, s := range c.stocks {
		out[i] = s.Symbol
	}
	return out
}

// Models returns the prediction models in their configured order.
func (c *Catalog) Models() []domain.PredictionModel {
	return append([]domain.PredictionModel(nil), c.models...)
}

// News returns the canned news articles.
func (c *Catalog) News() []domain.NewsArticle {
	return append([]domain.NewsArticle(nil), c.news...)
}

// Sentiment returns the overall news sentiment summary.
func (c *Catalog) Sentiment() domain.Sentiment {
	return c.sentiment
}

// Holdings returns the starting portfolio.
func (c *Catalog) Holdings() []domain.Holding {
	return append([]domain.Holding(nil), c.holdings...)
}

// NormalizeSymbol trims whitespace and upper-cases a user-entered symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Lookup finds a stock by symbol, ignoring case and surrounding whitespace.
// The error for a miss lists the symbols that are available.
func (c *Catalog) Lookup(symbol string) (domain.Stock, error) {
	sym := NormalizeSymbol(symbol)
	for _, s := range c.stocks {
		if s.Symbol == sym {
			return s, nil
		}
	}
	return domain.Stock{}, fmt.Errorf("%w: stock symbol %q not found. Available symbols: %s",
		ErrUnknownSymbol, sym, strings.Join(c.Symbols(), ", "))
}
