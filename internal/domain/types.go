// Package domain defines the value types shared across the dashboard:
// stocks, prediction models, news, sentiment, portfolio holdings and themes.
package domain

// Stock is a quoted equity shown on the dashboard.
type Stock struct {
	Symbol        string
	Name          string
	Price         float64
	Change        float64
	ChangePercent float64
}

// Positive reports whether the day's change is non-negative.
func (s Stock) Positive() bool {
	return s.Change >= 0
}

// PredictionModel is a forecasting model's self-reported result for a stock.
type PredictionModel struct {
	Name       string
	Accuracy   float64 // percent, 0-100
	Prediction float64 // forecast price
	Confidence float64 // 0-1
}

// SentimentLabel classifies a news item or the overall market mood.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "Positive"
	SentimentNegative SentimentLabel = "Negative"
	SentimentNeutral  SentimentLabel = "Neutral"
)

// Sentiment summarizes news sentiment across all tracked articles.
type Sentiment struct {
	Overall      SentimentLabel
	Score        float64
	NewsCount    int
	PositiveNews int
	NegativeNews int
	NeutralNews  int
}

// NewsArticle is a single headline with its sentiment score.
type NewsArticle struct {
	Title     string
	Sentiment SentimentLabel
	Score     float64
	Source    string
}

// Holding is a portfolio position. CurrentValue is the market value as of
// the last time the position changed.
type Holding struct {
	Symbol       string
	Shares       int
	AvgCost      float64
	CurrentValue float64
}

// CostBasis returns the total amount paid for the position.
func (h Holding) CostBasis() float64 {
	return h.AvgCost * float64(h.Shares)
}

// Theme is the dashboard color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Opposite returns the other theme. Anything that is not dark flips to dark.
func (t Theme) Opposite() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}
