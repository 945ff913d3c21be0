// Package httpapi provides the HTTP REST API for the stock dashboard,
// serving quotes, charts, models, portfolio and theme state as JSON.
package httpapi

import (
	"stockdash/internal/chartdata"
	"stockdash/internal/dashboard"
	"stockdash/internal/domain"
	"stockdash/internal/prefs"
)

// StockJSON is the JSON representation of a quoted stock.
type StockJSON struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	ChangeText    string  `json:"changeText"` // "+2.15 (+1.24%)"
	Class         string  `json:"class"`      // "positive" or "negative"
}

// DatasetJSON is one chart line. Data holds null for unplotted points.
type DatasetJSON struct {
	Label string           `json:"label"`
	Kind  string           `json:"kind"`
	Data  chartdata.Series `json:"data"`
}

// ChartJSON is a renderer-ready chart.
type ChartJSON struct {
	Title    string        `json:"title,omitempty"`
	YAxis    string        `json:"yAxis"`
	Labels   []string      `json:"labels"`
	Datasets []DatasetJSON `json:"datasets"`
}

// ModelJSON is a ranked prediction model.
type ModelJSON struct {
	Name           string  `json:"name"`
	Rank           int     `json:"rank"`
	Best           bool    `json:"best,omitempty"`
	Accuracy       float64 `json:"accuracy"`
	Prediction     float64 `json:"prediction"`
	Confidence     float64 `json:"confidence"`
	AccuracyText   string  `json:"accuracyText"`
	PredictionText string  `json:"predictionText"`
	ConfidenceText string  `json:"confidenceText"`
}

// ModelsResponse lists models in rank order.
type ModelsResponse struct {
	Symbol string      `json:"symbol,omitempty"`
	Models []ModelJSON `json:"models"`
}

// StockViewResponse is returned when a stock is selected.
type StockViewResponse struct {
	Stock  StockJSON   `json:"stock"`
	Chart  ChartJSON   `json:"chart"`
	Models []ModelJSON `json:"models"`
}

// StocksResponse lists all quoted stocks.
type StocksResponse struct {
	Stocks []StockJSON `json:"stocks"`
}

// HoldingJSON is one portfolio row.
type HoldingJSON struct {
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	Shares       int     `json:"shares"`
	SharesText   string  `json:"sharesText"` // "1,250"
	AvgCost      float64 `json:"avgCost"`
	CurrentPrice float64 `json:"currentPrice"`
	CurrentValue float64 `json:"currentValue"`
	GainLoss     float64 `json:"gainLoss"`
	GainLossPct  float64 `json:"gainLossPct"`
	GainLossText string  `json:"gainLossText"`
	Class        string  `json:"class"`
}

// SummaryJSON totals the portfolio.
type SummaryJSON struct {
	CostBasis    float64 `json:"costBasis"`
	MarketValue  float64 `json:"marketValue"`
	GainLoss     float64 `json:"gainLoss"`
	GainLossPct  float64 `json:"gainLossPct"`
	GainLossText string  `json:"gainLossText"`
}

// PortfolioResponse is the response for the portfolio endpoint.
type PortfolioResponse struct {
	Holdings []HoldingJSON `json:"holdings"`
	Summary  SummaryJSON   `json:"summary"`
}

// PositionRequest is the body of POST /api/portfolio.
type PositionRequest struct {
	Symbol string  `json:"symbol"`
	Shares int     `json:"shares"`
	Cost   float64 `json:"cost"`
}

// PositionResponse reports the merged holding and a status message.
type PositionResponse struct {
	Holding HoldingJSON `json:"holding"`
	Message string      `json:"message"`
}

// SnapshotDatesResponse lists the days with an archived chart for a symbol.
type SnapshotDatesResponse struct {
	Symbol string   `json:"symbol"`
	Dates  []string `json:"dates"`
}

// NewsArticleJSON is a single scored headline.
type NewsArticleJSON struct {
	Title     string  `json:"title"`
	Sentiment string  `json:"sentiment"`
	Score     float64 `json:"score"`
	Source    string  `json:"source"`
}

// NewsResponse holds the news feed.
type NewsResponse struct {
	Articles []NewsArticleJSON `json:"articles"`
}

// SentimentJSON summarizes market sentiment.
type SentimentJSON struct {
	Overall      string  `json:"overall"`
	Score        float64 `json:"score"`
	NewsCount    int     `json:"newsCount"`
	PositiveNews int     `json:"positiveNews"`
	NegativeNews int     `json:"negativeNews"`
	NeutralNews  int     `json:"neutralNews"`
}

// ThemeResponse reports the effective theme.
type ThemeResponse struct {
	Theme  domain.Theme `json:"theme"`
	Title  string       `json:"title"` // toggle button hint
	Stored bool         `json:"stored"`
}

func convertStock(s domain.Stock) StockJSON {
	return StockJSON{
		Symbol:        s.Symbol,
		Name:          s.Name,
		Price:         s.Price,
		Change:        s.Change,
		ChangePercent: s.ChangePercent,
		ChangeText:    dashboard.FormatStockChange(s),
		Class:         dashboard.ChangeClass(s.Change),
	}
}

func convertStocks(stocks []domain.Stock) []StockJSON {
	out := make([]StockJSON, 0, len(stocks))
	for _, s := range stocks {
		out = append(out, convertStock(s))
	}
	return out
}

func convertChart(c *chartdata.Chart) ChartJSON {
	if c == nil {
		return ChartJSON{Labels: []string{}, Datasets: []DatasetJSON{}}
	}
	ds := make([]DatasetJSON, 0, len(c.Datasets))
	for _, d := range c.Datasets {
		ds = append(ds, DatasetJSON{Label: d.Label, Kind: string(d.Kind), Data: d.Data})
	}
	return ChartJSON{
		Title:    c.Title,
		YAxis:    c.YAxis,
		Labels:   c.Labels,
		Datasets: ds,
	}
}

func convertModels(models []domain.PredictionModel) []ModelJSON {
	ranked := dashboard.RankModels(models)
	out := make([]ModelJSON, 0, len(ranked))
	for _, m := range ranked {
		out = append(out, ModelJSON{
			Name:           m.Name,
			Rank:           m.Rank,
			Best:           m.Best,
			Accuracy:       m.Accuracy,
			Prediction:     m.Prediction,
			Confidence:     m.Confidence,
			AccuracyText:   dashboard.FormatAccuracy(m.Accuracy),
			PredictionText: dashboard.FormatPrice(m.Prediction),
			ConfidenceText: dashboard.FormatConfidence(m.Confidence),
		})
	}
	return out
}

func convertRow(r dashboard.HoldingRow) HoldingJSON {
	return HoldingJSON{
		Symbol:       r.Symbol,
		Name:         r.Name,
		Shares:       r.Shares,
		SharesText:   dashboard.FormatInt(r.Shares),
		AvgCost:      r.AvgCost,
		CurrentPrice: r.CurrentPrice,
		CurrentValue: r.CurrentValue,
		GainLoss:     r.GainLoss,
		GainLossPct:  r.GainLossPct,
		GainLossText: dashboard.FormatGainLoss(r.GainLoss, r.GainLossPct),
		Class:        dashboard.ChangeClass(r.GainLoss),
	}
}

func convertPortfolio(rows []dashboard.HoldingRow) PortfolioResponse {
	holdings := make([]HoldingJSON, 0, len(rows))
	for _, r := range rows {
		holdings = append(holdings, convertRow(r))
	}
	sum := dashboard.Summarize(rows)
	return PortfolioResponse{
		Holdings: holdings,
		Summary: SummaryJSON{
			CostBasis:    sum.CostBasis,
			MarketValue:  sum.MarketValue,
			GainLoss:     sum.GainLoss,
			GainLossPct:  sum.GainLossPct,
			GainLossText: dashboard.FormatGainLoss(sum.GainLoss, sum.GainLossPct),
		},
	}
}

func convertNews(articles []domain.NewsArticle) []NewsArticleJSON {
	out := make([]NewsArticleJSON, 0, len(articles))
	for _, a := range articles {
		out = append(out, NewsArticleJSON{
			Title:     a.Title,
			Sentiment: string(a.Sentiment),
			Score:     a.Score,
			Source:    a.Source,
		})
	}
	return out
}

func convertSentiment(s domain.Sentiment) SentimentJSON {
	return SentimentJSON{
		Overall:      string(s.Overall),
		Score:        s.Score,
		NewsCount:    s.NewsCount,
		PositiveNews: s.PositiveNews,
		NegativeNews: s.NegativeNews,
		NeutralNews:  s.NeutralNews,
	}
}

func themeResponse(p *prefs.Store, t domain.Theme) ThemeResponse {
	_, stored := p.Stored()
	return ThemeResponse{Theme: t, Title: prefs.ToggleTitle(t), Stored: stored}
}
