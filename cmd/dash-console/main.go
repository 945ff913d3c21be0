package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"stockdash/internal/dashboard"
	"stockdash/internal/httpapi"
	"stockdash/pkg/stockdash"
)

// Styles.
var (
	gainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	titleStyle = lipgloss.NewStyle().Bold(true)
)

// colored renders text green for "positive" and red otherwise.
func colored(class, text string) string {
	if class == "positive" {
		return gainStyle.Render(text)
	}
	return lossStyle.Render(text)
}

func main() {
	_ = godotenv.Load()

	defaultURL := "http://localhost:8080"
	if u := os.Getenv("STOCKDASH_URL"); u != "" {
		defaultURL = u
	}
	serverURL := flag.String("server", defaultURL, "dashboard server base URL")
	symbol := flag.String("symbol", "", "select a stock and print its chart tail")
	tail := flag.Int("tail", 5, "chart points to print per window with -symbol")
	buy := flag.String("buy", "", "symbol to add to the portfolio")
	shares := flag.Int("shares", 0, "shares to buy with -buy")
	cost := flag.Float64("cost", 0, "cost per share with -buy")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := stockdash.NewClient(*serverURL)
	w := os.Stdout

	if *buy != "" {
		resp, err := c.AddPosition(ctx, *buy, *shares, *cost)
		if err != nil {
			log.Fatalf("adding position: %v", err)
		}
		fmt.Fprintln(w, titleStyle.Render(resp.Message))
		fmt.Fprintln(w)
	}

	stocks, err := c.Stocks(ctx)
	if err != nil {
		log.Fatalf("fetching stocks: %v", err)
	}
	printStocks(w, stocks)

	models, err := c.Models(ctx)
	if err != nil {
		log.Fatalf("fetching models: %v", err)
	}
	printModels(w, "Prediction Models", models)

	pf, err := c.Portfolio(ctx)
	if err != nil {
		log.Fatalf("fetching portfolio: %v", err)
	}
	printPortfolio(w, pf)

	news, err := c.News(ctx)
	if err != nil {
		log.Fatalf("fetching news: %v", err)
	}
	sent, err := c.Sentiment(ctx)
	if err != nil {
		log.Fatalf("fetching sentiment: %v", err)
	}
	printNews(w, sent, news)

	if *symbol != "" {
		view, err := c.Select(ctx, *symbol)
		if err != nil {
			log.Fatalf("selecting %s: %v", *symbol, err)
		}
		printModels(w, view.Stock.Symbol+" Models", view.Models)
		printChartTail(w, view.Chart, *tail)
	}
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	return t
}

func printStocks(w io.Writer, stocks []httpapi.StockJSON) {
	t := newTable(w, "Stocks")
	t.AppendHeader(table.Row{"Symbol", "Name", "Price", "Change"})
	for _, s := range stocks {
		t.AppendRow(table.Row{s.Symbol, s.Name, dashboard.FormatPrice(s.Price), colored(s.Class, s.ChangeText)})
	}
	t.Render()
	fmt.Fprintln(w)
}

func printModels(w io.Writer, title string, models []httpapi.ModelJSON) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"#", "Model", "Accuracy", "Prediction", "Confidence"})
	for _, m := range models {
		name := m.Name
		if m.Best {
			name += " *"
		}
		t.AppendRow(table.Row{m.Rank, name, m.AccuracyText, m.PredictionText, m.ConfidenceText})
	}
	t.Render()
	fmt.Fprintln(w)
}

func printPortfolio(w io.Writer, pf *httpapi.PortfolioResponse) {
	t := newTable(w, "Portfolio")
	t.AppendHeader(table.Row{"Symbol", "Name", "Shares", "Avg Cost", "Price", "Value", "Gain/Loss"})
	for _, h := range pf.Holdings {
		t.AppendRow(table.Row{
			h.Symbol, h.Name, h.SharesText,
			dashboard.FormatPrice(h.AvgCost),
			dashboard.FormatPrice(h.CurrentPrice),
			dashboard.FormatPrice(h.CurrentValue),
			colored(h.Class, h.GainLossText),
		})
	}
	t.AppendFooter(table.Row{"", "Total", "", dashboard.FormatPrice(pf.Summary.CostBasis), "",
		dashboard.FormatPrice(pf.Summary.MarketValue),
		colored(dashboard.ChangeClass(pf.Summary.GainLoss), pf.Summary.GainLossText)})
	t.Render()
	fmt.Fprintln(w)
}

func printNews(w io.Writer, sent *httpapi.SentimentJSON, news []httpapi.NewsArticleJSON) {
	title := fmt.Sprintf("News (%s %.2f, %s articles: %d+ %d- %d=)",
		sent.Overall, sent.Score, dashboard.FormatInt(sent.NewsCount), sent.PositiveNews, sent.NegativeNews, sent.NeutralNews)
	t := newTable(w, title)
	t.AppendHeader(table.Row{"Headline", "Sentiment", "Score", "Source"})
	for _, a := range news {
		t.AppendRow(table.Row{a.Title, a.Sentiment, fmt.Sprintf("%.2f", a.Score), a.Source})
	}
	t.Render()
	fmt.Fprintln(w)
}

// printChartTail prints the last n points of each dataset's plotted window.
func printChartTail(w io.Writer, chart httpapi.ChartJSON, n int) {
	t := newTable(w, chart.Title)
	header := table.Row{"Date"}
	for _, d := range chart.Datasets {
		header = append(header, d.Label)
	}
	t.AppendHeader(header)

	for i, label := range chart.Labels {
		if !nearWindowEnd(chart, i, n) {
			continue
		}
		row := table.Row{label}
		for _, d := range chart.Datasets {
			if i < len(d.Data) && d.Data[i].Valid {
				row = append(row, dashboard.FormatPrice(d.Data[i].Float64))
			} else {
				row = append(row, "")
			}
		}
		t.AppendRow(row)
	}
	t.Render()
}

// nearWindowEnd reports whether position i is among the last n plotted
// points of any dataset.
func nearWindowEnd(chart httpapi.ChartJSON, i, n int) bool {
	for _, d := range chart.Datasets {
		last := -1
		for j := len(d.Data) - 1; j >= 0; j-- {
			if d.Data[j].Valid {
				last = j
				break
			}
		}
		if last >= 0 && i <= last && i > last-n && d.Data[i].Valid {
			return true
		}
	}
	return false
}
