package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"

	"stockdash/internal/domain"
	"stockdash/internal/sample"
)

// ErrInvalidPosition is returned for a position with a missing symbol, a
// non-positive share count or cost, or totals that do not fit a holding.
var ErrInvalidPosition = errors.New("invalid position")

// unknownCompany names holdings whose symbol is no longer quoted.
const unknownCompany = "Unknown Company"

// HoldingRow is a portfolio holding joined with its current quote.
type HoldingRow struct {
	Symbol       string
	Name         string
	Shares       int
	AvgCost      float64
	CurrentValue float64
	CurrentPrice float64
	GainLoss     float64
	GainLossPct  float64
}

// Summary totals a portfolio.
type Summary struct {
	CostBasis   float64
	MarketValue float64
	GainLoss    float64
	GainLossPct float64
}

// BuildRows joins holdings with quotes from cat. Quoted holdings are valued
// at the current price; unquoted ones keep their stored value.
func BuildRows(holdings []domain.Holding, cat *sample.Catalog) []HoldingRow {
	rows := make([]HoldingRow, 0, len(holdings))
	for _, h := range holdings {
		row := HoldingRow{
			Symbol:       h.Symbol,
			Name:         unknownCompany,
			Shares:       h.Shares,
			AvgCost:      h.AvgCost,
			CurrentValue: h.CurrentValue,
		}
		if s, err := cat.Lookup(h.Symbol); err == nil {
			row.Name = s.Name
			row.CurrentPrice = s.Price
			row.CurrentValue = s.Price * float64(h.Shares)
		} else if h.Shares > 0 {
			row.CurrentPrice = h.CurrentValue / float64(h.Shares)
		}
		basis := h.CostBasis()
		row.GainLoss = row.CurrentValue - basis
		if basis > 0 {
			row.GainLossPct = row.GainLoss / basis * 100
		}
		rows = append(rows, row)
	}
	return rows
}

// Summarize totals rows.
func Summarize(rows []HoldingRow) Summary {
	var s Summary
	for _, r := range rows {
		s.CostBasis += r.AvgCost * float64(r.Shares)
		s.MarketValue += r.CurrentValue
	}
	s.GainLoss = s.MarketValue - s.CostBasis
	if s.CostBasis > 0 {
		s.GainLossPct = s.GainLoss / s.CostBasis * 100
	}
	return s
}

// Position is a request to buy shares at a per-share cost.
type Position struct {
	Symbol string
	Shares int
	Cost   float64
}

// ValidatePosition normalizes p's symbol and checks its fields.
func ValidatePosition(p Position) (Position, error) {
	p.Symbol = sample.NormalizeSymbol(p.Symbol)
	if p.Symbol == "" || p.Shares <= 0 || !finite(p.Cost) || p.Cost <= 0 ||
		!finite(p.Cost*float64(p.Shares)) {
		return p, fmt.Errorf("%w: please enter valid values for all fields", ErrInvalidPosition)
	}
	return p, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MergePosition applies p to an existing holding (nil for a new one) at
// stock's current price. Existing holdings get a share-weighted average
// cost. The merged holding must keep a positive share count and finite
// totals.
func MergePosition(existing *domain.Holding, stock domain.Stock, p Position) (domain.Holding, error) {
	var h domain.Holding
	if existing == nil {
		h = domain.Holding{
			Symbol:       stock.Symbol,
			Shares:       p.Shares,
			AvgCost:      p.Cost,
			CurrentValue: stock.Price * float64(p.Shares),
		}
	} else {
		if existing.Shares > math.MaxInt-p.Shares {
			return domain.Holding{}, fmt.Errorf("%w: share count too large", ErrInvalidPosition)
		}
		totalShares := existing.Shares + p.Shares
		totalCost := existing.CostBasis() + p.Cost*float64(p.Shares)
		h = domain.Holding{
			Symbol:       existing.Symbol,
			Shares:       totalShares,
			AvgCost:      totalCost / float64(totalShares),
			CurrentValue: stock.Price * float64(totalShares),
		}
	}
	if !finite(h.CostBasis()) || !finite(h.CurrentValue) {
		return domain.Holding{}, fmt.Errorf("%w: position value too large", ErrInvalidPosition)
	}
	return h, nil
}

// HoldingUpdater applies a read-modify-write to one holding atomically.
type HoldingUpdater interface {
	UpdateHolding(ctx context.Context, symbol string, fn func(*domain.Holding) (domain.Holding, error)) (domain.Holding, error)
}

// AddPosition validates p, resolves its stock in cat and merges it into the
// stored holding.
func AddPosition(ctx context.Context, u HoldingUpdater, cat *sample.Catalog, p Position) (domain.Holding, error) {
	p, err := ValidatePosition(p)
	if err != nil {
		return domain.Holding{}, err
	}
	stock, err := cat.Lookup(p.Symbol)
	if err != nil {
		return domain.Holding{}, err
	}
	return u.UpdateHolding(ctx, stock.Symbol, func(existing *domain.Holding) (domain.Holding, error) {
		return MergePosition(existing, stock, p)
	})
}
