package chartdata

import "stockdash/internal/domain"

// Session holds the charts currently shown to one viewer. It is passed into
// and returned from the Assembler rather than kept in package state.
type Session struct {
	Symbol    string
	Price     *Chart
	Portfolio *Chart
}

// Select returns s with its price chart rebuilt for stock. On error s is
// returned unchanged.
func (a *Assembler) Select(s Session, stock domain.Stock, primary domain.PredictionModel) (Session, error) {
	chart, err := a.PriceChart(StockRequest(stock, primary))
	if err != nil {
		return s, err
	}
	s.Symbol = stock.Symbol
	s.Price = chart
	return s, nil
}

// WithPortfolio returns s with a portfolio value chart walking from the
// cost basis to the current market value.
func (a *Assembler) WithPortfolio(s Session, costBasis, marketValue float64) (Session, error) {
	chart, err := a.ValueChart("Portfolio Value", costBasis, marketValue)
	if err != nil {
		return s, err
	}
	s.Portfolio = chart
	return s, nil
}
