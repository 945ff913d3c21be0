package dashboard

import (
	"errors"

	"stockdash/internal/domain"
	"stockdash/internal/sample"
)

// ErrEmptySearch is returned by Search for a blank query.
var ErrEmptySearch = errors.New("please enter a stock symbol")

// Search resolves a free-text query to a quoted stock. The query is matched
// as a symbol after trimming and upper-casing.
func Search(cat *sample.Catalog, query string) (domain.Stock, error) {
	if sample.NormalizeSymbol(query) == "" {
		return domain.Stock{}, ErrEmptySearch
	}
	return cat.Lookup(query)
}
