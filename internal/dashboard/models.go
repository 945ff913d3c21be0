// Package dashboard holds the presentation logic behind the stock dashboard:
// model ranking, portfolio rows and position merging, and display formatting.
package dashboard

import (
	"sort"

	"stockdash/internal/chartdata"
	"stockdash/internal/domain"
)

// RankedModel is a prediction model in display order.
type RankedModel struct {
	domain.PredictionModel
	Rank int  // 1-based
	Best bool // highest accuracy
}

// RankModels sorts models by accuracy, highest first. Ties keep their
// configured order.
func RankModels(models []domain.PredictionModel) []RankedModel {
	sorted := append([]domain.PredictionModel(nil), models...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Accuracy > sorted[j].Accuracy
	})
	out := make([]RankedModel, len(sorted))
	for i, m := range sorted {
		out[i] = RankedModel{PredictionModel: m, Rank: i + 1, Best: i == 0}
	}
	return out
}

// PrimaryModel returns the highest-accuracy model. ok is false when models
// is empty.
func PrimaryModel(models []domain.PredictionModel) (m domain.PredictionModel, ok bool) {
	for i, cand := range models {
		if i == 0 || cand.Accuracy > m.Accuracy {
			m = cand
		}
	}
	return m, len(models) > 0
}

// ModelsForStock re-estimates each model's forecast for stock. The forecast
// is the current price plus a premium of confidence × 10%, jittered by ±10%.
func ModelsForStock(stock domain.Stock, models []domain.PredictionModel, src chartdata.Source) []domain.PredictionModel {
	out := make([]domain.PredictionModel, len(models))
	for i, m := range models {
		jitter := src.Float64()*0.2 + 0.9
		m.Prediction = stock.Price * (1 + m.Confidence*0.1*jitter)
		out[i] = m
	}
	return out
}
