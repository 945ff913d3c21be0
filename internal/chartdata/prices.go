package chartdata

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument is returned for day counts or prices outside a
// generator's contract.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	// historicalVolatility bounds the per-step random move to ±1% of price.
	historicalVolatility = 0.01
	// historicalPull scales how strongly each step drifts toward the target.
	historicalPull = 0.1
	// predictionNoise bounds the per-step forecast noise to ±0.2% of price.
	predictionNoise = 0.002
)

func checkPrice(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%w: %s must be a positive finite price, got %v", ErrInvalidArgument, name, v)
	}
	return nil
}

// HistoricalPrices walks from start toward end over days steps. The first
// days-1 values follow a random walk pulled toward end; the final value is
// exactly end so the line always lands on the known current price.
func HistoricalPrices(src Source, start, end float64, days int) ([]float64, error) {
	if err := checkPrice("start price", start); err != nil {
		return nil, err
	}
	if err := checkPrice("end price", end); err != nil {
		return nil, err
	}
	if days < 1 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", ErrInvalidArgument, days)
	}

	prices := make([]float64, 0, days)
	current := start
	for i := 0; i < days-1; i++ {
		bias := (end - current) / float64(days-i) * historicalPull
		move := src.Float64()*historicalVolatility*2 - historicalVolatility
		current += current * (move + bias)
		prices = append(prices, current)
	}
	return append(prices, end), nil
}

// PredictionPrices interpolates linearly from start toward end over days
// steps with small multiplicative noise. The last value is not forced to end
// and may drift by the accumulated noise. Zero days yields an empty slice.
func PredictionPrices(src Source, start, end float64, days int) ([]float64, error) {
	if err := checkPrice("start price", start); err != nil {
		return nil, err
	}
	if err := checkPrice("end price", end); err != nil {
		return nil, err
	}
	if days < 0 {
		return nil, fmt.Errorf("%w: days must not be negative, got %d", ErrInvalidArgument, days)
	}

	prices := make([]float64, 0, days)
	if days == 0 {
		return prices, nil
	}
	step := (end - start) / float64(days)
	current := start
	for i := 0; i < days; i++ {
		noise := current * predictionNoise * (src.Float64()*2 - 1)
		current += step + noise
		prices = append(prices, current)
	}
	return prices, nil
}
