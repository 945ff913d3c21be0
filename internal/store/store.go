// Package store defines storage interfaces for persisting portfolio holdings
// and generated chart snapshots.
package store

import (
	"context"
	"errors"

	"stockdash/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// HoldingStore persists and retrieves portfolio holdings.
type HoldingStore interface {
	// ListHoldings returns all holdings in the order they were first added.
	ListHoldings(ctx context.Context) ([]domain.Holding, error)

	// GetHolding retrieves the holding for a symbol, or ErrNotFound.
	GetHolding(ctx context.Context, symbol string) (*domain.Holding, error)

	// UpdateHolding atomically replaces the holding for symbol with the
	// result of fn, which receives nil when there is none yet.
	UpdateHolding(ctx context.Context, symbol string, fn func(*domain.Holding) (domain.Holding, error)) (domain.Holding, error)

	// DeleteHolding removes the holding for a symbol.
	DeleteHolding(ctx context.Context, symbol string) error
}
