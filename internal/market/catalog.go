package market

import (
	"context"
	"fmt"

	"binance-futures-export/internal/logger"
	"binance-futures-export/internal/model"
)

// ExchangeInfoClient is the catalog endpoint of the futures API.
type ExchangeInfoClient interface {
	GetExchangeInfo(ctx context.Context) (*model.ExchangeInfoResponse, error)
}

type Catalog struct {
	Binance ExchangeInfoClient
}

func NewCatalog(binance ExchangeInfoClient) *Catalog {
	return &Catalog{Binance: binance}
}

// ListSymbols returns every contract in catalog order with progress weights
// relative to cutoff. Delisted contracts are kept: they may still hold history.
func (c *Catalog) ListSymbols(ctx context.Context, cutoff int64) ([]model.Symbol, error) {
	info, err := c.Binance.GetExchangeInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exchange info: %w", err)
	}

	symbols := make([]model.Symbol, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		symbols = append(symbols, model.Symbol{
			Name:        s.Symbol,
			ListingTime: s.OnboardDate,
		})
	}
	ComputeWeights(symbols, cutoff)

	logger.Info("📋 Symbol catalog loaded", "symbols", len(symbols))
	return symbols, nil
}

// ComputeWeights sets each symbol's share of the total listed time up to
// cutoff, in percent, and the running sum of those shares. A symbol listed
// after cutoff weighs nothing; if nothing was listed before cutoff every
// symbol weighs the same.
func ComputeWeights(symbols []model.Symbol, cutoff int64) {
	if len(symbols) == 0 {
		return
	}

	since := make([]float64, len(symbols))
	var total float64
	for i, s := range symbols {
		if d := cutoff - s.ListingTime; d > 0 {
			since[i] = float64(d)
			total += since[i]
		}
	}

	var cumulative float64
	for i := range symbols {
		if total > 0 {
			symbols[i].Weight = since[i] / total * 100
		} else {
			symbols[i].Weight = 100 / float64(len(symbols))
		}
		cumulative += symbols[i].Weight
		symbols[i].CumulativeWeight = cumulative
	}
}
