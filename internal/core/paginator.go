package core

import (
	"context"
	"fmt"

	"binance-futures-export/internal/metrics"
	"binance-futures-export/internal/model"
)

const (
	// PageSize is requested on every bulk page. A page this long means
	// more records may follow.
	PageSize = 1000

	// ProbeWindow is the span of one discovery request, in millis. Binance
	// rejects userTrades time ranges longer than seven days.
	ProbeWindow int64 = 7 * 24 * 60 * 60 * 1000
)

// HistoryClient is the account history side of the futures API.
type HistoryClient interface {
	GetUserTradesInWindow(ctx context.Context, symbol string, start, end int64, limit int) ([]model.Record, error)
	GetUserTradesFromID(ctx context.Context, symbol string, fromID int64, limit int) ([]model.Record, error)
	GetAllOrdersFromID(ctx context.Context, symbol string, orderID int64, limit int) ([]model.Record, error)
}

// TradePaginator finds a symbol's first trade and pages through its trades.
type TradePaginator struct {
	Client  HistoryClient
	Tracker *metrics.Tracker
}

// Discover probes week-long windows from the listing time up to cutoff for
// the first trade. It returns the trade cursor and the order cursor seeded
// from that trade's order; both are Exhausted when no trade exists.
func (p *TradePaginator) Discover(ctx context.Context, symbol model.Symbol, cutoff int64) (trades, orders model.Cursor, err error) {
	if symbol.ListingTime > cutoff {
		return model.Exhausted(), model.Exhausted(), nil
	}

	start := symbol.ListingTime
	for {
		end := start + ProbeWindow
		last := end >= cutoff
		if last {
			end = cutoff
		}

		page, err := p.Client.GetUserTradesInWindow(ctx, symbol.Name, start, end, 1)
		if err != nil {
			return model.Cursor{}, model.Cursor{}, fmt.Errorf("probe %s trades [%d, %d]: %w", symbol.Name, start, end, err)
		}
		p.Tracker.TrackPage("probe", len(page))

		if len(page) > 0 {
			first := page[0]
			if missing := first.Missing(model.FieldID, model.FieldOrderID); len(missing) > 0 {
				return model.Cursor{}, model.Cursor{}, fmt.Errorf("probe %s trades: trade without %v", symbol.Name, missing)
			}
			return model.Active(first.ID()), model.Active(first.OrderID()), nil
		}
		if last {
			return model.Exhausted(), model.Exhausted(), nil
		}
		start = end
	}
}

// Drain fetches trade pages from the cursor until the stream is exhausted.
func (p *TradePaginator) Drain(ctx context.Context, symbol string, cursor model.Cursor) ([]model.Record, error) {
	return drain(ctx, "trades", symbol, cursor, p.Client.GetUserTradesFromID, model.Record.ID, p.Tracker)
}

// OrderPaginator pages through a symbol's orders. It has no discovery of
// its own: its cursor comes from the trade paginator or a checkpoint.
type OrderPaginator struct {
	Client  HistoryClient
	Tracker *metrics.Tracker
}

func (p *OrderPaginator) Drain(ctx context.Context, symbol string, cursor model.Cursor) ([]model.Record, error) {
	return drain(ctx, "orders", symbol, cursor, p.Client.GetAllOrdersFromID, model.Record.OrderID, p.Tracker)
}

type pageFunc func(ctx context.Context, symbol string, id int64, limit int) ([]model.Record, error)

func drain(ctx context.Context, stream, symbol string, cursor model.Cursor, fetch pageFunc, idOf func(model.Record) int64, tracker *metrics.Tracker) ([]model.Record, error) {
	var out []model.Record
	for cursor.IsActive() {
		id, _ := cursor.ID()

		page, err := fetch(ctx, symbol, id, PageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch %s %s from %d: %w", symbol, stream, id, err)
		}
		tracker.TrackPage(stream, len(page))
		out = append(out, page...)

		var lastID int64
		if len(page) > 0 {
			lastID = idOf(page[len(page)-1])
		}
		next := cursor.Advance(len(page), PageSize, lastID)
		if next.IsActive() && lastID <= id {
			return nil, fmt.Errorf("fetch %s %s from %d: full page did not move past %d", symbol, stream, id, lastID)
		}
		cursor = next
	}
	return out, nil
}
