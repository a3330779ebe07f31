package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"binance-futures-export/internal/model"
)

func trade(t *testing.T, symbol string, id, orderID, time int64) model.Record {
	t.Helper()
	r, err := model.NewRecord(map[string]any{
		"symbol":  symbol,
		"id":      id,
		"orderId": orderID,
		"time":    time,
		"price":   "100.5",
	})
	if err != nil {
		t.Fatalf("trade: %v", err)
	}
	return r
}

func order(t *testing.T, symbol string, orderID, time int64) model.Record {
	t.Helper()
	r, err := model.NewRecord(map[string]any{
		"symbol":  symbol,
		"orderId": orderID,
		"time":    time,
		"status":  "FILLED",
	})
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	return r
}

// fakeHistory answers history requests the way Binance does: windows are
// inclusive on both ends and id cursors return records with id >= cursor.
type fakeHistory struct {
	mu     sync.Mutex
	trades map[string][]model.Record
	orders map[string][]model.Record
	calls  []string
	fail   error
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{
		trades: map[string][]model.Record{},
		orders: map[string][]model.Record{},
	}
}

func (f *fakeHistory) addTrades(rs ...model.Record) {
	for _, r := range rs {
		f.trades[r.Symbol()] = append(f.trades[r.Symbol()], r)
	}
	for s := range f.trades {
		sort.SliceStable(f.trades[s], func(i, j int) bool { return f.trades[s][i].ID() < f.trades[s][j].ID() })
	}
}

func (f *fakeHistory) addOrders(rs ...model.Record) {
	for _, r := range rs {
		f.orders[r.Symbol()] = append(f.orders[r.Symbol()], r)
	}
	for s := range f.orders {
		sort.SliceStable(f.orders[s], func(i, j int) bool { return f.orders[s][i].OrderID() < f.orders[s][j].OrderID() })
	}
}

func (f *fakeHistory) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.fail
}

func (f *fakeHistory) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeHistory) GetUserTradesInWindow(ctx context.Context, symbol string, start, end int64, limit int) ([]model.Record, error) {
	if err := f.record(fmt.Sprintf("window %s %d %d", symbol, start, end)); err != nil {
		return nil, err
	}
	var out []model.Record
	for _, r := range f.trades[symbol] {
		if r.Time() >= start && r.Time() <= end && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeHistory) GetUserTradesFromID(ctx context.Context, symbol string, fromID int64, limit int) ([]model.Record, error) {
	if err := f.record(fmt.Sprintf("trades %s %d", symbol, fromID)); err != nil {
		return nil, err
	}
	var out []model.Record
	for _, r := range f.trades[symbol] {
		if r.ID() >= fromID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeHistory) GetAllOrdersFromID(ctx context.Context, symbol string, orderID int64, limit int) ([]model.Record, error) {
	if err := f.record(fmt.Sprintf("orders %s %d", symbol, orderID)); err != nil {
		return nil, err
	}
	var out []model.Record
	for _, r := range f.orders[symbol] {
		if r.OrderID() >= orderID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeCatalog struct {
	symbols []model.Symbol
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (c *fakeCatalog) ListSymbols(ctx context.Context, cutoff int64) ([]model.Symbol, error) {
	if c.entered != nil {
		close(c.entered)
	}
	if c.block != nil {
		<-c.block
	}
	if c.err != nil {
		return nil, c.err
	}
	out := append([]model.Symbol(nil), c.symbols...)
	return out, nil
}
