package core

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"binance-futures-export/internal/logger"
	"binance-futures-export/internal/metrics"
	"binance-futures-export/internal/model"
)

var ErrSyncInProgress = errors.New("sync already in progress")

// SymbolLister provides the weighted symbol work list.
type SymbolLister interface {
	ListSymbols(ctx context.Context, cutoff int64) ([]model.Symbol, error)
}

// Progress is published after each symbol. Percent never decreases within a run.
type Progress struct {
	RunID   string  `json:"runId"`
	Symbol  string  `json:"symbol,omitempty"`
	Percent float64 `json:"percent"`
	Done    bool    `json:"done"`
}

type ProgressFunc func(Progress)

// Syncer exports the complete trade and order history of one account.
// Requests are issued one at a time; only one run may be in flight.
type Syncer struct {
	Catalog SymbolLister
	Trades  *TradePaginator
	Orders  *OrderPaginator

	clock    func() int64
	progress ProgressFunc
	tracker  *metrics.Tracker
	running  atomic.Bool
}

type SyncerOption func(*Syncer)

// WithClock sets the source of the sync cutoff, epoch millis.
func WithClock(now func() int64) SyncerOption {
	return func(s *Syncer) {
		s.clock = now
	}
}

func WithProgress(fn ProgressFunc) SyncerOption {
	return func(s *Syncer) {
		s.progress = fn
	}
}

func WithTracker(t *metrics.Tracker) SyncerOption {
	return func(s *Syncer) {
		s.tracker = t
	}
}

func NewSyncer(history HistoryClient, catalog SymbolLister, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		Catalog: catalog,
		clock:   func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Trades = &TradePaginator{Client: history, Tracker: s.tracker}
	s.Orders = &OrderPaginator{Client: history, Tracker: s.tracker}
	return s
}

// Running reports whether a run is in flight.
func (s *Syncer) Running() bool { return s.running.Load() }

// Run exports every symbol's history up to a cutoff taken when the run
// starts, resuming from checkpoint when it belongs to alias. Any failure
// aborts the run without a dataset. A call made while another run is in
// flight returns ErrSyncInProgress and does nothing.
func (s *Syncer) Run(ctx context.Context, alias string, checkpoint *model.Dataset) (*model.Dataset, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer s.running.Store(false)

	runID := uuid.NewString()
	cutoff := s.clock()
	logger.Info("🚀 Sync started", "run_id", runID, "alias", alias, "cutoff", cutoff, "checkpoint", checkpoint != nil)

	symbols, err := s.Catalog.ListSymbols(ctx, cutoff)
	if err != nil {
		logger.Error("❌ Sync failed", "run_id", runID, "error", err)
		return nil, err
	}

	plan := Plan(checkpoint, alias, cutoff)
	if plan.Discarded != "" {
		logger.Warn("⚠️ Checkpoint ignored, fetching everything", "run_id", runID, "reason", plan.Discarded)
	} else if checkpoint != nil {
		logger.Info("♻️ Resuming from checkpoint", "run_id", runID, "symbols", len(plan.Cursors),
			"trades", len(plan.Seed.Trades), "orders", len(plan.Seed.Orders))
	}

	trades := append([]model.Record(nil), plan.Seed.Trades...)
	orders := append([]model.Record(nil), plan.Seed.Orders...)

	var percent float64
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			logger.Error("❌ Sync cancelled", "run_id", runID, "symbol", symbol.Name)
			return nil, err
		}

		newTrades, newOrders, err := s.syncSymbol(ctx, symbol, plan, cutoff)
		if err != nil {
			logger.Error("❌ Sync failed", "run_id", runID, "symbol", symbol.Name, "error", err)
			return nil, err
		}
		trades = append(trades, newTrades...)
		orders = append(orders, newOrders...)

		if len(newTrades) > 0 || len(newOrders) > 0 {
			logger.Info("📥 Symbol synced", "run_id", runID, "symbol", symbol.Name, "trades", len(newTrades), "orders", len(newOrders))
		} else {
			logger.Debug("Symbol has no history", "run_id", runID, "symbol", symbol.Name)
		}

		percent = math.Min(100, math.Max(percent, symbol.CumulativeWeight))
		s.report(Progress{RunID: runID, Symbol: symbol.Name, Percent: percent})
	}

	dataset := &model.Dataset{
		Alias:  alias,
		Trades: Normalize(trades, cutoff),
		Orders: Normalize(orders, cutoff),
	}
	s.report(Progress{RunID: runID, Percent: 100, Done: true})

	logger.Info("✅ Sync finished", "run_id", runID, "symbols", len(symbols), "trades", len(dataset.Trades), "orders", len(dataset.Orders))
	return dataset, nil
}

// syncSymbol pages one symbol's trades then its orders. Covered symbols
// start from their checkpoint cursors; the rest go through discovery.
// A symbol without trades never reaches the order paginator.
func (s *Syncer) syncSymbol(ctx context.Context, symbol model.Symbol, plan ResumePlan, cutoff int64) (trades, orders []model.Record, err error) {
	cursors, covered := plan.Covered(symbol.Name)
	if !covered {
		cursors.Trades, cursors.Orders, err = s.Trades.Discover(ctx, symbol, cutoff)
		if err != nil {
			return nil, nil, err
		}
	}
	if cursors.Trades.IsExhausted() {
		return nil, nil, nil
	}

	trades, err = s.Trades.Drain(ctx, symbol.Name, cursors.Trades)
	if err != nil {
		return nil, nil, err
	}
	orders, err = s.Orders.Drain(ctx, symbol.Name, cursors.Orders)
	if err != nil {
		return nil, nil, err
	}
	return trades, orders, nil
}

func (s *Syncer) report(p Progress) {
	if s.progress != nil {
		s.progress(p)
	}
}
