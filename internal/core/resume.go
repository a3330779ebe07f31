package core

import (
	"fmt"

	"binance-futures-export/internal/model"
)

// Cursors are the starting positions of one symbol's trade and order streams.
type Cursors struct {
	Trades model.Cursor
	Orders model.Cursor
}

// ResumePlan says which symbols a checkpoint already covers and which
// records the run starts from.
type ResumePlan struct {
	Seed    *model.Dataset
	Cursors map[string]Cursors
	// Discarded explains why a supplied checkpoint was not used.
	Discarded string
}

// Covered returns the resume cursors of a symbol found in the checkpoint.
func (p ResumePlan) Covered(symbol string) (Cursors, bool) {
	c, ok := p.Cursors[symbol]
	return c, ok
}

// Plan builds the resume plan for a run on the account named liveAlias.
//
// A checkpoint that is nil, belongs to another account, has no alias, or
// holds records without the fields paging depends on is ignored entirely.
// Otherwise every symbol with a checkpoint trade resumes from its highest
// trade id. The order cursor starts at that same trade's order, taken from
// the trade itself rather than from the checkpoint's order list.
func Plan(checkpoint *model.Dataset, liveAlias string, cutoff int64) ResumePlan {
	fresh := ResumePlan{
		Seed:    model.NewDataset(liveAlias),
		Cursors: map[string]Cursors{},
	}
	if checkpoint == nil {
		return fresh
	}
	if reason := checkpointProblem(checkpoint, liveAlias); reason != "" {
		fresh.Discarded = reason
		return fresh
	}

	latest := make(map[string]model.Record)
	for _, t := range checkpoint.Trades {
		if cur, ok := latest[t.Symbol()]; !ok || t.ID() > cur.ID() {
			latest[t.Symbol()] = t
		}
	}

	plan := ResumePlan{
		Seed: &model.Dataset{
			Alias:  liveAlias,
			Trades: Normalize(checkpoint.Trades, cutoff),
			Orders: Normalize(checkpoint.Orders, cutoff),
		},
		Cursors: make(map[string]Cursors, len(latest)),
	}
	for symbol, t := range latest {
		plan.Cursors[symbol] = Cursors{
			Trades: model.Active(t.ID()),
			Orders: model.Active(t.OrderID()),
		}
	}
	return plan
}

func checkpointProblem(checkpoint *model.Dataset, liveAlias string) string {
	if checkpoint.Alias == "" {
		return "checkpoint has no account alias"
	}
	if checkpoint.Alias != liveAlias {
		return fmt.Sprintf("checkpoint belongs to account %q", checkpoint.Alias)
	}
	for i, t := range checkpoint.Trades {
		if missing := t.Missing(model.TradeFields...); len(missing) > 0 {
			return fmt.Sprintf("checkpoint trade %d has no %v", i, missing)
		}
	}
	for i, o := range checkpoint.Orders {
		if missing := o.Missing(model.OrderFields...); len(missing) > 0 {
			return fmt.Sprintf("checkpoint order %d has no %v", i, missing)
		}
	}
	return ""
}
