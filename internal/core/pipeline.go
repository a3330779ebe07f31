package core

import (
	"sort"

	"binance-futures-export/internal/model"
)

// Normalize orders records by time, keeping the input order among equal
// times, drops repeats of an identical record and anything after cutoff.
// The input slice is not modified. Normalizing a normalized slice returns
// an equal slice.
func Normalize(records []model.Record, cutoff int64) []model.Record {
	sorted := make([]model.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time() < sorted[j].Time()
	})

	seen := make(map[string]struct{}, len(sorted))
	out := make([]model.Record, 0, len(sorted))
	for _, r := range sorted {
		if r.Time() > cutoff {
			continue
		}
		key := r.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
