package metrics

import (
	"time"

	"binance-futures-export/internal/logger"
)

// Tracker accumulates request and paging statistics for one export run.
// It is owned by the sync worker; a nil *Tracker ignores every call.
type Tracker struct {
	MinLatency   time.Duration
	MaxLatency   time.Duration
	TotalLatency time.Duration
	Requests     int64
	Retries      int64
	Pages        map[string]int64
	Records      map[string]int64
	StartTime    time.Time
}

// Summary is a point-in-time copy of the tracker, safe to log or serialize.
type Summary struct {
	Requests   int64            `json:"requests"`
	Retries    int64            `json:"retries"`
	Pages      map[string]int64 `json:"pages"`
	Records    map[string]int64 `json:"records"`
	MinLatency time.Duration    `json:"minLatency"`
	MaxLatency time.Duration    `json:"maxLatency"`
	AvgLatency time.Duration    `json:"avgLatency"`
	Elapsed    time.Duration    `json:"elapsed"`
}

func NewTracker() *Tracker {
	return &Tracker{
		MinLatency: time.Duration(1<<63 - 1), // Max duration
		Pages:      make(map[string]int64),
		Records:    make(map[string]int64),
		StartTime:  time.Now(),
	}
}

// TrackRequest records one HTTP round trip, successful or not.
func (t *Tracker) TrackRequest(latency time.Duration) {
	if t == nil {
		return
	}
	t.Requests++
	t.TotalLatency += latency
	if latency < t.MinLatency {
		t.MinLatency = latency
	}
	if latency > t.MaxLatency {
		t.MaxLatency = latency
	}
}

func (t *Tracker) TrackRetry() {
	if t == nil {
		return
	}
	t.Retries++
}

// TrackPage records a page of n records received on a stream ("trades", "orders", "probe").
func (t *Tracker) TrackPage(stream string, n int) {
	if t == nil {
		return
	}
	t.Pages[stream]++
	t.Records[stream] += int64(n)
}

func (t *Tracker) Summary() Summary {
	if t == nil {
		return Summary{}
	}
	s := Summary{
		Requests:   t.Requests,
		Retries:    t.Retries,
		Pages:      make(map[string]int64, len(t.Pages)),
		Records:    make(map[string]int64, len(t.Records)),
		MaxLatency: t.MaxLatency,
		Elapsed:    time.Since(t.StartTime),
	}
	for k, v := range t.Pages {
		s.Pages[k] = v
	}
	for k, v := range t.Records {
		s.Records[k] = v
	}
	if t.Requests > 0 {
		s.MinLatency = t.MinLatency
		s.AvgLatency = t.TotalLatency / time.Duration(t.Requests)
	}
	return s
}

// LogSummary writes the run statistics at info level.
func (t *Tracker) LogSummary() {
	if t == nil {
		return
	}
	s := t.Summary()
	logger.Info("Run Metrics",
		"requests", s.Requests,
		"retries", s.Retries,
		"pages", s.Pages,
		"records", s.Records,
		"min_ms", s.MinLatency.Milliseconds(),
		"max_ms", s.MaxLatency.Milliseconds(),
		"avg_ms", s.AvgLatency.Milliseconds(),
		"elapsed", s.Elapsed.Round(time.Millisecond).String(),
	)
}
