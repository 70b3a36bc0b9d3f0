package report

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latency accumulates the durations of repeated transfers.
type Latency struct {
	// microseconds, 1us to 60s at 3 significant digits
	hist   *hdrhistogram.Histogram
	errors int
}

// LatencyStats summarises a Latency.
type LatencyStats struct {
	Count  int64
	Errors int
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	P50    time.Duration
	P90    time.Duration
	P99    time.Duration
}

// NewLatency returns an empty recorder.
func NewLatency() *Latency {
	return &Latency{hist: hdrhistogram.New(1, 60_000_000, 3)}
}

// Record adds one successful transfer. Values beyond the histogram range
// are clamped.
func (l *Latency) Record(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if limit := l.hist.HighestTrackableValue(); us > limit {
		us = limit
	}
	_ = l.hist.RecordValue(us)
}

// RecordError counts one failed transfer.
func (l *Latency) RecordError() { l.errors++ }

// Stats returns the current summary.
func (l *Latency) Stats() *LatencyStats {
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return &LatencyStats{
		Count:  l.hist.TotalCount(),
		Errors: l.errors,
		Min:    us(l.hist.Min()),
		Max:    us(l.hist.Max()),
		Mean:   us(int64(l.hist.Mean())),
		P50:    us(l.hist.ValueAtQuantile(50)),
		P90:    us(l.hist.ValueAtQuantile(90)),
		P99:    us(l.hist.ValueAtQuantile(99)),
	}
}
