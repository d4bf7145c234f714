package jtl

import (
	"context"
	"errors"
	"io"
	"math"
	"sort"
	"time"
)

// Aggregate is the summary computed from one pass over a record stream.
// Counts are always consistent (successful + failed == total) and every
// derived value is zero for an empty stream.
type Aggregate struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64

	AvgResponseTimeMs float64
	MinResponseTimeMs int64
	MaxResponseTimeMs int64

	// Nearest-rank order statistics: always actually-observed values.
	P90Ms int64
	P95Ms int64
	P99Ms int64

	Throughput      float64
	ErrorRate       float64
	DurationSeconds float64
}

// Result combines the overall aggregate with per-label breakdowns.
type Result struct {
	Overall Aggregate
	ByLabel map[string]Aggregate
}

type AggregatorConfig struct {
	// SampleCap bounds the response-time sample kept per label for
	// percentile computation. 0 keeps the full sample, which preserves
	// exact nearest-rank semantics.
	SampleCap int
}

// Aggregator folds a record stream into running aggregates. It owns its
// accumulator state for the duration of one pass and is not safe for
// concurrent use.
type Aggregator struct {
	cfg     AggregatorConfig
	overall *accumulator
	byLabel map[string]*accumulator
}

func NewAggregator(cfg AggregatorConfig) *Aggregator {
	return &Aggregator{
		cfg:     cfg,
		overall: newAccumulator(cfg.SampleCap),
		byLabel: make(map[string]*accumulator),
	}
}

func (a *Aggregator) Add(rec Record) {
	a.overall.add(rec)
	acc, ok := a.byLabel[rec.Label]
	if !ok {
		acc = newAccumulator(a.cfg.SampleCap)
		a.byLabel[rec.Label] = acc
	}
	acc.add(rec)
}

// Consume drains the stream into the aggregator. It returns the stream's
// stats on success and the stream's terminal error otherwise.
func (a *Aggregator) Consume(ctx context.Context, stream *Stream) (Stats, error) {
	for {
		rec, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return stream.Stats(), nil
		}
		if err != nil {
			return stream.Stats(), err
		}
		a.Add(rec)
	}
}

// Result finalizes the aggregates. The aggregator can keep receiving
// records afterwards; Result never mutates accumulator state.
func (a *Aggregator) Result() Result {
	out := Result{
		Overall: a.overall.aggregate(),
		ByLabel: make(map[string]Aggregate, len(a.byLabel)),
	}
	for label, acc := range a.byLabel {
		out.ByLabel[label] = acc.aggregate()
	}
	return out
}

type accumulator struct {
	sampleCap int

	count   int64
	success int64
	sum     int64
	min     int64
	max     int64
	samples []int64

	minTS time.Time
	maxTS time.Time
}

func newAccumulator(sampleCap int) *accumulator {
	return &accumulator{sampleCap: sampleCap}
}

func (acc *accumulator) add(rec Record) {
	if acc.count == 0 {
		acc.min = rec.ResponseTimeMs
		acc.max = rec.ResponseTimeMs
		acc.minTS = rec.Timestamp
		acc.maxTS = rec.Timestamp
	} else {
		if rec.ResponseTimeMs < acc.min {
			acc.min = rec.ResponseTimeMs
		}
		if rec.ResponseTimeMs > acc.max {
			acc.max = rec.ResponseTimeMs
		}
		if rec.Timestamp.Before(acc.minTS) {
			acc.minTS = rec.Timestamp
		}
		if rec.Timestamp.After(acc.maxTS) {
			acc.maxTS = rec.Timestamp
		}
	}
	acc.count++
	acc.sum += rec.ResponseTimeMs
	if rec.Success {
		acc.success++
	}
	if acc.sampleCap == 0 || len(acc.samples) < acc.sampleCap {
		acc.samples = append(acc.samples, rec.ResponseTimeMs)
	}
}

func (acc *accumulator) aggregate() Aggregate {
	if acc.count == 0 {
		return Aggregate{}
	}

	sorted := make([]int64, len(acc.samples))
	copy(sorted, acc.samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	duration := acc.maxTS.Sub(acc.minTS).Seconds()
	throughput := float64(acc.count)
	if duration > 0 {
		throughput = float64(acc.count) / duration
	}

	failed := acc.count - acc.success
	return Aggregate{
		TotalRequests:      acc.count,
		SuccessfulRequests: acc.success,
		FailedRequests:     failed,
		AvgResponseTimeMs:  float64(acc.sum) / float64(acc.count),
		MinResponseTimeMs:  acc.min,
		MaxResponseTimeMs:  acc.max,
		P90Ms:              percentile(sorted, 90),
		P95Ms:              percentile(sorted, 95),
		P99Ms:              percentile(sorted, 99),
		Throughput:         throughput,
		ErrorRate:          float64(failed) / float64(acc.count),
		DurationSeconds:    duration,
	}
}

// percentile implements the nearest-rank method on an ascending sample:
// index = ceil(p/100 * n) - 1, clamped to [0, n-1].
func percentile(sorted []int64, p float64) int64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(n)/100)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}
