package reactor

import (
	"fmt"
	"sync/atomic"
)

// ReactLatencyBuckets defines the react-latency histogram buckets in
// nanoseconds, from 1us to 10s with logarithmic spacing.
var ReactLatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks operational statistics for a reactor instance.
//
// The reactor itself is single-threaded, but metrics use atomics so a
// monitoring goroutine can read them while the reactor runs.
type Metrics struct {
	// Submission counters
	OneshotSubmissions   atomic.Uint64 // Oneshot entries pushed to the SQ
	MultishotSubmissions atomic.Uint64 // Multishot entries pushed to the SQ

	// Completion counters
	Completions     atomic.Uint64 // CQEs dispatched to a pending entry
	MultishotEvents atomic.Uint64 // Stream values queued for multishot slots
	StreamsFinished atomic.Uint64 // End-of-stream marks observed
	UnknownTags     atomic.Uint64 // CQEs with no pending entry (tolerated)

	// Teardown counters
	Drops   atomic.Uint64 // Handles closed before collecting a result
	Cancels atomic.Uint64 // Synchronous multishot cancellations

	// React statistics
	Reacts         atomic.Uint64 // React calls
	Wakes          atomic.Uint64 // Wake tokens delivered
	TotalReactNs   atomic.Uint64 // Cumulative React latency in nanoseconds
	ReactLatencies [numLatencyBuckets]atomic.Uint64
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordReact records one React call and its latency
func (m *Metrics) RecordReact(latencyNs uint64, wakes uint64) {
	m.Reacts.Add(1)
	m.Wakes.Add(wakes)
	m.TotalReactNs.Add(latencyNs)
	for i, bucket := range ReactLatencyBuckets {
		if latencyNs <= bucket {
			m.ReactLatencies[i].Add(1)
		}
	}
}

// AverageReactNs returns the mean React latency in nanoseconds
func (m *Metrics) AverageReactNs() uint64 {
	reacts := m.Reacts.Load()
	if reacts == 0 {
		return 0
	}
	return m.TotalReactNs.Load() / reacts
}

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	OneshotSubmissions   uint64
	MultishotSubmissions uint64
	Completions          uint64
	MultishotEvents      uint64
	StreamsFinished      uint64
	UnknownTags          uint64
	Drops                uint64
	Cancels              uint64
	Reacts               uint64
	Wakes                uint64
	AverageReactNs       uint64
}

// Snapshot returns a consistent-enough copy for reporting
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		OneshotSubmissions:   m.OneshotSubmissions.Load(),
		MultishotSubmissions: m.MultishotSubmissions.Load(),
		Completions:          m.Completions.Load(),
		MultishotEvents:      m.MultishotEvents.Load(),
		StreamsFinished:      m.StreamsFinished.Load(),
		UnknownTags:          m.UnknownTags.Load(),
		Drops:                m.Drops.Load(),
		Cancels:              m.Cancels.Load(),
		Reacts:               m.Reacts.Load(),
		Wakes:                m.Wakes.Load(),
		AverageReactNs:       m.AverageReactNs(),
	}
}

// String renders a one-line summary
func (s Snapshot) String() string {
	return fmt.Sprintf(
		"submissions=%d/%d completions=%d events=%d finished=%d drops=%d cancels=%d reacts=%d wakes=%d avg_react=%dns",
		s.OneshotSubmissions, s.MultishotSubmissions, s.Completions,
		s.MultishotEvents, s.StreamsFinished, s.Drops, s.Cancels,
		s.Reacts, s.Wakes, s.AverageReactNs,
	)
}
