package loadtest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram range: 1ms to 1 hour, 3 significant figures. The histogram is
// supplementary (min/max/p50/p99 display); pass/fail metrics come from the
// raw sample slice.
const (
	histogramMinMs      = 1
	histogramMaxMs      = 3600000
	histogramSigFigures = 3
)

// SessionStat is the per-connection stat entry recorded when a session
// reaches the Open state. Message and error counts are filled in when the
// session finishes.
type SessionStat struct {
	Start    time.Time `json:"start"`
	Messages int64     `json:"messages"`
	Errors   int64     `json:"errors"`
}

// PhaseAggregate collects the counters and latency samples for one phase.
//
// Counters use atomic operations so sessions never contend on a lock at
// message granularity; the sample slice and the histogram share a mutex
// because histogram recording is not thread-safe.
//
// A fresh aggregate is created for every phase and never merged with another.
// Read accessors are meant to be called only after the orchestrator has
// joined all sessions.
type PhaseAggregate struct {
	attempts atomic.Int64
	opened   atomic.Int64
	messages atomic.Int64
	errors   atomic.Int64

	samplesMu sync.Mutex
	samples   []LatencySample
	hist      *hdrhistogram.Histogram

	sessionsMu sync.Mutex
	sessions   map[int]*SessionStat

	start time.Time
	end   time.Time
}

// NewPhaseAggregate creates an empty aggregate for a single phase.
func NewPhaseAggregate() *PhaseAggregate {
	return &PhaseAggregate{
		hist:     hdrhistogram.New(histogramMinMs, histogramMaxMs, histogramSigFigures),
		sessions: make(map[int]*SessionStat),
	}
}

// begin marks the phase wall-clock start.
func (a *PhaseAggregate) begin() {
	a.start = time.Now()
}

// finish marks the phase wall-clock end.
func (a *PhaseAggregate) finish() {
	a.end = time.Now()
}

// RecordAttempt counts one connection attempt.
func (a *PhaseAggregate) RecordAttempt() {
	a.attempts.Add(1)
}

// RecordOpen counts one session that reached the Open state.
func (a *PhaseAggregate) RecordOpen() {
	a.opened.Add(1)
}

// RecordMessage counts one successfully parsed message.
func (a *PhaseAggregate) RecordMessage() {
	a.messages.Add(1)
}

// RecordError counts one message-level error: a malformed payload or a
// send/receive failure on an open connection. Failed dials are visible
// through the attempts/opened gap instead.
func (a *PhaseAggregate) RecordError() {
	a.errors.Add(1)
}

// RecordSample appends a latency sample. Samples outside the histogram range
// (including negatives from clock skew) are clamped for the histogram only;
// the raw slice keeps the signed value.
func (a *PhaseAggregate) RecordSample(s LatencySample) {
	clamped := int64(s)
	if clamped < histogramMinMs {
		clamped = histogramMinMs
	}
	if clamped > histogramMaxMs {
		clamped = histogramMaxMs
	}

	a.samplesMu.Lock()
	a.samples = append(a.samples, s)
	a.hist.RecordValue(clamped)
	a.samplesMu.Unlock()
}

// RegisterSession records the per-identity stat entry for a session that
// just opened.
func (a *PhaseAggregate) RegisterSession(id int) {
	a.sessionsMu.Lock()
	a.sessions[id] = &SessionStat{Start: time.Now()}
	a.sessionsMu.Unlock()
}

// FinishSession fills in a session's final message and error counts.
func (a *PhaseAggregate) FinishSession(id int, messages, errors int64) {
	a.sessionsMu.Lock()
	if stat, ok := a.sessions[id]; ok {
		stat.Messages = messages
		stat.Errors = errors
	}
	a.sessionsMu.Unlock()
}

// Attempts returns the total connection attempts.
func (a *PhaseAggregate) Attempts() int64 { return a.attempts.Load() }

// Opened returns the number of sessions that reached the Open state.
func (a *PhaseAggregate) Opened() int64 { return a.opened.Load() }

// Messages returns the total messages received.
func (a *PhaseAggregate) Messages() int64 { return a.messages.Load() }

// Errors returns the total errors observed.
func (a *PhaseAggregate) Errors() int64 { return a.errors.Load() }

// Elapsed returns the phase wall-clock duration, or the time since begin if
// the phase has not finished.
func (a *PhaseAggregate) Elapsed() time.Duration {
	if a.start.IsZero() {
		return 0
	}
	if a.end.IsZero() {
		return time.Since(a.start)
	}
	return a.end.Sub(a.start)
}

// Samples returns a copy of the latency samples in append order.
func (a *PhaseAggregate) Samples() []LatencySample {
	a.samplesMu.Lock()
	defer a.samplesMu.Unlock()

	out := make([]LatencySample, len(a.samples))
	copy(out, a.samples)
	return out
}

// SessionStats returns a copy of the per-session stat entries.
func (a *PhaseAggregate) SessionStats() map[int]SessionStat {
	a.sessionsMu.Lock()
	defer a.sessionsMu.Unlock()

	out := make(map[int]SessionStat, len(a.sessions))
	for id, stat := range a.sessions {
		out[id] = *stat
	}
	return out
}

// LatencyDistribution contains supplementary latency statistics from the
// histogram, in milliseconds.
type LatencyDistribution struct {
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
	P50   int64 `json:"p50"`
	P99   int64 `json:"p99"`
	Count int64 `json:"count"`
}

// Distribution returns the histogram view of the recorded samples.
func (a *PhaseAggregate) Distribution() LatencyDistribution {
	a.samplesMu.Lock()
	defer a.samplesMu.Unlock()

	if a.hist.TotalCount() == 0 {
		return LatencyDistribution{}
	}
	return LatencyDistribution{
		Min:   a.hist.Min(),
		Max:   a.hist.Max(),
		P50:   a.hist.ValueAtQuantile(50),
		P99:   a.hist.ValueAtQuantile(99),
		Count: a.hist.TotalCount(),
	}
}
