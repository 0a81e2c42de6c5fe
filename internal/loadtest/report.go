package loadtest

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// minSamplesForP95 is the sample count above which a 95th-percentile
// estimate is considered meaningful. At or below it the p95 is reported as
// zero, explicitly flagging insufficient data instead of fabricating a
// percentile.
const minSamplesForP95 = 20

// Thresholds are the fixed pass criteria applied to every phase. They are
// configuration constants, never derived from the measurements.
type Thresholds struct {
	// MinSuccessRate is the minimum connection success rate, in percent.
	MinSuccessRate float64

	// MaxP95LatencyMs is the exclusive upper bound on p95 latency.
	MaxP95LatencyMs float64

	// MinMessagesPerSecond is the exclusive lower bound on throughput.
	MinMessagesPerSecond float64

	// MaxErrorRate is the exclusive upper bound on error rate, in percent.
	MaxErrorRate float64
}

// DefaultThresholds returns the historical pass criteria: 95%+ connection
// success, sub-50ms p95, nonzero throughput, under 5% errors.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSuccessRate:       95,
		MaxP95LatencyMs:      50,
		MinMessagesPerSecond: 0,
		MaxErrorRate:         5,
	}
}

// ThresholdResult contains the evaluation of one metric against its
// threshold.
type ThresholdResult struct {
	Metric  string  `json:"metric"`
	Value   float64 `json:"value"`
	Passed  bool    `json:"passed"`
	Message string  `json:"message,omitempty"`
}

// PerformanceReport is the immutable per-phase verdict: summary statistics
// plus their threshold evaluations.
type PerformanceReport struct {
	// Connections is the requested connection count for the phase.
	Connections int `json:"connections"`

	ConnectionAttempts    int64 `json:"connectionAttempts"`
	SuccessfulConnections int64 `json:"successfulConnections"`
	TotalMessages         int64 `json:"totalMessages"`
	TotalErrors           int64 `json:"totalErrors"`

	Elapsed time.Duration `json:"elapsed"`

	// SuccessRate and ErrorRate are percentages in [0,100].
	SuccessRate       float64 `json:"successRate"`
	MessagesPerSecond float64 `json:"messagesPerSecond"`
	MeanLatencyMs     float64 `json:"meanLatencyMs"`
	P95LatencyMs      float64 `json:"p95LatencyMs"`
	ErrorRate         float64 `json:"errorRate"`

	// Distribution is the supplementary histogram view of the samples.
	Distribution LatencyDistribution `json:"distribution"`

	Thresholds []ThresholdResult `json:"thresholds"`
	Passed     bool              `json:"passed"`

	// Error is set when the phase could not run at all.
	Error string `json:"error,omitempty"`
}

// Evaluator reduces a joined phase aggregate into a PerformanceReport.
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator creates an evaluator with the given pass criteria.
func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

// Evaluate computes the phase's summary statistics and compares each against
// its threshold. All zero-denominator cases yield zero rather than an error:
// absence of data is itself a reportable outcome.
//
// Evaluate only reads the aggregate, so calling it twice on the same joined
// aggregate yields identical reports.
func (e *Evaluator) Evaluate(agg *PhaseAggregate, elapsed time.Duration) *PerformanceReport {
	attempts := agg.Attempts()
	opened := agg.Opened()
	messages := agg.Messages()
	errs := agg.Errors()
	samples := agg.Samples()

	successRate := 0.0
	if attempts > 0 {
		successRate = float64(opened) / float64(attempts) * 100
	}

	messagesPerSecond := 0.0
	if elapsed > 0 {
		messagesPerSecond = float64(messages) / elapsed.Seconds()
	}

	errorRate := 0.0
	if messages+errs > 0 {
		errorRate = float64(errs) / float64(messages+errs) * 100
	}

	report := &PerformanceReport{
		Connections:           int(attempts),
		ConnectionAttempts:    attempts,
		SuccessfulConnections: opened,
		TotalMessages:         messages,
		TotalErrors:           errs,
		Elapsed:               elapsed,
		SuccessRate:           successRate,
		MessagesPerSecond:     messagesPerSecond,
		MeanLatencyMs:         meanLatency(samples),
		P95LatencyMs:          percentile95(samples),
		ErrorRate:             errorRate,
		Distribution:          agg.Distribution(),
	}

	report.Thresholds = e.evaluateThresholds(report)
	report.Passed = true
	for _, tr := range report.Thresholds {
		if !tr.Passed {
			report.Passed = false
			break
		}
	}

	return report
}

func (e *Evaluator) evaluateThresholds(r *PerformanceReport) []ThresholdResult {
	t := e.thresholds
	results := []ThresholdResult{
		{
			Metric: "connection_success_rate",
			Value:  r.SuccessRate,
			Passed: r.SuccessRate >= t.MinSuccessRate,
		},
		{
			Metric: "p95_latency_ms",
			Value:  r.P95LatencyMs,
			Passed: r.P95LatencyMs < t.MaxP95LatencyMs,
		},
		{
			Metric: "messages_per_second",
			Value:  r.MessagesPerSecond,
			Passed: r.MessagesPerSecond > t.MinMessagesPerSecond,
		},
		{
			Metric: "error_rate",
			Value:  r.ErrorRate,
			Passed: r.ErrorRate < t.MaxErrorRate,
		},
	}

	for i := range results {
		if !results[i].Passed {
			results[i].Message = failureMessage(results[i].Metric, results[i].Value, t)
		}
	}
	return results
}

func failureMessage(metric string, value float64, t Thresholds) string {
	switch metric {
	case "connection_success_rate":
		return fmt.Sprintf("success rate is %.1f%%, threshold: >= %.1f%%", value, t.MinSuccessRate)
	case "p95_latency_ms":
		return fmt.Sprintf("p95 latency is %.1fms, threshold: < %.1fms", value, t.MaxP95LatencyMs)
	case "messages_per_second":
		return fmt.Sprintf("throughput is %.1f msg/s, threshold: > %.1f msg/s", value, t.MinMessagesPerSecond)
	case "error_rate":
		return fmt.Sprintf("error rate is %.1f%%, threshold: < %.1f%%", value, t.MaxErrorRate)
	default:
		return ""
	}
}

// meanLatency returns the arithmetic mean of the samples, or 0 when empty.
func meanLatency(samples []LatencySample) float64 {
	if len(samples) == 0 {
		return 0
	}

	sum := 0.0
	for _, s := range samples {
		sum += float64(s)
	}
	return sum / float64(len(samples))
}

// percentile95 returns the nearest-rank p95: the value at rank
// ceil(0.95*count) of the ascending samples. This matches the historical
// 19th-of-20 quantile-cut convention used by the pass/fail thresholds, and
// reports 0 when 20 or fewer samples exist.
func percentile95(samples []LatencySample) float64 {
	if len(samples) <= minSamplesForP95 {
		return 0
	}

	sorted := make([]float64, len(samples))
	for i, s := range samples {
		sorted[i] = float64(s)
	}
	sort.Float64s(sorted)

	rank := int(math.Ceil(0.95 * float64(len(sorted))))
	return sorted[rank-1]
}
