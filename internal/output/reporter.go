package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/wsbench/wsbench/internal/loadtest"
)

// Reporter writes per-phase reports and the final run summary.
type Reporter struct {
	w       io.Writer
	scheme  *ColorScheme
	noColor bool
}

// NewReporter creates a reporter writing to w. When noColor is set, output
// is plain text suitable for logs and pipes.
func NewReporter(w io.Writer, noColor bool) *Reporter {
	scheme := DefaultColorScheme()
	if noColor {
		scheme = NoColorScheme()
	}
	return &Reporter{w: w, scheme: scheme, noColor: noColor}
}

// PhaseHeader announces a phase before it runs.
func (r *Reporter) PhaseHeader(index, total, connections int) {
	r.scheme.Title.Fprintf(r.w, "Phase %d/%d: %d concurrent connections\n", index, total, connections)
	fmt.Fprintln(r.w, strings.Repeat("-", 60))
}

// PhaseReport renders one phase's performance report.
func (r *Reporter) PhaseReport(report *loadtest.PerformanceReport) {
	if report.Error != "" {
		r.scheme.Fail.Fprintf(r.w, "  phase did not run: %s\n\n", report.Error)
		return
	}

	r.line("Connections", "%d/%d (%.1f%%)",
		report.SuccessfulConnections, report.ConnectionAttempts, report.SuccessRate)
	r.line("Messages received", "%d", report.TotalMessages)
	r.line("Throughput", "%.1f msg/s", report.MessagesPerSecond)
	r.line("Mean latency", "%.1fms", report.MeanLatencyMs)
	r.line("P95 latency", "%s", formatP95(report.P95LatencyMs))
	r.line("Errors", "%d (%.2f%%)", report.TotalErrors, report.ErrorRate)
	r.line("Elapsed", "%.1fs", report.Elapsed.Seconds())

	if report.Distribution.Count > 0 {
		r.line("Latency spread", "min %dms / p50 %dms / p99 %dms / max %dms",
			report.Distribution.Min, report.Distribution.P50,
			report.Distribution.P99, report.Distribution.Max)
	}

	fmt.Fprintln(r.w)
	for _, tr := range report.Thresholds {
		icon := PassIcon(r.noColor)
		if !tr.Passed {
			icon = FailIcon(r.noColor)
		}
		fmt.Fprintf(r.w, "  %s %s: %.2f", icon, tr.Metric, tr.Value)
		if tr.Message != "" {
			fmt.Fprintf(r.w, " (%s)", tr.Message)
		}
		fmt.Fprintln(r.w)
	}
	fmt.Fprintln(r.w)
}

// Summary renders the final multi-phase verdict.
func (r *Reporter) Summary(result *loadtest.RunResult) {
	r.scheme.Title.Fprintln(r.w, "Summary")
	fmt.Fprintln(r.w, strings.Repeat("=", 60))

	for i, report := range result.Reports {
		status := r.scheme.Pass.Sprint("pass")
		if !report.Passed {
			status = r.scheme.Fail.Sprint("fail")
		}
		fmt.Fprintf(r.w, "  phase %d: %4d connections  %6.1f%% success  %8.1f msg/s  %s %s\n",
			i+1, report.Connections, report.SuccessRate,
			report.MessagesPerSecond, formatP95(report.P95LatencyMs), status)
	}

	fmt.Fprintln(r.w)
	if result.RequirementsMet {
		r.scheme.Verdict.Fprintln(r.w, "Performance requirements met")
	} else {
		r.scheme.Verdict.Fprintln(r.w, "Performance requirements NOT met")
	}
}

// WriteJSON renders the full run result as indented JSON.
func (r *Reporter) WriteJSON(result *loadtest.RunResult) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func (r *Reporter) line(label, format string, args ...interface{}) {
	r.scheme.Label.Fprintf(r.w, "  %-20s", label+":")
	r.scheme.Value.Fprintf(r.w, format+"\n", args...)
}

// formatP95 renders a p95 value, flagging the insufficient-sample case
// instead of printing a misleading zero.
func formatP95(p95 float64) string {
	if p95 == 0 {
		return "n/a (too few samples)"
	}
	return fmt.Sprintf("%.1fms", p95)
}
