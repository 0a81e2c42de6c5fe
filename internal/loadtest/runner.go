package loadtest

import (
	"context"
	"time"
)

// PhaseConfig describes one phase: a fixed connection count held for a
// fixed duration.
type PhaseConfig struct {
	Connections int           `json:"connections"`
	Duration    time.Duration `json:"duration"`
}

// RunResult is the outcome of a multi-phase run: one report per phase, in
// order, plus the overall verdict.
type RunResult struct {
	Reports []*PerformanceReport `json:"reports"`

	// RequirementsMet is true when every phase passed all thresholds.
	RequirementsMet bool `json:"requirementsMet"`

	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// Runner executes phases strictly sequentially against one target. Phases
// never overlap and share no state: each gets a fresh aggregate, so one
// phase's statistics can never contaminate the next.
type Runner struct {
	orchestrator *Orchestrator
	evaluator    *Evaluator

	// PhaseStarted, when set, is called before each phase begins.
	PhaseStarted func(index, total int, phase PhaseConfig)

	// PhaseFinished, when set, is called with each phase's report.
	PhaseFinished func(index int, report *PerformanceReport)
}

// NewRunner creates a runner for the given target and pass criteria.
func NewRunner(opts Options, thresholds Thresholds) *Runner {
	return &Runner{
		orchestrator: NewOrchestrator(opts),
		evaluator:    NewEvaluator(thresholds),
	}
}

// RunPhases runs every phase in order and returns the collected reports.
//
// A phase that cannot run at all (see ErrPhaseUnrunnable) is recorded as a
// zero-success report and the remaining phases still run; no error ever
// aborts the multi-phase run.
func (r *Runner) RunPhases(ctx context.Context, phases []PhaseConfig) *RunResult {
	result := &RunResult{StartTime: time.Now()}

	met := len(phases) > 0
	for i, phase := range phases {
		if r.PhaseStarted != nil {
			r.PhaseStarted(i, len(phases), phase)
		}

		report := r.runPhase(ctx, phase)
		result.Reports = append(result.Reports, report)
		if !report.Passed {
			met = false
		}

		if r.PhaseFinished != nil {
			r.PhaseFinished(i, report)
		}
	}

	result.RequirementsMet = met
	result.EndTime = time.Now()
	return result
}

// runPhase runs a single phase and always yields a report.
func (r *Runner) runPhase(ctx context.Context, phase PhaseConfig) *PerformanceReport {
	agg, err := r.orchestrator.Run(ctx, phase.Connections, phase.Duration)
	if err != nil {
		report := r.evaluator.Evaluate(NewPhaseAggregate(), 0)
		report.Connections = phase.Connections
		report.Error = err.Error()
		return report
	}

	report := r.evaluator.Evaluate(agg, agg.Elapsed())
	report.Connections = phase.Connections
	return report
}
