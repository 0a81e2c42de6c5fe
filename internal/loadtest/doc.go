// Package loadtest implements the WebSocket load-testing core: concurrent
// connection sessions, per-message latency sampling, phase-scoped metric
// aggregation, and threshold evaluation against fixed performance criteria.
//
// The main entry point is the Runner, which executes a sequence of phases
// (each a fixed connection count held for a fixed duration) and produces one
// PerformanceReport per phase:
//
//	runner := loadtest.NewRunner(loadtest.Options{URL: "ws://localhost:8080/ws"}, loadtest.DefaultThresholds())
//	result := runner.RunPhases(ctx, []loadtest.PhaseConfig{
//		{Connections: 50, Duration: 10 * time.Second},
//		{Connections: 100, Duration: 15 * time.Second},
//	})
//	fmt.Println(result.RequirementsMet)
package loadtest
