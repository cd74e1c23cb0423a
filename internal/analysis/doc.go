// Package analysis inspects recorded stretch series after a run.
//
// The main use is finding how fast a hanging load bounces on its cable:
//
//	osc, err := analysis.Analyze(result.Stretches(), cfg.Dt)
//	fmt.Printf("%.2f Hz\n", osc.Frequency)
package analysis
