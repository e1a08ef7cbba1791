// Package metrics defines the instrumentation contract for the mint
// service, with prometheus and no-op implementations.
package metrics

import "time"

// Recorder counts verdicts and mint outcomes and observes the latency
// of outbound calls (ledger, asset generator, broadcaster).
type Recorder interface {
	IncVerdict(reason string)
	IncOutcome(status string)
	ObserveLatency(target string, duration time.Duration)
}
