// Package assertx implements the "programmer error panics" half of the
// movement core's error-handling policy: invalid input (non-finite deltas,
// negative distances, min > max) is rejected by cheap assertions at entry
// points, gated behind Enabled so production wiring can disable the checks
// it has already paid for in testing.
package assertx

import "fmt"

// Enabled controls whether True panics on a failed condition. Tests default
// this to true; sim's production wiring sets it false once a build has
// soaked in CI with assertions on.
var Enabled = true

// True panics with a formatted message if cond is false and assertions are
// enabled. It is a no-op otherwise.
func True(cond bool, format string, args ...any) {
	if !Enabled || cond {
		return
	}
	panic(fmt.Sprintf("assertion failed: "+format, args...))
}
