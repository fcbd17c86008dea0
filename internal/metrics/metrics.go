// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when the serve command is running.
package metrics

import "expvar"

// Operation counters.
var (
	ConflictChecks     = expvar.NewInt("skylark_conflict_checks_total")
	ConflictsFound     = expvar.NewInt("skylark_conflicts_found_total")
	CandidateSearches  = expvar.NewInt("skylark_candidate_searches_total")
	Assignments        = expvar.NewInt("skylark_assignments_total")
	BlockedAssignments = expvar.NewInt("skylark_blocked_assignments_total")
	Reassignments      = expvar.NewInt("skylark_reassignments_total")
	StoreSaves         = expvar.NewInt("skylark_store_saves_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }

// Add increments the given counter by n.
func Add(counter *expvar.Int, n int) { counter.Add(int64(n)) }
