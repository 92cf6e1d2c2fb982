// Package scape defines the simulator boundary strategies are scored
// through, plus the forage arena used as the reference simulator.
package scape

import (
	"context"

	"naptime/internal/grammar"
)

type Trace map[string]any

// Trace keys set by simulators.
const (
	TraceAborted     = "aborted"
	TraceAbortReason = "abort_reason"
	TraceSteps       = "steps"
	TraceScore       = "score"
	TraceOppScore    = "opponent_score"
	TracePenalty     = "penalty"
)

// Match pairs a team's programs, one per robot slot, against an opponent's.
// Slots wrap around when a team has more robots than programs.
type Match struct {
	Team     []*grammar.Expr
	Opponent []*grammar.Expr
	Seed     int64
}

type Result struct {
	Fitness float64
	Trace   Trace
}

// Simulator scores a team in one run. RunOnce must be deterministic for a
// fixed Match.Seed and safe to call from several goroutines at once.
type Simulator interface {
	Name() string
	RunOnce(ctx context.Context, match Match) (Result, error)
}

// Aborted reports whether the run stopped early on a program error.
func (r Result) Aborted() bool {
	aborted, _ := r.Trace[TraceAborted].(bool)
	return aborted
}

// SeedFor derives the simulation seed of one repeat from a run seed.
func SeedFor(base int64, repeat int) int64 {
	z := uint64(base) + uint64(repeat+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}
