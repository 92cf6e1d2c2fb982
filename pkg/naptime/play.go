package naptime

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"naptime/internal/evo"
	"naptime/internal/grammar"
	"naptime/internal/scape"
)

type PlayRequest struct {
	Team string
	// Opponent is optional. A missing or invalid opponent plays as (step).
	Opponent string
	Repeats  int
	Seed     int64
	Arena    scape.ForageConfig
}

type MatchReport struct {
	Seed          int64
	Fitness       float64
	Score         int
	OpponentScore int
	Steps         int
	Penalty       float64
	Aborted       bool
	AbortReason   string
}

type PlayResult struct {
	Fitness float64
	Matches []MatchReport
}

// Play runs the team against the opponent Repeats times (default 1) and
// reports every match.
func (c *Client) Play(ctx context.Context, req PlayRequest) (PlayResult, error) {
	if req.Team == "" {
		return PlayResult{}, errors.New("team strategy path is required")
	}
	if req.Repeats <= 0 {
		req.Repeats = 1
	}
	team, err := evo.LoadIndividual("team", req.Team)
	if err != nil {
		return PlayResult{}, fmt.Errorf("load team: %w", err)
	}
	if err := checkPrograms(team); err != nil {
		return PlayResult{}, fmt.Errorf("%s: %w", req.Team, err)
	}
	c.warnDeprecations(req.Team, team)

	opponent := evo.LoadIndividualOrDefault("opponent", req.Opponent, c.logger)
	if err := checkPrograms(opponent); err != nil {
		c.logger.Warn("falling back to default strategy", zap.String("path", req.Opponent), zap.Error(err))
		opponent = evo.LoadIndividualOrDefault("opponent", "", c.logger)
	}

	sim := scape.NewForage(req.Arena, c.logger)
	result := PlayResult{Matches: make([]MatchReport, 0, req.Repeats)}
	total := 0.0
	for r := 0; r < req.Repeats; r++ {
		seed := scape.SeedFor(req.Seed, r)
		res, err := sim.RunOnce(ctx, scape.Match{Team: team.Programs(), Opponent: opponent.Programs(), Seed: seed})
		if err != nil {
			return PlayResult{}, fmt.Errorf("match %d: %w", r, err)
		}
		total += res.Fitness
		result.Matches = append(result.Matches, matchReport(seed, res))
	}
	result.Fitness = total / float64(req.Repeats)
	return result, nil
}

func matchReport(seed int64, res scape.Result) MatchReport {
	report := MatchReport{Seed: seed, Fitness: res.Fitness, Aborted: res.Aborted()}
	report.Score, _ = res.Trace[scape.TraceScore].(int)
	report.OpponentScore, _ = res.Trace[scape.TraceOppScore].(int)
	report.Steps, _ = res.Trace[scape.TraceSteps].(int)
	report.Penalty, _ = res.Trace[scape.TracePenalty].(float64)
	report.AbortReason, _ = res.Trace[scape.TraceAbortReason].(string)
	return report
}

func checkPrograms(ind *evo.Individual) error {
	for slot, program := range ind.Programs() {
		if err := grammar.Check(program); err != nil {
			return fmt.Errorf("program %d: %w", slot+1, err)
		}
	}
	return nil
}

func (c *Client) warnDeprecations(path string, ind *evo.Individual) {
	for slot, program := range ind.Programs() {
		for _, msg := range grammar.Deprecations(program) {
			c.logger.Warn(msg, zap.String("path", path), zap.Int("program", slot+1))
		}
	}
}
