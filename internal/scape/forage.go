package scape

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"naptime/internal/grammar"
	"naptime/internal/logging"
)

// ForageConfig sizes the arena. Zero fields take the defaults.
type ForageConfig struct {
	Length        float64 `yaml:"length" json:"length"`
	Width         float64 `yaml:"width" json:"width"`
	Treats        int     `yaml:"treats" json:"treats"`
	MaxSteps      int     `yaml:"max_steps" json:"max_steps"`
	RobotsPerTeam int     `yaml:"robots_per_team" json:"robots_per_team"`
	SensorRange   float64 `yaml:"sensor_range" json:"sensor_range"`
}

func DefaultForageConfig() ForageConfig {
	return ForageConfig{
		Length:        220,
		Width:         150,
		Treats:        20,
		MaxSteps:      20000,
		RobotsPerTeam: 3,
		SensorRange:   100,
	}
}

func (c ForageConfig) withDefaults() ForageConfig {
	d := DefaultForageConfig()
	if c.Length <= 0 {
		c.Length = d.Length
	}
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Treats <= 0 {
		c.Treats = d.Treats
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = d.MaxSteps
	}
	if c.RobotsPerTeam <= 0 {
		c.RobotsPerTeam = d.RobotsPerTeam
	}
	if c.SensorRange <= 0 {
		c.SensorRange = d.SensorRange
	}
	return c
}

const (
	// A team is penalized when one robot covers less than this share of the
	// team's mean distance.
	idleShare   = 0.1
	idlePenalty = 100.0

	// Steps between context checks.
	cancelCheckInterval = 256

	maxPlacementAttempts = 1000
)

// Forage is a two-team treat collection match. Team 0 is the team being
// scored and defends the goal at x=0; team 1 defends the goal at x=Length.
type Forage struct {
	cfg    ForageConfig
	logger *zap.Logger
}

func NewForage(cfg ForageConfig, logger *zap.Logger) *Forage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Forage{cfg: cfg.withDefaults(), logger: logger}
}

func (*Forage) Name() string {
	return "forage"
}

func (f *Forage) Config() ForageConfig {
	return f.cfg
}

type world struct {
	cfg    ForageConfig
	robots []*robot
	treats []*treat
	goals  [2]vec
	score  [2]int
}

// RunOnce plays one match. A program error stops the match early; the
// fitness earned so far is returned with Trace[TraceAborted] set.
func (f *Forage) RunOnce(ctx context.Context, match Match) (Result, error) {
	if len(match.Team) == 0 {
		return Result{}, fmt.Errorf("team has no programs")
	}
	opponent := match.Opponent
	if len(opponent) == 0 {
		opponent = []*grammar.Expr{{Kind: grammar.KindStep}}
	}

	w, err := f.newWorld(rand.New(rand.NewSource(match.Seed)), match.Team, opponent)
	if err != nil {
		return Result{}, err
	}
	steps := 0
	var runErr error
	for steps < f.cfg.MaxSteps && w.remaining() > 0 {
		if steps%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		steps++
		if runErr = w.step(); runErr != nil {
			break
		}
	}

	penalty := w.penalty(0)
	result := Result{
		Fitness: fitness(w.score, steps, f.cfg.Treats, penalty),
		Trace: Trace{
			TraceSteps:    steps,
			TraceScore:    w.score[0],
			TraceOppScore: w.score[1],
			TracePenalty:  penalty,
		},
	}
	if runErr != nil {
		var categoryErr *grammar.CategoryError
		if !errors.As(runErr, &categoryErr) {
			return Result{}, runErr
		}
		result.Trace[TraceAborted] = true
		result.Trace[TraceAbortReason] = runErr.Error()
		f.logger.Debug("match aborted", zap.Int64("seed", match.Seed), zap.Int("step", steps), zap.Error(runErr))
	}
	return result, nil
}

// fitness rewards the collection rate, scaled by how far the team
// out-collected its opponent.
func fitness(score [2]int, steps, treats int, penalty float64) float64 {
	if steps <= 0 {
		return 0
	}
	rate := float64(score[0]) / float64(steps)
	ratio := float64(treats)
	if score[1] != 0 {
		ratio = float64(score[0]) / float64(score[1])
	}
	return rate * ratio / penalty
}

func (f *Forage) newWorld(rng *rand.Rand, team, opponent []*grammar.Expr) (*world, error) {
	cfg := f.cfg
	w := &world{
		cfg:   cfg,
		goals: [2]vec{{0, cfg.Width / 2}, {cfg.Length, cfg.Width / 2}},
	}
	programs := [2][]*grammar.Expr{team, opponent}
	for side := 0; side < 2; side++ {
		heading := 0.0
		if side == 1 {
			heading = math.Pi
		}
		for i := 0; i < cfg.RobotsPerTeam; i++ {
			w.robots = append(w.robots, &robot{
				world:   w,
				team:    side,
				program: programs[side][i%len(programs[side])],
				pos:     startPosition(cfg, side, i),
				heading: heading,
			})
		}
	}

	for attempts := 0; len(w.treats) < cfg.Treats; attempts++ {
		if attempts > maxPlacementAttempts*cfg.Treats {
			return nil, fmt.Errorf("cannot place %d treats without overlap", cfg.Treats)
		}
		pos := vec{
			cfg.Length * (rng.Float64()*0.8 + 0.1),
			cfg.Width * (rng.Float64()*0.8 + 0.1),
		}
		if w.occupied(pos) {
			continue
		}
		w.treats = append(w.treats, &treat{pos: pos})
	}
	return w, nil
}

// startPosition spreads a team over a column near its own half: the middle
// robot stands further forward, matching the classic three robot layout.
func startPosition(cfg ForageConfig, side, i int) vec {
	n := cfg.RobotsPerTeam
	y := cfg.Width * (0.2 + 0.6*float64(i)/math.Max(1, float64(n-1)))
	if n == 1 {
		y = cfg.Width / 2
	}
	x := cfg.Length * 0.2
	if n%2 == 1 && i == n/2 {
		x = cfg.Length * 0.4
	}
	if side == 1 {
		x = cfg.Length - x
	}
	return vec{x, y}
}

func (w *world) occupied(pos vec) bool {
	for _, t := range w.treats {
		if t.pos.distance(pos) < 2*treatRadius {
			return true
		}
	}
	return false
}

func (w *world) remaining() int {
	n := 0
	for _, t := range w.treats {
		if !t.scored {
			n++
		}
	}
	return n
}

// step runs every robot's program once, then moves every robot.
func (w *world) step() error {
	for _, r := range w.robots {
		if _, err := r.program.Eval(r); err != nil {
			return err
		}
	}
	for _, r := range w.robots {
		r.move()
		r.advanceState()
		w.deliver(r)
	}
	return nil
}

// deliver scores a carried treat once its robot reaches the own goal area.
func (w *world) deliver(r *robot) {
	if r.carrying == nil || r.pos.distance(w.goals[r.team]) > w.cfg.Width/4+robotRadius {
		return
	}
	r.carrying.scored = true
	r.carrying.carrier = nil
	r.carrying = nil
	w.score[r.team]++
	r.setState(grammar.StateBackup)
}

func (w *world) penalty(team int) float64 {
	var distances []float64
	total := 0.0
	for _, r := range w.robots {
		if r.team == team {
			distances = append(distances, r.travelled)
			total += r.travelled
		}
	}
	if total == 0 || len(distances) < 2 {
		return 1
	}
	mean := total / float64(len(distances))
	for _, d := range distances {
		if d < idleShare*mean {
			return idlePenalty
		}
	}
	return 1
}
