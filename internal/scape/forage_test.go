package scape

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"naptime/internal/grammar"
)

func programs(t *testing.T, texts ...string) []*grammar.Expr {
	t.Helper()
	out := make([]*grammar.Expr, 0, len(texts))
	for _, text := range texts {
		expr, err := grammar.ParseProgram(text)
		if err != nil {
			t.Fatalf("parse %q: %v", text, err)
		}
		out = append(out, expr)
	}
	return out
}

func newTestRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func smallForage() *Forage {
	return NewForage(ForageConfig{MaxSteps: 60}, nil)
}

func TestForageDefaults(t *testing.T) {
	cfg := NewForage(ForageConfig{Treats: 5}, nil).Config()
	if cfg.Treats != 5 {
		t.Fatalf("explicit treats overridden: %d", cfg.Treats)
	}
	if cfg.Length != 220 || cfg.Width != 150 || cfg.MaxSteps != 20000 || cfg.RobotsPerTeam != 3 || cfg.SensorRange != 100 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestForageIdleTeamsScoreNothing(t *testing.T) {
	res, err := smallForage().RunOnce(context.Background(), Match{Team: programs(t, "(step)"), Seed: 1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Fitness != 0 || res.Aborted() {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Trace[TraceSteps] != 60 || res.Trace[TraceScore] != 0 || res.Trace[TraceOppScore] != 0 {
		t.Fatalf("unexpected trace %+v", res.Trace)
	}
}

func TestForageIsDeterministicPerSeed(t *testing.T) {
	sim := smallForage()
	team := programs(t,
		"(step (if (gt (getRange 0) 10.0) (setSpeed 1.0 1.0) (setSpeed 1.0 -1.0)) (pickUp))",
		"(step (setSpeed 0.5 1.0))",
	)
	opponent := programs(t, "(step (setSpeed 1.0 0.8))")
	first, err := sim.RunOnce(context.Background(), Match{Team: team, Opponent: opponent, Seed: 99})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	second, err := sim.RunOnce(context.Background(), Match{Team: team, Opponent: opponent, Seed: 99})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if first.Fitness != second.Fitness || first.Trace[TracePenalty] != second.Trace[TracePenalty] {
		t.Fatalf("same seed gave different results: %+v vs %+v", first, second)
	}
}

func TestForageAbortsOnCategoryError(t *testing.T) {
	sim := smallForage()
	res, err := sim.RunOnce(context.Background(), Match{
		Team: programs(t, "(step (setSpeed 1.0 1.0) (not (getWidth)))"),
		Seed: 3,
	})
	if err != nil {
		t.Fatalf("category errors must not fail the run: %v", err)
	}
	if !res.Aborted() || res.Trace[TraceSteps] != 1 {
		t.Fatalf("expected abort on first step, got %+v", res.Trace)
	}
	if reason, _ := res.Trace[TraceAbortReason].(string); reason == "" {
		t.Fatal("expected abort reason")
	}
}

func TestForageRejectsEmptyTeamAndCancellation(t *testing.T) {
	sim := smallForage()
	if _, err := sim.RunOnce(context.Background(), Match{}); err == nil {
		t.Fatal("expected empty team to fail")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sim.RunOnce(ctx, Match{Team: programs(t, "(step)")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestForageTreatPlacement(t *testing.T) {
	sim := smallForage()
	w, err := sim.newWorld(newTestRand(5), programs(t, "(step)"), programs(t, "(step)"))
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	if len(w.treats) != 20 || len(w.robots) != 6 {
		t.Fatalf("unexpected world: %d treats, %d robots", len(w.treats), len(w.robots))
	}
	for i, a := range w.treats {
		if a.pos.x < 22 || a.pos.x > 198 || a.pos.y < 15 || a.pos.y > 135 {
			t.Fatalf("treat %d outside the central area: %+v", i, a.pos)
		}
		for _, b := range w.treats[i+1:] {
			if a.pos.distance(b.pos) < 2*treatRadius {
				t.Fatalf("treats overlap: %+v %+v", a.pos, b.pos)
			}
		}
	}

	crowded := NewForage(ForageConfig{Length: 10, Width: 10, Treats: 50}, nil)
	if _, err := crowded.newWorld(newTestRand(1), programs(t, "(step)"), programs(t, "(step)")); err == nil {
		t.Fatal("expected placement to give up on a crowded field")
	}
}

func soloWorld(r *robot) *world {
	w := &world{cfg: DefaultForageConfig(), goals: [2]vec{{0, 75}, {220, 75}}}
	r.world = w
	w.robots = []*robot{r}
	return w
}

func TestRobotRangeSensors(t *testing.T) {
	r := &robot{pos: vec{50, 75}}
	w := soloWorld(r)

	if got := r.Range(0); got != 100 {
		t.Fatalf("forward sensor should cap at range, got %v", got)
	}
	if got := r.Range(8); math.Abs(got-38) > 1e-9 {
		t.Fatalf("rear sensor should see the wall 38 away, got %v", got)
	}
	if got := r.Range(4); math.Abs(got-63) > 1e-9 {
		t.Fatalf("left sensor should see the wall 63 away, got %v", got)
	}

	other := &robot{world: w, team: 1, pos: vec{100, 75}}
	w.robots = append(w.robots, other)
	if got := r.Range(0); math.Abs(got-26) > 1e-9 {
		t.Fatalf("forward sensor should see the robot 26 away, got %v", got)
	}
}

func TestRobotCameraAndPickUp(t *testing.T) {
	r := &robot{pos: vec{50, 75}}
	w := soloWorld(r)
	w.treats = []*treat{{pos: vec{50, 100}}}
	if r.MidpointInView() != 0 || r.WidthInView() != 0 || r.PickUp() {
		t.Fatal("treat outside the field of view must be invisible")
	}

	w.treats = append(w.treats, &treat{pos: vec{70, 75}})
	if got := r.MidpointInView(); math.Abs(got) > 1e-9 {
		t.Fatalf("expected centered treat, got midpoint %v", got)
	}
	if got, want := r.WidthInView(), 2*math.Atan2(4, 20); math.Abs(got-want) > 1e-9 {
		t.Fatalf("width=%v want=%v", got, want)
	}
	if r.PickUp() {
		t.Fatal("treat 20 away is out of reach")
	}

	w.treats[1].pos = vec{65, 75}
	if !r.PickUp() {
		t.Fatal("expected pick up within reach")
	}
	if !r.IsCarrying() || !r.InState(grammar.StateCarry) || r.PickUp() {
		t.Fatal("robot should carry exactly one treat")
	}
	if r.WidthInView() != 0 {
		t.Fatal("carried treats are no longer visible")
	}
}

func TestRobotDeliversAndCyclesStates(t *testing.T) {
	r := &robot{pos: vec{30, 75}, heading: math.Pi}
	w := soloWorld(r)
	carried := &treat{pos: vec{14, 75}, carrier: r}
	w.treats = []*treat{carried}
	r.carrying = carried
	r.setState(grammar.StateCarry)

	w.deliver(r)
	if w.score[0] != 1 || !carried.scored || r.carrying != nil || !r.InState(grammar.StateBackup) {
		t.Fatalf("expected delivery, score=%v state=%s", w.score, r.state)
	}
	if w.remaining() != 0 {
		t.Fatal("scored treats must not remain")
	}
	for i := 0; i < backupSteps; i++ {
		r.advanceState()
	}
	if !r.InState(grammar.StateUturn) {
		t.Fatalf("expected uturn after backup, got %s", r.state)
	}
	for i := 0; i < uturnSteps; i++ {
		r.advanceState()
	}
	if !r.InState(grammar.StateSearch) {
		t.Fatalf("expected search after uturn, got %s", r.state)
	}
}

func TestRobotMovement(t *testing.T) {
	r := &robot{pos: vec{50, 75}}
	soloWorld(r)
	r.SetSpeed(5, 5)
	if r.left != maxSpeed || r.right != maxSpeed {
		t.Fatalf("speeds must clamp, got %v %v", r.left, r.right)
	}
	r.move()
	if math.Abs(r.pos.x-52) > 1e-9 || r.travelled != 2 {
		t.Fatalf("unexpected position %+v travelled %v", r.pos, r.travelled)
	}

	r.SetSpeed(-1, 1)
	r.move()
	if math.Abs(r.heading-2.0/robotRadius) > 1e-9 || math.Abs(r.pos.x-52) > 1e-9 {
		t.Fatalf("spin in place should only turn, heading=%v pos=%+v", r.heading, r.pos)
	}

	wall := &robot{pos: vec{robotRadius, 75}, heading: math.Pi}
	soloWorld(wall)
	wall.SetSpeed(1, 1)
	wall.move()
	if wall.pos.x != robotRadius || wall.travelled != 0 {
		t.Fatalf("move into the wall must be cancelled, got %+v", wall.pos)
	}
}

func TestFitnessAndPenalty(t *testing.T) {
	if got := fitness([2]int{2, 0}, 100, 20, 1); math.Abs(got-0.4) > 1e-12 {
		t.Fatalf("unopposed fitness=%v", got)
	}
	if got := fitness([2]int{2, 4}, 100, 20, 1); math.Abs(got-0.01) > 1e-12 {
		t.Fatalf("opposed fitness=%v", got)
	}
	if got := fitness([2]int{2, 0}, 100, 20, 100); math.Abs(got-0.004) > 1e-12 {
		t.Fatalf("penalized fitness=%v", got)
	}

	w := &world{}
	for _, d := range []float64{10, 10, 0} {
		w.robots = append(w.robots, &robot{travelled: d})
	}
	if got := w.penalty(0); got != idlePenalty {
		t.Fatalf("expected idle penalty, got %v", got)
	}
	w.robots[2].travelled = 5
	if got := w.penalty(0); got != 1 {
		t.Fatalf("expected no penalty, got %v", got)
	}
}

func TestSeedFor(t *testing.T) {
	seen := map[int64]bool{}
	for r := 0; r < 16; r++ {
		seed := SeedFor(7, r)
		if seed != SeedFor(7, r) {
			t.Fatal("seed derivation must be deterministic")
		}
		if seen[seed] {
			t.Fatalf("repeat %d reused a seed", r)
		}
		seen[seed] = true
	}
	if SeedFor(7, 0) == SeedFor(8, 0) {
		t.Fatal("different run seeds should diverge")
	}
}
