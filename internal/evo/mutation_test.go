package evo

import (
	"math/rand"
	"testing"

	"naptime/internal/grammar"
)

var mutationCorpus = []string{
	"(step)",
	"(step (noop))",
	"(step (noop) (noop) (noop))",
	"(step (if (lt (vnoop) 0.0) (noop)))",
	"(step (if (and (gt (getRange 4) 0.5) (not (inState carry))) (setSpeed 1.0 -1.0) (or (pickUp) (isCarrying))))",
	"(step (not (setSpeed 0.0 0.25)) (eq (getMidpoint) (getWidth)))",
	"(step (if (noop) (step (if (gte (vnoop) (vnoop)) (noop)))))",
}

func mustProgram(t *testing.T, text string) *grammar.Expr {
	t.Helper()
	expr, err := grammar.ParseProgram(text)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	return expr
}

func mustExpr(t *testing.T, text string) *grammar.Expr {
	t.Helper()
	expr, err := grammar.Parse(text)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	return expr
}

func TestMutateKeepsProgramsWellTyped(t *testing.T) {
	for _, text := range mutationCorpus {
		expr := mustProgram(t, text)
		if err := grammar.Check(expr); err != nil {
			t.Fatalf("corpus program %q is not well typed: %v", text, err)
		}
		for seed := int64(0); seed < 50; seed++ {
			for _, rate := range []float64{0, 0.3, 1} {
				rng := rand.New(rand.NewSource(seed))
				out := Mutate(expr, rate, rng)
				mutated, err := grammar.ParseProgram(out)
				if err != nil {
					t.Fatalf("mutate %q (seed=%d rate=%v) produced unparsable %q: %v", text, seed, rate, out, err)
				}
				if err := grammar.Check(mutated); err != nil {
					t.Fatalf("mutate %q (seed=%d rate=%v) produced ill-typed %q: %v", text, seed, rate, out, err)
				}
			}
		}
	}
}

func TestMutateDoesNotModifyInput(t *testing.T) {
	text := "(step (if (lt (getRange 2) 0.5) (setSpeed 0.5 0.5) (noop)) (not (pickUp)))"
	expr := mustProgram(t, text)
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 20; i++ {
		Mutate(expr, 1, rng)
	}
	if expr.Print() != text {
		t.Fatalf("input changed: %s", expr)
	}
}

func TestMutateRateZeroOnlyGrowsPlaceholders(t *testing.T) {
	text := "(step (if (and (gt (getRange 4) 0.5) (not (inState carry))) (setSpeed 1.0 -1.0) (pickUp)))"
	expr := mustProgram(t, text)
	for seed := int64(0); seed < 20; seed++ {
		if got := Mutate(expr, 0, rand.New(rand.NewSource(seed))); got != text {
			t.Fatalf("seed %d: expected unchanged program, got %s", seed, got)
		}
	}
}

func TestMutateFullRateEmptiesSingleChildStep(t *testing.T) {
	expr := mustProgram(t, "(step (noop))")
	for seed := int64(0); seed < 10; seed++ {
		if got := Mutate(expr, 1, rand.New(rand.NewSource(seed))); got != "(step)" {
			t.Fatalf("seed %d: expected (step), got %s", seed, got)
		}
	}
}

func TestMutateGrowsPlaceholdersWithinCategory(t *testing.T) {
	booleanHeads := map[string]bool{"noop": true}
	for _, kind := range booleanGrowth {
		booleanHeads[kind.String()] = true
	}
	valueHeads := map[string]bool{"vnoop": true}
	for _, kind := range valueGrowth {
		valueHeads[kind.String()] = true
	}

	noop := &grammar.Expr{Kind: grammar.KindNoop}
	vnoop := &grammar.Expr{Kind: grammar.KindValueNoop}
	grewBoolean, grewValue := map[string]bool{}, map[string]bool{}
	for seed := int64(0); seed < 300; seed++ {
		rng := rand.New(rand.NewSource(seed))
		grown, err := grammar.Parse(Mutate(noop, 0, rng))
		if err != nil {
			t.Fatalf("parse grown boolean node: %v", err)
		}
		if !booleanHeads[grown.Name()] || !grown.Category().Logical() {
			t.Fatalf("noop grew into %s", grown)
		}
		grewBoolean[grown.Name()] = true

		grown, err = grammar.Parse(Mutate(vnoop, 0, rng))
		if err != nil {
			t.Fatalf("parse grown value node: %v", err)
		}
		if !valueHeads[grown.Name()] || grown.Category() != grammar.Real {
			t.Fatalf("vnoop grew into %s", grown)
		}
		grewValue[grown.Name()] = true
	}
	if len(grewBoolean) != len(booleanHeads) {
		t.Fatalf("expected every boolean growth candidate, saw %v", grewBoolean)
	}
	if len(grewValue) != len(valueHeads) {
		t.Fatalf("expected every value growth candidate, saw %v", grewValue)
	}
}

func TestGrowPlaceholderShapes(t *testing.T) {
	cases := map[grammar.Kind]string{
		grammar.KindIf:         "(if (noop) (noop))",
		grammar.KindAnd:        "(and (noop) (noop))",
		grammar.KindNot:        "(not (noop))",
		grammar.KindLte:        "(lte (vnoop) 0.0)",
		grammar.KindSetSpeed:   "(setSpeed 0.0 0.0)",
		grammar.KindPickUp:     "(pickUp)",
		grammar.KindGetRange:   "(getRange 0)",
		grammar.KindGetWidth:   "(getWidth)",
		grammar.KindIsCarrying: "(isCarrying)",
	}
	for kind, want := range cases {
		if got := grow(kind).Print(); got != want {
			t.Fatalf("grow %s: got %s want %s", kind, got, want)
		}
	}
}

// speedFrom reports whether branch is a setSpeed jittered away from base.
func speedFrom(branch *grammar.Expr, base float64) bool {
	if branch.Kind != grammar.KindSetSpeed {
		return false
	}
	for _, v := range []float64{branch.Left, branch.Right} {
		if v == base || v < base*0.5 || v > base*1.5 {
			return false
		}
	}
	return true
}

func TestMutateIfRewrites(t *testing.T) {
	withAlt := mustExpr(t, "(if (pickUp) (setSpeed 1.0 1.0) (setSpeed 10.0 10.0))")
	withoutAlt := mustExpr(t, "(if (pickUp) (setSpeed 1.0 1.0))")

	seen := map[string]bool{}
	for seed := int64(0); seed < 40; seed++ {
		out := mustExpr(t, Mutate(withAlt, 1, rand.New(rand.NewSource(seed))))
		switch {
		case len(out.Children) == 3 && speedFrom(out.Children[1], 10) && speedFrom(out.Children[2], 1):
			seen["swap"] = true
		case len(out.Children) == 2 && speedFrom(out.Children[1], 1):
			seen["drop"] = true
		default:
			t.Fatalf("seed %d: unexpected rewrite %s", seed, out.Print())
		}

		out = mustExpr(t, Mutate(withoutAlt, 1, rand.New(rand.NewSource(seed))))
		three := len(out.Children) == 3
		switch {
		case three && out.Children[1].Kind == grammar.KindNoop && speedFrom(out.Children[2], 1):
			seen["swap empty"] = true
		case three && speedFrom(out.Children[1], 1) && out.Children[2].Kind == grammar.KindNoop:
			seen["add"] = true
		default:
			t.Fatalf("seed %d: unexpected rewrite %s", seed, out.Print())
		}
	}
	if len(seen) != 4 {
		t.Fatalf("expected both swap and toggle rewrites, saw %v", seen)
	}
}

func TestMutateIfSwapMutatesAlternativeFirst(t *testing.T) {
	expr := mustExpr(t, "(if (pickUp) (setSpeed 1.0 1.0) (setSpeed 10.0 10.0))")
	for seed := int64(0); seed < 40; seed++ {
		rng := rand.New(rand.NewSource(seed))
		out := Mutate(expr, 1, rng)
		parsed := mustExpr(t, out)
		if len(parsed.Children) != 3 {
			continue
		}
		// Replay the draws: rewrite, swap, then alternative and consequent.
		replay := rand.New(rand.NewSource(seed))
		replay.Float64()
		replay.Float64()
		alternative := Mutate(expr.Children[2], 1, replay)
		consequent := Mutate(expr.Children[1], 1, replay)
		if got, want := out, "(if (pickUp) "+alternative+" "+consequent+")"; got != want {
			t.Fatalf("seed %d: got %s want %s", seed, got, want)
		}
		return
	}
	t.Fatal("no seed produced a swap")
}

func TestJitter(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		if v := jitter(0, rng); v < -0.1 || v > 0.1 {
			t.Fatalf("zero jitter out of range: %v", v)
		}
		if v := jitter(2, rng); v < 1 || v >= 3 {
			t.Fatalf("scaled jitter out of range: %v", v)
		}
	}
}
