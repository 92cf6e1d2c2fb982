package evo

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"naptime/internal/grammar"
)

// labels lists every node label of the tree, sorted.
func labels(e *grammar.Expr) []string {
	var out []string
	var walk func(*grammar.Expr)
	walk = func(node *grammar.Expr) {
		switch {
		case node.Kind == grammar.KindLiteral:
			out = append(out, grammar.FormatReal(node.Number))
		case len(node.Children) > 0:
			out = append(out, node.Name())
		default:
			out = append(out, node.Print())
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(e)
	sort.Strings(out)
	return out
}

func TestCrossoverConservesNodes(t *testing.T) {
	a := mustProgram(t, "(step (if (lt (getRange 3) 0.5) (setSpeed 1.0 1.0)) (pickUp))")
	b := mustProgram(t, "(step (or (gt (getWidth) (getMidpoint)) (inState backup)) (not (noop)))")
	before := append(labels(a), labels(b)...)
	sort.Strings(before)

	swaps := 0
	for seed := int64(0); seed < 100; seed++ {
		res, err := Crossover(a, b, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("crossover: %v", err)
		}
		if !res.Swapped {
			continue
		}
		swaps++
		childA := mustProgram(t, res.A)
		childB := mustProgram(t, res.B)
		for _, child := range []*grammar.Expr{childA, childB} {
			if err := grammar.Check(child); err != nil {
				t.Fatalf("seed %d: ill-typed offspring %s: %v", seed, child, err)
			}
		}
		if childA.Size()+childB.Size() != a.Size()+b.Size() {
			t.Fatalf("seed %d: node count changed: %s | %s", seed, res.A, res.B)
		}
		after := append(labels(childA), labels(childB)...)
		sort.Strings(after)
		if diff := cmp.Diff(before, after); diff != "" {
			t.Fatalf("seed %d: node multiset changed (-before +after):\n%s", seed, diff)
		}
	}
	if swaps == 0 {
		t.Fatal("expected at least one swap")
	}
}

func TestCrossoverMatchesValueKinds(t *testing.T) {
	a := mustProgram(t, "(step (lt (getRange 3) 0.5))")
	b := mustProgram(t, "(step (gt (getWidth) 1.0))")
	allowed := map[[2]string]bool{
		{"(step (gt (getWidth) 1.0))", "(step (lt (getRange 3) 0.5))"}: true,
		{"(step (lt (getWidth) 0.5))", "(step (gt (getRange 3) 1.0))"}: true,
	}
	for seed := int64(0); seed < 30; seed++ {
		res, err := Crossover(a, b, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("crossover: %v", err)
		}
		if !res.Swapped || !allowed[[2]string{res.A, res.B}] {
			t.Fatalf("seed %d: unexpected result %+v", seed, res)
		}
	}
}

func TestCrossoverWithoutCandidatesIsNoop(t *testing.T) {
	a := mustProgram(t, "(step)")
	b := mustProgram(t, "(step (noop))")
	res, err := Crossover(a, b, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("crossover: %v", err)
	}
	if res.Swapped || res.A != "(step)" || res.B != "(step (noop))" {
		t.Fatalf("expected unchanged parents, got %+v", res)
	}

	// a only offers a value node and b has none.
	a = mustProgram(t, "(step (eq (vnoop) 1.0))")
	b = mustProgram(t, "(step (noop))")
	for seed := int64(0); seed < 20; seed++ {
		res, err := Crossover(a, b, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("crossover: %v", err)
		}
		if res.Swapped && (res.A != "(step (noop))" || res.B != "(step (eq (vnoop) 1.0))") {
			t.Fatalf("seed %d: unexpected swap %+v", seed, res)
		}
		if !res.Swapped && (res.A != a.Print() || res.B != b.Print()) {
			t.Fatalf("seed %d: no-op must keep parents, got %+v", seed, res)
		}
	}

	if _, err := Crossover(a, b, nil); err == nil {
		t.Fatal("expected missing random source to fail")
	}
}
