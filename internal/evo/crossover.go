package evo

import (
	"fmt"
	"math/rand"

	"naptime/internal/grammar"
	"naptime/internal/sexp"
)

// CrossoverResult holds the texts of both offspring programs. Swapped is
// false when no compatible pair of subtrees existed and the texts are the
// unchanged parents.
type CrossoverResult struct {
	A       string
	B       string
	Swapped bool
}

// Crossover exchanges one randomly chosen subtree of a with a subtree of b
// that produces the same kind of value. Roots are never exchanged.
func Crossover(a, b *grammar.Expr, rng *rand.Rand) (CrossoverResult, error) {
	if rng == nil {
		return CrossoverResult{}, fmt.Errorf("random source is required")
	}
	arena := sexp.NewArena()
	rootA := a.ToSexp(arena)
	rootB := b.ToSexp(arena)

	unchanged := CrossoverResult{A: arena.Print(rootA), B: arena.Print(rootB)}

	candidatesA := subtrees(arena, rootA, func(sexp.Ref) bool { return true })
	if len(candidatesA) == 0 {
		return unchanged, nil
	}
	pickA := candidatesA[rng.Intn(len(candidatesA))]
	wantValue := producesValue(arena, pickA)

	candidatesB := subtrees(arena, rootB, func(ref sexp.Ref) bool {
		return producesValue(arena, ref) == wantValue
	})
	if len(candidatesB) == 0 {
		return unchanged, nil
	}
	pickB := candidatesB[rng.Intn(len(candidatesB))]

	if err := arena.Swap(pickA, pickB); err != nil {
		return CrossoverResult{}, fmt.Errorf("swap subtrees: %w", err)
	}
	return CrossoverResult{A: arena.Print(rootA), B: arena.Print(rootB), Swapped: true}, nil
}

// subtrees lists the non-root list nodes under root accepted by keep, in
// pre-order.
func subtrees(a *sexp.Arena, root sexp.Ref, keep func(sexp.Ref) bool) []sexp.Ref {
	var out []sexp.Ref
	a.Walk(root, func(ref sexp.Ref) bool {
		if ref != root && a.IsList(ref) && keep(ref) {
			out = append(out, ref)
		}
		return true
	})
	return out
}

func producesValue(a *sexp.Arena, ref sexp.Ref) bool {
	kind, ok := grammar.KindByName(a.Head(ref))
	return ok && kind.Category() == grammar.Real
}
