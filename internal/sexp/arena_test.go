package sexp

import (
	"errors"
	"testing"
)

func mustParse(t *testing.T, a *Arena, text string) Ref {
	t.Helper()
	ref, err := a.Parse(text)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	return ref
}

func TestBuildersInstallParentLinks(t *testing.T) {
	a := NewArena()
	noop := a.List(a.Atom("noop"))
	root := a.List(a.Atom("step"), noop)

	if a.Parent(noop) != root {
		t.Fatalf("expected parent %d, got %d", root, a.Parent(noop))
	}
	if a.Parent(root) != Nil {
		t.Fatal("expected root to have no parent")
	}
	if a.Root(a.Children(noop)[0]) != root {
		t.Fatal("expected root lookup to climb to step")
	}
	if err := a.Append(root, noop); !errors.Is(err, ErrAttachedNode) {
		t.Fatalf("expected attached node error, got %v", err)
	}
	if err := a.Append(a.Atom("x"), a.Atom("y")); !errors.Is(err, ErrNotList) {
		t.Fatalf("expected not-list error, got %v", err)
	}
}

func TestSwapAcrossTrees(t *testing.T) {
	a := NewArena()
	left := mustParse(t, a, "(step (noop) (pickUp))")
	right := mustParse(t, a, "(step (not (noop)))")

	x := a.Args(left)[1]
	y := a.Args(right)[0]
	if err := a.Swap(x, y); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if got := a.Print(left); got != "(step (noop) (not (noop)))" {
		t.Fatalf("unexpected left after swap %q", got)
	}
	if got := a.Print(right); got != "(step (pickUp))" {
		t.Fatalf("unexpected right after swap %q", got)
	}
	if a.Parent(x) != right || a.Parent(y) != left {
		t.Fatal("expected parent links to follow swapped nodes")
	}
}

func TestSwapRejectsInvalidPairs(t *testing.T) {
	a := NewArena()
	root := mustParse(t, a, "(step (not (noop)))")
	not := a.Args(root)[0]
	inner := a.Args(not)[0]

	if err := a.Swap(root, not); !errors.Is(err, ErrRootNode) {
		t.Fatalf("expected root error, got %v", err)
	}
	if err := a.Swap(not, not); !errors.Is(err, ErrSameNode) {
		t.Fatalf("expected same node error, got %v", err)
	}
	if err := a.Swap(not, inner); !errors.Is(err, ErrNestedSwap) {
		t.Fatalf("expected nested swap error, got %v", err)
	}
	if err := a.Swap(not, Ref(99)); !errors.Is(err, ErrInvalidRef) {
		t.Fatalf("expected invalid ref error, got %v", err)
	}
}

func TestWalkPreOrder(t *testing.T) {
	a := NewArena()
	root := mustParse(t, a, "(step (if (noop) (pickUp)) (noop))")
	var heads []string
	a.Walk(root, func(ref Ref) bool {
		if a.IsList(ref) {
			heads = append(heads, a.Head(ref))
		}
		return a.Head(ref) != "if"
	})
	want := []string{"step", "if", "noop"}
	if len(heads) != len(want) {
		t.Fatalf("unexpected walk %v", heads)
	}
	for i := range want {
		if heads[i] != want[i] {
			t.Fatalf("unexpected walk %v", heads)
		}
	}
}

func TestEqualAcrossArenas(t *testing.T) {
	a, ra, err := Parse("(step (noop) 1.5)")
	if err != nil {
		t.Fatal(err)
	}
	b, rb, err := Parse("(step (noop)  1.5 )")
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(a, ra, b, rb) {
		t.Fatal("expected equal trees")
	}
	c, rc, err := Parse("(step (noop) 1.50)")
	if err != nil {
		t.Fatal(err)
	}
	if Equal(a, ra, c, rc) {
		t.Fatal("expected atom text difference to matter")
	}
}
