// Package sexp implements the parenthesized strategy text format as
// arena-indexed trees. Nodes live in a slice and refer to their parent and
// children by index, which keeps subtree swaps and detaches cheap without
// owning pointer cycles.
package sexp

import (
	"errors"
	"fmt"
)

// Ref addresses a node inside an Arena.
type Ref int32

// Nil is the parent of a root node.
const Nil Ref = -1

var (
	ErrRootNode       = errors.New("root node has no parent")
	ErrSameNode       = errors.New("cannot swap a node with itself")
	ErrNestedSwap     = errors.New("cannot swap a node with its own ancestor")
	ErrInvalidRef     = errors.New("invalid node reference")
	ErrAttachedNode   = errors.New("node already has a parent")
	ErrNotList        = errors.New("node is not a list")
	errNodeNotInChild = errors.New("node missing from parent child list")
)

type node struct {
	atom     string
	list     bool
	parent   Ref
	children []Ref
}

// Arena owns a forest of S-expression nodes. Several trees may share one
// arena, which is how crossover exchanges subtrees between two programs.
type Arena struct {
	nodes []node
}

func NewArena() *Arena {
	return &Arena{}
}

// Len reports how many nodes were ever allocated in the arena.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Atom allocates a detached atom.
func (a *Arena) Atom(text string) Ref {
	a.nodes = append(a.nodes, node{atom: text, parent: Nil})
	return Ref(len(a.nodes) - 1)
}

// List allocates a list and adopts the given detached children in order.
func (a *Arena) List(children ...Ref) Ref {
	a.nodes = append(a.nodes, node{list: true, parent: Nil})
	ref := Ref(len(a.nodes) - 1)
	for _, child := range children {
		if err := a.Append(ref, child); err != nil {
			panic(fmt.Sprintf("sexp: list child %d: %v", child, err))
		}
	}
	return ref
}

// Append adds a detached node as the last child of list.
func (a *Arena) Append(list, child Ref) error {
	if !a.valid(list) || !a.valid(child) {
		return ErrInvalidRef
	}
	if !a.nodes[list].list {
		return ErrNotList
	}
	if a.nodes[child].parent != Nil {
		return ErrAttachedNode
	}
	a.nodes[list].children = append(a.nodes[list].children, child)
	a.nodes[child].parent = list
	return nil
}

func (a *Arena) IsList(ref Ref) bool {
	return a.valid(ref) && a.nodes[ref].list
}

// Text returns the atom text, or "" for lists.
func (a *Arena) Text(ref Ref) string {
	if !a.valid(ref) {
		return ""
	}
	return a.nodes[ref].atom
}

// Head returns the leading atom of a list, or "" when the list is empty or
// starts with a nested list.
func (a *Arena) Head(ref Ref) string {
	if !a.IsList(ref) {
		return ""
	}
	children := a.nodes[ref].children
	if len(children) == 0 || a.nodes[children[0]].list {
		return ""
	}
	return a.nodes[children[0]].atom
}

// Children returns the child refs of a list. The slice must not be modified.
func (a *Arena) Children(ref Ref) []Ref {
	if !a.IsList(ref) {
		return nil
	}
	return a.nodes[ref].children
}

// Args returns the children after the head atom.
func (a *Arena) Args(ref Ref) []Ref {
	children := a.Children(ref)
	if len(children) == 0 {
		return nil
	}
	return children[1:]
}

func (a *Arena) Parent(ref Ref) Ref {
	if !a.valid(ref) {
		return Nil
	}
	return a.nodes[ref].parent
}

// Root follows parent links up to the tree root.
func (a *Arena) Root(ref Ref) Ref {
	for a.valid(ref) && a.nodes[ref].parent != Nil {
		ref = a.nodes[ref].parent
	}
	return ref
}

// Walk visits the subtree rooted at ref in pre-order. Returning false from fn
// skips the children of the visited node.
func (a *Arena) Walk(ref Ref, fn func(Ref) bool) {
	if !a.valid(ref) {
		return
	}
	if !fn(ref) {
		return
	}
	for _, child := range a.nodes[ref].children {
		a.Walk(child, fn)
	}
}

// Swap exchanges the subtrees rooted at x and y by re-linking their parents.
// Both nodes may belong to different trees of the same arena.
func (a *Arena) Swap(x, y Ref) error {
	if !a.valid(x) || !a.valid(y) {
		return ErrInvalidRef
	}
	if x == y {
		return ErrSameNode
	}
	px, py := a.nodes[x].parent, a.nodes[y].parent
	if px == Nil || py == Nil {
		return ErrRootNode
	}
	if a.isAncestor(x, y) || a.isAncestor(y, x) {
		return ErrNestedSwap
	}
	ix, err := a.childIndex(px, x)
	if err != nil {
		return err
	}
	iy, err := a.childIndex(py, y)
	if err != nil {
		return err
	}
	a.nodes[px].children[ix] = y
	a.nodes[py].children[iy] = x
	a.nodes[x].parent = py
	a.nodes[y].parent = px
	return nil
}

func (a *Arena) isAncestor(ancestor, ref Ref) bool {
	for p := a.nodes[ref].parent; p != Nil; p = a.nodes[p].parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

func (a *Arena) childIndex(parent, child Ref) (int, error) {
	for i, c := range a.nodes[parent].children {
		if c == child {
			return i, nil
		}
	}
	return -1, errNodeNotInChild
}

func (a *Arena) valid(ref Ref) bool {
	return ref >= 0 && int(ref) < len(a.nodes)
}

// Equal reports whether two subtrees, possibly from different arenas, have
// the same shape and atoms.
func Equal(a *Arena, ra Ref, b *Arena, rb Ref) bool {
	if a.IsList(ra) != b.IsList(rb) {
		return false
	}
	if !a.IsList(ra) {
		return a.valid(ra) && b.valid(rb) && a.Text(ra) == b.Text(rb)
	}
	ca, cb := a.Children(ra), b.Children(rb)
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if !Equal(a, ca[i], b, cb[i]) {
			return false
		}
	}
	return true
}
