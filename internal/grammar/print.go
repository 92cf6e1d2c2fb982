package grammar

import (
	"strconv"
	"strings"

	"naptime/internal/sexp"
)

// ToSexp appends the expression to an arena and returns its detached root.
func (e *Expr) ToSexp(a *sexp.Arena) sexp.Ref {
	switch e.Kind {
	case KindLiteral:
		return a.Atom(FormatReal(e.Number))
	case KindGetRange:
		return a.List(a.Atom(e.Name()), a.Atom(strconv.Itoa(e.Sensor)))
	case KindSetSpeed:
		return a.List(a.Atom(e.Name()), a.Atom(FormatReal(e.Left)), a.Atom(FormatReal(e.Right)))
	case KindInState:
		return a.List(a.Atom(e.Name()), a.Atom(e.State.String()))
	}
	list := a.List(a.Atom(e.Name()))
	for _, child := range e.Children {
		_ = a.Append(list, child.ToSexp(a))
	}
	return list
}

// Print renders the expression in canonical compact text.
func (e *Expr) Print() string {
	a := sexp.NewArena()
	return a.Print(e.ToSexp(a))
}

// Pretty renders the expression in the indented file layout.
func (e *Expr) Pretty() string {
	a := sexp.NewArena()
	return a.Pretty(e.ToSexp(a))
}

func (e *Expr) String() string {
	return e.Print()
}

// FormatReal prints a number so it reads back as the same float64 and always
// looks like a real, e.g. "0.0" rather than "0".
func FormatReal(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func label(e *Expr) string {
	if e.Kind == KindLiteral {
		return FormatReal(e.Number)
	}
	return e.Name()
}
