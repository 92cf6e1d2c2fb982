package grammar

import (
	"fmt"
	"math"
	"strconv"

	"naptime/internal/sexp"
)

// SensorCount is the number of radial range channels getRange may read.
const SensorCount = 16

// Expr is one node of a typed strategy tree. Which fields are meaningful
// depends on Kind:
//
//	KindLiteral              Number
//	KindStep, KindAnd, KindOr Children (any number)
//	KindIf                   Children: predicate, consequent[, alternative]
//	KindNot                  Children: inner
//	comparisons              Children: left, right
//	KindGetRange             Sensor
//	KindSetSpeed             Left, Right
//	KindInState              State
//
// Trees are exclusively owned and carry no parent links.
type Expr struct {
	Kind     Kind
	Children []*Expr
	Number   float64
	Sensor   int
	Left     float64
	Right    float64
	State    State
}

func (e *Expr) Name() string {
	return kindNames[e.Kind]
}

func (e *Expr) Category() Category {
	return e.Kind.Category()
}

// Clone returns a deep copy that shares nothing with e.
func (e *Expr) Clone() *Expr {
	out := *e
	if e.Children != nil {
		out.Children = make([]*Expr, len(e.Children))
		for i, child := range e.Children {
			out.Children[i] = child.Clone()
		}
	}
	return &out
}

// Size counts the nodes of the tree, literal operands included.
func (e *Expr) Size() int {
	n := 1
	for _, child := range e.Children {
		n += child.Size()
	}
	return n
}

// Depth is the length of the longest root-to-leaf path.
func (e *Expr) Depth() int {
	deepest := 0
	for _, child := range e.Children {
		if d := child.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Parse builds one expression from text.
func Parse(text string) (*Expr, error) {
	arena, root, err := sexp.Parse(text)
	if err != nil {
		return nil, err
	}
	return Build(arena, root)
}

// ParseProgram builds a complete agent program, whose root must be step.
func ParseProgram(text string) (*Expr, error) {
	expr, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if expr.Kind != KindStep {
		return nil, structuref(expr.Name(), "program root must be %s", kindNames[KindStep])
	}
	return expr, nil
}

// ReadProgram loads a program from a strategy file.
func ReadProgram(path string) (*Expr, error) {
	arena, root, err := sexp.ReadFile(path)
	if err != nil {
		return nil, err
	}
	expr, err := Build(arena, root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if expr.Kind != KindStep {
		return nil, fmt.Errorf("%s: %w", path, structuref(expr.Name(), "program root must be %s", kindNames[KindStep]))
	}
	return expr, nil
}

// Build converts a parsed list node into a typed expression, checking the
// arity and atom/list shape of every node on the way down. Value categories
// of children are not checked here; see Check.
func Build(a *sexp.Arena, ref sexp.Ref) (*Expr, error) {
	if !a.IsList(ref) {
		return nil, structuref("", "expected S-expression, got atom %q", a.Text(ref))
	}
	name := a.Head(ref)
	if name == "" {
		return nil, structuref("", "expression did not start with atom")
	}
	kind, ok := KindByName(name)
	if !ok {
		return nil, structuref("", "unexpected expression name '%s'", name)
	}
	args := a.Args(ref)
	expr := &Expr{Kind: kind}

	switch kind {
	case KindNoop, KindValueNoop, KindGetMidpoint, KindGetWidth, KindPickUp, KindIsCarrying:
		if len(args) != 0 {
			return nil, structuref(name, "takes no arguments")
		}

	case KindStep, KindAnd, KindOr:
		children, err := buildLists(a, name, args)
		if err != nil {
			return nil, err
		}
		expr.Children = children

	case KindIf:
		if len(args) < 2 {
			return nil, structuref(name, "requires at least 2 args")
		}
		if len(args) > 3 {
			return nil, structuref(name, "cannot have more than 3 args")
		}
		children, err := buildLists(a, name, args)
		if err != nil {
			return nil, err
		}
		expr.Children = children

	case KindNot:
		if len(args) != 1 {
			return nil, structuref(name, "can only take a single expression")
		}
		children, err := buildLists(a, name, args)
		if err != nil {
			return nil, err
		}
		expr.Children = children

	case KindEq, KindLt, KindLte, KindGt, KindGte:
		if len(args) != 2 {
			return nil, structuref(name, "is a binary operator")
		}
		for _, arg := range args {
			operand, err := buildOperand(a, arg)
			if err != nil {
				return nil, err
			}
			expr.Children = append(expr.Children, operand)
		}

	case KindGetRange:
		if len(args) != 1 || a.IsList(args[0]) {
			return nil, structuref(name, "takes only one sensor index argument")
		}
		sensor, err := strconv.Atoi(a.Text(args[0]))
		if err != nil {
			return nil, structuref(name, "invalid sensor index %q", a.Text(args[0]))
		}
		if sensor < 0 || sensor >= SensorCount {
			return nil, structuref(name, "sensor index %d outside [0,%d)", sensor, SensorCount)
		}
		expr.Sensor = sensor

	case KindSetSpeed:
		if len(args) != 2 || a.IsList(args[0]) || a.IsList(args[1]) {
			return nil, structuref(name, "takes two literal arguments")
		}
		left, err := parseReal(name, a.Text(args[0]))
		if err != nil {
			return nil, err
		}
		right, err := parseReal(name, a.Text(args[1]))
		if err != nil {
			return nil, err
		}
		expr.Left, expr.Right = left, right

	case KindInState:
		if len(args) != 1 || a.IsList(args[0]) {
			return nil, structuref(name, "takes only one argument")
		}
		state, err := ParseState(a.Text(args[0]))
		if err != nil {
			return nil, structuref(name, "%v", err)
		}
		expr.State = state

	default:
		return nil, structuref(name, "unsupported expression kind %s", kind)
	}
	return expr, nil
}

func buildLists(a *sexp.Arena, name string, args []sexp.Ref) ([]*Expr, error) {
	children := make([]*Expr, 0, len(args))
	for _, arg := range args {
		if !a.IsList(arg) {
			return nil, structuref(name, "expected S-expression, got atom %q", a.Text(arg))
		}
		child, err := Build(a, arg)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func buildOperand(a *sexp.Arena, ref sexp.Ref) (*Expr, error) {
	if a.IsList(ref) {
		return Build(a, ref)
	}
	value, err := parseReal(kindNames[KindLiteral], a.Text(ref))
	if err != nil {
		return nil, err
	}
	return &Expr{Kind: KindLiteral, Number: value}, nil
}

func parseReal(name, text string) (float64, error) {
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, structuref(name, "invalid number %q", text)
	}
	return value, nil
}

// Deprecations lists the deprecated node names used anywhere in the tree.
func Deprecations(e *Expr) []string {
	var out []string
	seen := map[Kind]bool{}
	var walk func(*Expr)
	walk = func(node *Expr) {
		if node.Kind == KindIsCarrying && !seen[node.Kind] {
			seen[node.Kind] = true
			out = append(out, fmt.Sprintf("%s has been deprecated, use %s %s", node.Name(), kindNames[KindInState], StateCarry))
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(e)
	return out
}
