package evo

import (
	"math/rand"

	"naptime/internal/grammar"
)

var booleanGrowth = []grammar.Kind{
	grammar.KindIf,
	grammar.KindAnd,
	grammar.KindOr,
	grammar.KindNot,
	grammar.KindEq,
	grammar.KindLt,
	grammar.KindLte,
	grammar.KindGt,
	grammar.KindGte,
	grammar.KindSetSpeed,
	grammar.KindIsCarrying,
	grammar.KindPickUp,
}

var valueGrowth = []grammar.Kind{
	grammar.KindGetRange,
	grammar.KindGetMidpoint,
	grammar.KindGetWidth,
}

// Mutate returns the text of a randomly perturbed copy of expr. rate is the
// per-node chance of a structural or numeric change; placeholder growth of
// noop and vnoop happens with a fixed probability of one half. expr is not
// modified.
func Mutate(expr *grammar.Expr, rate float64, rng *rand.Rand) string {
	return mutateExpr(expr, rate, rng).Print()
}

func mutateExpr(e *grammar.Expr, rate float64, rng *rand.Rand) *grammar.Expr {
	switch e.Kind {
	case grammar.KindNoop:
		if rng.Float64() < 0.5 {
			return grow(booleanGrowth[rng.Intn(len(booleanGrowth))])
		}
		return e.Clone()

	case grammar.KindValueNoop:
		if rng.Float64() < 0.5 {
			return grow(valueGrowth[rng.Intn(len(valueGrowth))])
		}
		return e.Clone()

	case grammar.KindLiteral:
		out := e.Clone()
		if rng.Float64() < rate {
			out.Number = jitter(e.Number, rng)
		}
		return out

	case grammar.KindStep, grammar.KindAnd, grammar.KindOr:
		children := e.Children
		if rng.Float64() < rate && len(children) > 0 {
			drop := rng.Intn(len(children))
			children = append(append([]*grammar.Expr(nil), children[:drop]...), children[drop+1:]...)
		}
		out := &grammar.Expr{Kind: e.Kind, Children: make([]*grammar.Expr, 0, len(children))}
		for _, child := range children {
			out.Children = append(out.Children, mutateExpr(child, rate, rng))
		}
		return out

	case grammar.KindIf:
		predicate := mutateExpr(e.Children[0], rate, rng)
		if rng.Float64() < rate {
			if rng.Float64() < 0.5 {
				// The alternative is mutated before the consequent.
				alternative := noop()
				if len(e.Children) == 3 {
					alternative = mutateExpr(e.Children[2], rate, rng)
				}
				return ifExpr(predicate, alternative, mutateExpr(e.Children[1], rate, rng))
			}
			consequent := mutateExpr(e.Children[1], rate, rng)
			if len(e.Children) == 3 {
				return ifExpr(predicate, consequent)
			}
			return ifExpr(predicate, consequent, noop())
		}
		out := ifExpr(predicate, mutateExpr(e.Children[1], rate, rng))
		if len(e.Children) == 3 {
			out.Children = append(out.Children, mutateExpr(e.Children[2], rate, rng))
		}
		return out

	case grammar.KindNot:
		if rng.Float64() < rate {
			return mutateExpr(e.Children[0], rate, rng)
		}
		return &grammar.Expr{Kind: grammar.KindNot, Children: []*grammar.Expr{mutateExpr(e.Children[0], rate, rng)}}

	case grammar.KindEq, grammar.KindLt, grammar.KindLte, grammar.KindGt, grammar.KindGte:
		kind := e.Kind
		if rng.Float64() < rate {
			kind = grammar.Comparisons[rng.Intn(len(grammar.Comparisons))]
		}
		return &grammar.Expr{Kind: kind, Children: []*grammar.Expr{
			mutateExpr(e.Children[0], rate, rng),
			mutateExpr(e.Children[1], rate, rng),
		}}

	case grammar.KindGetRange:
		out := e.Clone()
		if rng.Float64() < rate {
			out.Sensor = rng.Intn(grammar.SensorCount)
		}
		return out

	case grammar.KindSetSpeed:
		out := e.Clone()
		if rng.Float64() < rate {
			out.Left = jitter(e.Left, rng)
			out.Right = jitter(e.Right, rng)
		}
		return out

	case grammar.KindInState:
		out := e.Clone()
		if rng.Float64() < rate {
			out.State = grammar.States[rng.Intn(len(grammar.States))]
		}
		return out
	}
	// getMidpoint, getWidth, pickUp, isCarrying
	return e.Clone()
}

// jitter nudges a zero value into [-0.1, 0.1] and scales anything else by a
// factor in [0.5, 1.5).
func jitter(v float64, rng *rand.Rand) float64 {
	if v == 0 {
		return rng.Float64()*0.2 - 0.1
	}
	return v * (0.5 + rng.Float64())
}

func noop() *grammar.Expr {
	return &grammar.Expr{Kind: grammar.KindNoop}
}

func ifExpr(children ...*grammar.Expr) *grammar.Expr {
	return &grammar.Expr{Kind: grammar.KindIf, Children: children}
}

// grow builds a fresh node of kind with placeholder children.
func grow(kind grammar.Kind) *grammar.Expr {
	out := &grammar.Expr{Kind: kind}
	switch {
	case kind == grammar.KindIf, kind == grammar.KindAnd, kind == grammar.KindOr:
		out.Children = []*grammar.Expr{noop(), noop()}
	case kind == grammar.KindNot:
		out.Children = []*grammar.Expr{noop()}
	case kind.IsComparison():
		out.Children = []*grammar.Expr{
			{Kind: grammar.KindValueNoop},
			{Kind: grammar.KindLiteral},
		}
	}
	return out
}
