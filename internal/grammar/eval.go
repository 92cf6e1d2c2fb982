package grammar

// Agent is the per-step view of one simulated robot that programs read
// sensors from and send actuator commands to.
type Agent interface {
	Range(sensor int) float64
	MidpointInView() float64
	WidthInView() float64
	InState(state State) bool
	PickUp() bool
	SetSpeed(left, right float64)
	IsCarrying() bool
}

// Eval runs a logical or side-effecting expression. step evaluates every
// child even after a failure; and/or short-circuit.
func (e *Expr) Eval(agent Agent) (bool, error) {
	switch e.Kind {
	case KindNoop:
		return true, nil

	case KindStep:
		success := true
		for _, child := range e.Children {
			ok, err := child.Eval(agent)
			if err != nil {
				return false, err
			}
			success = ok && success
		}
		return success, nil

	case KindIf:
		predicate, err := e.Children[0].Eval(agent)
		if err != nil {
			return false, err
		}
		if predicate {
			return e.Children[1].Eval(agent)
		}
		if len(e.Children) == 3 {
			return e.Children[2].Eval(agent)
		}
		return false, nil

	case KindAnd:
		for _, child := range e.Children {
			ok, err := child.Eval(agent)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case KindOr:
		for _, child := range e.Children {
			ok, err := child.Eval(agent)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case KindNot:
		ok, err := e.Children[0].Eval(agent)
		if err != nil {
			return false, err
		}
		return !ok, nil

	case KindEq, KindLt, KindLte, KindGt, KindGte:
		left, err := e.Children[0].Value(agent)
		if err != nil {
			return false, err
		}
		right, err := e.Children[1].Value(agent)
		if err != nil {
			return false, err
		}
		return compare(e.Kind, left, right), nil

	case KindSetSpeed:
		agent.SetSpeed(e.Left, e.Right)
		return true, nil

	case KindInState:
		return agent.InState(e.State), nil

	case KindPickUp:
		return agent.PickUp(), nil

	case KindIsCarrying:
		return agent.IsCarrying(), nil

	case KindLiteral, KindValueNoop, KindGetRange, KindGetMidpoint, KindGetWidth:
		return false, &CategoryError{Name: label(e), Got: Real, Want: Boolean}
	}
	return false, structuref(e.Name(), "unsupported expression kind %s", e.Kind)
}

// Value reads a real-valued expression.
func (e *Expr) Value(agent Agent) (float64, error) {
	switch e.Kind {
	case KindLiteral:
		return e.Number, nil
	case KindValueNoop:
		return 0, nil
	case KindGetRange:
		return agent.Range(e.Sensor), nil
	case KindGetMidpoint:
		return agent.MidpointInView(), nil
	case KindGetWidth:
		return agent.WidthInView(), nil
	}
	return 0, &CategoryError{Name: label(e), Got: e.Category(), Want: Real}
}

func compare(kind Kind, left, right float64) bool {
	switch kind {
	case KindEq:
		return left == right
	case KindLt:
		return left < right
	case KindLte:
		return left <= right
	case KindGt:
		return left > right
	case KindGte:
		return left >= right
	}
	return false
}
