// Package grammar defines the closed, typed expression language robot
// strategies are written in: boolean logic nodes, real-valued sensor and
// literal nodes, and side-effecting actuator nodes.
package grammar

import (
	"fmt"
	"strings"
)

// Category is the kind of value an expression produces.
type Category uint8

const (
	Boolean Category = iota
	Real
	// None marks pure side effects; they still report success in a
	// boolean context.
	None
)

func (c Category) String() string {
	switch c {
	case Boolean:
		return "boolean"
	case Real:
		return "real"
	case None:
		return "none"
	default:
		return fmt.Sprintf("category(%d)", c)
	}
}

// Logical reports whether an expression of this category may appear where a
// boolean result is expected.
func (c Category) Logical() bool {
	return c == Boolean || c == None
}

// Kind enumerates every node in the vocabulary.
type Kind uint8

const (
	KindLiteral Kind = iota
	KindNoop
	KindValueNoop
	KindStep
	KindIf
	KindAnd
	KindOr
	KindNot
	KindEq
	KindLt
	KindLte
	KindGt
	KindGte
	KindGetRange
	KindGetMidpoint
	KindGetWidth
	KindSetSpeed
	KindInState
	KindPickUp
	KindIsCarrying
	kindCount
)

var kindNames = [kindCount]string{
	KindLiteral:     "",
	KindNoop:        "noop",
	KindValueNoop:   "vnoop",
	KindStep:        "step",
	KindIf:          "if",
	KindAnd:         "and",
	KindOr:          "or",
	KindNot:         "not",
	KindEq:          "eq",
	KindLt:          "lt",
	KindLte:         "lte",
	KindGt:          "gt",
	KindGte:         "gte",
	KindGetRange:    "getRange",
	KindGetMidpoint: "getMidpoint",
	KindGetWidth:    "getWidth",
	KindSetSpeed:    "setSpeed",
	KindInState:     "inState",
	KindPickUp:      "pickUp",
	KindIsCarrying:  "isCarrying",
}

var kindCategories = [kindCount]Category{
	KindLiteral:     Real,
	KindNoop:        Boolean,
	KindValueNoop:   Real,
	KindStep:        Boolean,
	KindIf:          Boolean,
	KindAnd:         Boolean,
	KindOr:          Boolean,
	KindNot:         Boolean,
	KindEq:          Boolean,
	KindLt:          Boolean,
	KindLte:         Boolean,
	KindGt:          Boolean,
	KindGte:         Boolean,
	KindGetRange:    Real,
	KindGetMidpoint: Real,
	KindGetWidth:    Real,
	KindSetSpeed:    None,
	KindInState:     Boolean,
	KindPickUp:      Boolean,
	KindIsCarrying:  Boolean,
}

var kindByName = func() map[string]Kind {
	out := make(map[string]Kind, kindCount)
	for k := KindNoop; k < kindCount; k++ {
		out[kindNames[k]] = k
	}
	return out
}()

// Comparisons is the comparison operator family, in mutation draw order.
var Comparisons = []Kind{KindEq, KindLt, KindLte, KindGt, KindGte}

func (k Kind) String() string {
	if k == KindLiteral {
		return "literal"
	}
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Category returns the value category the kind declares.
func (k Kind) Category() Category {
	if k < kindCount {
		return kindCategories[k]
	}
	return None
}

// IsComparison reports whether k is one of eq, lt, lte, gt, gte.
func (k Kind) IsComparison() bool {
	return k >= KindEq && k <= KindGte
}

// IsList reports whether k holds a variable-length list of logical children.
func (k Kind) IsList() bool {
	return k == KindStep || k == KindAnd || k == KindOr
}

// KindByName resolves a head atom to its kind.
func KindByName(name string) (Kind, bool) {
	k, ok := kindByName[name]
	return k, ok
}

// State is a robot's discrete behavioral state.
type State uint8

const (
	StateSearch State = iota
	StateCarry
	StateBackup
	StateUturn
)

// States lists every state in token order.
var States = []State{StateSearch, StateCarry, StateBackup, StateUturn}

func (s State) String() string {
	switch s {
	case StateSearch:
		return "search"
	case StateCarry:
		return "carry"
	case StateBackup:
		return "backup"
	case StateUturn:
		return "uturn"
	default:
		return fmt.Sprintf("state(%d)", s)
	}
}

// ParseState resolves a state token case-insensitively.
func ParseState(token string) (State, error) {
	for _, s := range States {
		if strings.EqualFold(token, s.String()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("invalid state %s", token)
}
