package grammar

import "fmt"

// StructureError reports a node that does not fit its kind's signature:
// unknown names, wrong arity, malformed atoms.
type StructureError struct {
	Name string
	Msg  string
}

func (e *StructureError) Error() string {
	if e.Name == "" {
		return "grammar: " + e.Msg
	}
	return fmt.Sprintf("grammar: %s: %s", e.Name, e.Msg)
}

func structuref(name, format string, args ...any) *StructureError {
	return &StructureError{Name: name, Msg: fmt.Sprintf(format, args...)}
}

// CategoryError reports an expression used where another value category was
// required, e.g. a sensor read as a branch condition.
type CategoryError struct {
	Name string
	Got  Category
	Want Category
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("grammar: %s expression %s used in %s context", e.Got, e.Name, e.Want)
}
