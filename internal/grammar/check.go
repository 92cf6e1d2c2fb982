package grammar

// Check walks the tree and returns the first child whose category does not
// fit its position, as a *CategoryError. Evaluation would fail on the same
// node, but only once control actually reaches it.
func Check(e *Expr) error {
	switch {
	case e.Kind.IsList(), e.Kind == KindIf, e.Kind == KindNot:
		for _, child := range e.Children {
			if !child.Category().Logical() {
				return &CategoryError{Name: label(child), Got: child.Category(), Want: Boolean}
			}
			if err := Check(child); err != nil {
				return err
			}
		}
	case e.Kind.IsComparison():
		for _, child := range e.Children {
			if child.Category() != Real {
				return &CategoryError{Name: label(child), Got: child.Category(), Want: Real}
			}
			if err := Check(child); err != nil {
				return err
			}
		}
	}
	return nil
}
