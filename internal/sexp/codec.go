package sexp

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrUnterminated   = errors.New("expression not terminated")
	ErrContentOutside = errors.New("content outside of expression")
	ErrEmpty          = errors.New("no expression found")
)

// prettyWidth is the longest compact rendering Pretty keeps on one line.
const prettyWidth = 72

// ParseError locates a codec failure inside the input text.
type ParseError struct {
	Offset int
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sexp: %v at offset %d", e.Err, e.Offset)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads exactly one parenthesized expression into a fresh arena.
func Parse(text string) (*Arena, Ref, error) {
	arena := NewArena()
	root, err := arena.Parse(text)
	if err != nil {
		return nil, Nil, err
	}
	return arena, root, nil
}

// ReadFile parses the single expression stored in a UTF-8 file.
func ReadFile(path string) (*Arena, Ref, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Nil, err
	}
	arena, root, err := Parse(string(data))
	if err != nil {
		return nil, Nil, fmt.Errorf("%s: %w", path, err)
	}
	return arena, root, nil
}

// Parse reads exactly one expression into the arena and returns its root.
// The scan is single pass: an explicit stack tracks nesting depth, atoms end
// at whitespace or parentheses, and anything but whitespace at depth zero
// outside the one top-level list is rejected.
func (a *Arena) Parse(text string) (Ref, error) {
	var (
		stack []Ref
		root  = Nil
		start = -1
	)
	flush := func(end int) {
		if start < 0 {
			return
		}
		_ = a.Append(stack[len(stack)-1], a.Atom(text[start:end]))
		start = -1
	}

	for i, r := range text {
		switch {
		case r == '(':
			if len(stack) == 0 {
				if root != Nil {
					return Nil, &ParseError{Offset: i, Err: ErrContentOutside}
				}
				root = a.List()
				stack = append(stack, root)
				continue
			}
			flush(i)
			list := a.List()
			_ = a.Append(stack[len(stack)-1], list)
			stack = append(stack, list)
		case r == ')':
			if len(stack) == 0 {
				return Nil, &ParseError{Offset: i, Err: ErrContentOutside}
			}
			flush(i)
			stack = stack[:len(stack)-1]
		case unicode.IsSpace(r):
			if len(stack) > 0 {
				flush(i)
			}
		case r == utf8.RuneError:
			return Nil, &ParseError{Offset: i, Err: fmt.Errorf("invalid UTF-8")}
		default:
			if len(stack) == 0 {
				return Nil, &ParseError{Offset: i, Err: ErrContentOutside}
			}
			if start < 0 {
				start = i
			}
		}
	}

	if len(stack) > 0 {
		return Nil, &ParseError{Offset: len(text), Err: ErrUnterminated}
	}
	if root == Nil {
		return Nil, &ParseError{Offset: len(text), Err: ErrEmpty}
	}
	return root, nil
}

// Print renders the subtree in canonical compact form.
func (a *Arena) Print(ref Ref) string {
	var b strings.Builder
	a.print(&b, ref)
	return b.String()
}

func (a *Arena) print(b *strings.Builder, ref Ref) {
	if !a.IsList(ref) {
		b.WriteString(a.Text(ref))
		return
	}
	b.WriteByte('(')
	for i, child := range a.nodes[ref].children {
		if i > 0 {
			b.WriteByte(' ')
		}
		a.print(b, child)
	}
	b.WriteByte(')')
}

// Pretty renders the subtree indented two spaces per level, keeping short
// lists on one line. The output ends with a newline and parses back to the
// same tree.
func (a *Arena) Pretty(ref Ref) string {
	var b strings.Builder
	a.pretty(&b, ref, 0)
	b.WriteByte('\n')
	return b.String()
}

func (a *Arena) pretty(b *strings.Builder, ref Ref, depth int) {
	compact := a.Print(ref)
	if !a.IsList(ref) || len(compact)+2*depth <= prettyWidth || a.flat(ref) {
		b.WriteString(compact)
		return
	}

	children := a.nodes[ref].children
	b.WriteByte('(')
	i := 0
	for ; i < len(children) && !a.IsList(children[i]); i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(a.Text(children[i]))
	}
	for ; i < len(children); i++ {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat("  ", depth+1))
		a.pretty(b, children[i], depth+1)
	}
	b.WriteByte(')')
}

func (a *Arena) flat(ref Ref) bool {
	for _, child := range a.nodes[ref].children {
		if a.IsList(child) {
			return false
		}
	}
	return true
}
