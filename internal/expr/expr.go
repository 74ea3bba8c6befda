// Package expr implements the arithmetic language used by calculated keys:
// identifiers, numeric literals, + - * /, unary signs and parentheses.
package expr

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrSyntax            = errors.New("syntax error")
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrDivisionByZero    = errors.New("division by zero")
)

// UnknownIdentifierError reports a variable missing from the evaluation scope.
type UnknownIdentifierError struct {
	Name string
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("unknown identifier %q", e.Name)
}

func (e *UnknownIdentifierError) Is(target error) bool {
	return target == ErrUnknownIdentifier
}

// Expression is a compiled arithmetic expression.
type Expression struct {
	source string
	root   *sumNode
}

// Compile parses src.
func Compile(src string) (*Expression, error) {
	root, err := parser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("%w in %q: %v", ErrSyntax, src, err)
	}
	return &Expression{source: src, root: root}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Expression {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// Eval evaluates the expression with variables bound from scope.
func Eval(src string, scope map[string]float64) (float64, error) {
	e, err := Compile(src)
	if err != nil {
		return 0, err
	}
	return e.Eval(scope)
}

func (e *Expression) String() string {
	return e.source
}

// Eval evaluates the expression with variables bound from scope.
func (e *Expression) Eval(scope map[string]float64) (float64, error) {
	return e.root.eval(scope)
}

// Identifiers returns the variable names referenced by the expression, sorted.
func (e *Expression) Identifiers() []string {
	seen := make(map[string]bool)
	e.root.identifiers(seen)
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (n *sumNode) eval(scope map[string]float64) (float64, error) {
	acc, err := n.Left.eval(scope)
	if err != nil {
		return 0, err
	}
	for _, op := range n.Right {
		v, err := op.Operand.eval(scope)
		if err != nil {
			return 0, err
		}
		if op.Op == "+" {
			acc += v
		} else {
			acc -= v
		}
	}
	return acc, nil
}

func (n *productNode) eval(scope map[string]float64) (float64, error) {
	acc, err := n.Left.eval(scope)
	if err != nil {
		return 0, err
	}
	for _, op := range n.Right {
		v, err := op.Operand.eval(scope)
		if err != nil {
			return 0, err
		}
		if op.Op == "*" {
			acc *= v
			continue
		}
		if v == 0 {
			return 0, ErrDivisionByZero
		}
		acc /= v
	}
	return acc, nil
}

func (n *unaryNode) eval(scope map[string]float64) (float64, error) {
	if n.Primary != nil {
		return n.Primary.eval(scope)
	}
	v, err := n.Operand.eval(scope)
	if err != nil {
		return 0, err
	}
	if n.Sign == "-" {
		return -v, nil
	}
	return v, nil
}

func (n *primaryNode) eval(scope map[string]float64) (float64, error) {
	switch {
	case n.Number != nil:
		return *n.Number, nil
	case n.Ident != nil:
		v, ok := scope[*n.Ident]
		if !ok {
			return 0, &UnknownIdentifierError{Name: *n.Ident}
		}
		return v, nil
	default:
		return n.Group.eval(scope)
	}
}

func (n *sumNode) identifiers(seen map[string]bool) {
	n.Left.identifiers(seen)
	for _, op := range n.Right {
		op.Operand.identifiers(seen)
	}
}

func (n *productNode) identifiers(seen map[string]bool) {
	n.Left.identifiers(seen)
	for _, op := range n.Right {
		op.Operand.identifiers(seen)
	}
}

func (n *unaryNode) identifiers(seen map[string]bool) {
	if n.Primary != nil {
		n.Primary.identifiers(seen)
		return
	}
	n.Operand.identifiers(seen)
}

func (n *primaryNode) identifiers(seen map[string]bool) {
	switch {
	case n.Ident != nil:
		seen[*n.Ident] = true
	case n.Group != nil:
		n.Group.identifiers(seen)
	}
}
