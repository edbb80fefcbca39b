// Package parser turns expression source text into an ast.Node.
//
// The grammar is ECMAScript 5 as implemented by github.com/robertkrimen/otto.
// Only the expression subset listed in package ast is accepted; statements,
// assignments, object and function literals are rejected with a SyntaxError.
package parser

import (
	"errors"
	"fmt"
	"strings"

	ottoast "github.com/robertkrimen/otto/ast"
	ottoparser "github.com/robertkrimen/otto/parser"
	"github.com/robertkrimen/otto/token"

	"github.com/randalmurphal/flowstate/pkg/flowstate/ast"
)

// SyntaxError reports text that could not be turned into an expression tree.
type SyntaxError struct {
	// Source is the expression text.
	Source string
	// Line and Column locate the problem when the grammar reported a position.
	Line   int
	Column int
	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("syntax error in %q at %d:%d: %s", e.Source, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("syntax error in %q: %s", e.Source, e.Message)
}

// Parse parses one expression, or several separated by ',' or ';'.
// Multiple expressions yield an *ast.Compound. Empty input yields an
// empty *ast.Compound, which evaluates to undefined.
func Parse(text string) (ast.Node, error) {
	program, err := ottoparser.ParseFile(nil, "", text, 0)
	if err != nil {
		return nil, syntaxError(text, err)
	}

	body := make([]ast.Node, 0, len(program.Body))
	for _, stmt := range program.Body {
		switch s := stmt.(type) {
		case *ottoast.EmptyStatement:
			continue
		case *ottoast.ExpressionStatement:
			n, err := convert(text, s.Expression)
			if err != nil {
				return nil, err
			}
			body = append(body, n)
		default:
			return nil, &SyntaxError{Source: text, Message: fmt.Sprintf("statement %T is not an expression", stmt)}
		}
	}

	if len(body) == 1 {
		return body[0], nil
	}
	return &ast.Compound{Body: body}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level expression constants.
func MustParse(text string) ast.Node {
	n, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return n
}

func syntaxError(text string, err error) error {
	var list ottoparser.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		first := list[0]
		return &SyntaxError{
			Source:  text,
			Line:    first.Position.Line,
			Column:  first.Position.Column,
			Message: first.Message,
		}
	}
	return &SyntaxError{Source: text, Message: err.Error()}
}

// convert maps one otto expression onto the flowstate tree.
func convert(text string, expr ottoast.Expression) (ast.Node, error) {
	unsupported := func(what string) error {
		return &SyntaxError{Source: text, Message: what + " is not supported in expressions"}
	}

	switch e := expr.(type) {
	case *ottoast.NumberLiteral:
		switch v := e.Value.(type) {
		case int64:
			return &ast.Literal{Value: float64(v), Raw: e.Literal}, nil
		case float64:
			return &ast.Literal{Value: v, Raw: e.Literal}, nil
		default:
			return nil, &SyntaxError{Source: text, Message: fmt.Sprintf("invalid number literal %q", e.Literal)}
		}

	case *ottoast.StringLiteral:
		return &ast.Literal{Value: e.Value, Raw: e.Literal}, nil

	case *ottoast.BooleanLiteral:
		return &ast.Literal{Value: e.Value, Raw: e.Literal}, nil

	case *ottoast.NullLiteral:
		return &ast.Literal{Value: nil, Raw: "null"}, nil

	case *ottoast.Identifier:
		return &ast.Identifier{Name: e.Name}, nil

	case *ottoast.ThisExpression:
		return &ast.This{}, nil

	case *ottoast.DotExpression:
		obj, err := convert(text, e.Left)
		if err != nil {
			return nil, err
		}
		return &ast.Member{
			Object:   obj,
			Property: &ast.Identifier{Name: e.Identifier.Name},
		}, nil

	case *ottoast.BracketExpression:
		obj, err := convert(text, e.Left)
		if err != nil {
			return nil, err
		}
		prop, err := convert(text, e.Member)
		if err != nil {
			return nil, err
		}
		return &ast.Member{Object: obj, Property: prop, Computed: true}, nil

	case *ottoast.UnaryExpression:
		switch e.Operator {
		case token.DELETE, token.VOID, token.TYPEOF:
			return nil, unsupported("operator " + e.Operator.String())
		}
		arg, err := convert(text, e.Operand)
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Operator: e.Operator.String(), Argument: arg, Prefix: !e.Postfix}, nil

	case *ottoast.BinaryExpression:
		left, err := convert(text, e.Left)
		if err != nil {
			return nil, err
		}
		right, err := convert(text, e.Right)
		if err != nil {
			return nil, err
		}
		op := e.Operator.String()
		if e.Operator == token.LOGICAL_AND || e.Operator == token.LOGICAL_OR {
			return &ast.Logical{Operator: op, Left: left, Right: right}, nil
		}
		if e.Operator == token.IN || e.Operator == token.INSTANCEOF {
			return nil, unsupported("operator " + op)
		}
		return &ast.Binary{Operator: op, Left: left, Right: right}, nil

	case *ottoast.ConditionalExpression:
		test, err := convert(text, e.Test)
		if err != nil {
			return nil, err
		}
		cons, err := convert(text, e.Consequent)
		if err != nil {
			return nil, err
		}
		alt, err := convert(text, e.Alternate)
		if err != nil {
			return nil, err
		}
		return &ast.Conditional{Test: test, Consequent: cons, Alternate: alt}, nil

	case *ottoast.CallExpression:
		callee, err := convert(text, e.Callee)
		if err != nil {
			return nil, err
		}
		args, err := convertList(text, e.ArgumentList)
		if err != nil {
			return nil, err
		}
		return &ast.Call{Callee: callee, Arguments: args}, nil

	case *ottoast.ArrayLiteral:
		elems, err := convertList(text, e.Value)
		if err != nil {
			return nil, err
		}
		return &ast.Array{Elements: elems}, nil

	case *ottoast.SequenceExpression:
		body, err := convertList(text, e.Sequence)
		if err != nil {
			return nil, err
		}
		return &ast.Compound{Body: body}, nil

	case *ottoast.EmptyExpression:
		// Elided array element, as in [1,,2].
		return &ast.Literal{Value: nil, Raw: "undefined"}, nil

	case *ottoast.AssignExpression:
		return nil, unsupported("assignment")
	case *ottoast.FunctionLiteral:
		return nil, unsupported("function literal")
	case *ottoast.ObjectLiteral:
		return nil, unsupported("object literal")
	case *ottoast.NewExpression:
		return nil, unsupported("new")
	case *ottoast.RegExpLiteral:
		return nil, unsupported("regular expression")
	default:
		name := strings.TrimPrefix(fmt.Sprintf("%T", expr), "*ast.")
		return nil, unsupported(name)
	}
}

func convertList(text string, exprs []ottoast.Expression) ([]ast.Node, error) {
	out := make([]ast.Node, 0, len(exprs))
	for _, e := range exprs {
		n, err := convert(text, e)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
