// Package ast defines the expression tree evaluated by flowstate.
//
// Nodes form a closed sum type: every variant implements Node and reports a
// Kind, and consumers switch exhaustively on the concrete type. Trees are
// produced by package parser and are never mutated after construction, so a
// parsed tree may be cached and shared freely.
package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the node variants.
type Kind int

// Node kinds.
const (
	KindInvalid Kind = iota
	KindLiteral
	KindIdentifier
	KindThis
	KindMember
	KindUnary
	KindBinary
	KindLogical
	KindConditional
	KindCall
	KindArray
	KindCompound
)

var kindNames = [...]string{
	KindInvalid:     "Invalid",
	KindLiteral:     "Literal",
	KindIdentifier:  "Identifier",
	KindThis:        "ThisExpression",
	KindMember:      "MemberExpression",
	KindUnary:       "UnaryExpression",
	KindBinary:      "BinaryExpression",
	KindLogical:     "LogicalExpression",
	KindConditional: "ConditionalExpression",
	KindCall:        "CallExpression",
	KindArray:       "ArrayExpression",
	KindCompound:    "Compound",
}

// String returns the conventional ESTree name of the kind.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Node is implemented by every expression tree variant.
type Node interface {
	Kind() Kind
	String() string

	node()
}

// Literal is a constant: float64, string, bool or nil.
type Literal struct {
	Value any
	// Raw is the source spelling, kept for diagnostics.
	Raw string
}

// Identifier is a bare name looked up in the evaluation context.
type Identifier struct {
	Name string
}

// This refers to the evaluation context itself.
type This struct{}

// Member is `object.property` or, when Computed, `object[property]`.
type Member struct {
	Object   Node
	Property Node
	Computed bool
}

// Unary is a prefix (or, for ++/--, postfix) operator application.
type Unary struct {
	Operator string
	Argument Node
	Prefix   bool
}

// Binary is an arithmetic, bitwise, relational or equality operation.
type Binary struct {
	Operator string
	Left     Node
	Right    Node
}

// Logical is `&&` or `||`.
type Logical struct {
	Operator string
	Left     Node
	Right    Node
}

// Conditional is `test ? consequent : alternate`.
type Conditional struct {
	Test       Node
	Consequent Node
	Alternate  Node
}

// Call invokes a context function.
type Call struct {
	Callee    Node
	Arguments []Node
}

// Array is an array literal.
type Array struct {
	Elements []Node
}

// Compound is a sequence of expressions whose value is the last one.
type Compound struct {
	Body []Node
}

func (*Literal) Kind() Kind     { return KindLiteral }
func (*Identifier) Kind() Kind  { return KindIdentifier }
func (*This) Kind() Kind        { return KindThis }
func (*Member) Kind() Kind      { return KindMember }
func (*Unary) Kind() Kind       { return KindUnary }
func (*Binary) Kind() Kind      { return KindBinary }
func (*Logical) Kind() Kind     { return KindLogical }
func (*Conditional) Kind() Kind { return KindConditional }
func (*Call) Kind() Kind        { return KindCall }
func (*Array) Kind() Kind       { return KindArray }
func (*Compound) Kind() Kind    { return KindCompound }

func (*Literal) node()     {}
func (*Identifier) node()  {}
func (*This) node()        {}
func (*Member) node()      {}
func (*Unary) node()       {}
func (*Binary) node()      {}
func (*Logical) node()     {}
func (*Conditional) node() {}
func (*Call) node()        {}
func (*Array) node()       {}
func (*Compound) node()    {}

func (n *Literal) String() string {
	if n.Raw != "" {
		return n.Raw
	}
	switch v := n.Value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (n *Identifier) String() string { return n.Name }

func (*This) String() string { return "this" }

func (n *Member) String() string {
	if n.Computed {
		return n.Object.String() + "[" + n.Property.String() + "]"
	}
	return n.Object.String() + "." + n.Property.String()
}

func (n *Unary) String() string {
	if !n.Prefix {
		return "(" + n.Argument.String() + n.Operator + ")"
	}
	return "(" + n.Operator + n.Argument.String() + ")"
}

func (n *Binary) String() string {
	return "(" + n.Left.String() + " " + n.Operator + " " + n.Right.String() + ")"
}

func (n *Logical) String() string {
	return "(" + n.Left.String() + " " + n.Operator + " " + n.Right.String() + ")"
}

func (n *Conditional) String() string {
	return "(" + n.Test.String() + " ? " + n.Consequent.String() + " : " + n.Alternate.String() + ")"
}

func (n *Call) String() string {
	return n.Callee.String() + "(" + join(n.Arguments, ", ") + ")"
}

func (n *Array) String() string {
	return "[" + join(n.Elements, ", ") + "]"
}

func (n *Compound) String() string {
	return join(n.Body, "; ")
}

func join(nodes []Node, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}
