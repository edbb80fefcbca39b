package expr

import (
	"github.com/randalmurphal/flowstate/pkg/flowstate/ast"
	"github.com/randalmurphal/flowstate/pkg/flowstate/parser"
)

// FreeVariables returns the context keys an expression reads, in first-seen
// order without duplicates.
//
// Member chains contribute only their root: `a.b.c` reports "a" and
// `this.a.b` reports "a". Non-computed property names are never reported.
// Computed properties are read from the context, so `a[i]` reports both
// "a" and "i". Callee names are functions, not state, and are skipped;
// call arguments are walked. The globals undefined, NaN and Infinity are
// not reported.
func FreeVariables(node ast.Node) []string {
	w := &varWalker{seen: make(map[string]bool)}
	w.walk(node)
	return w.names
}

// VariablesFromExpression parses expression and returns its free variables.
func VariablesFromExpression(expression string) ([]string, error) {
	node, err := parser.Parse(expression)
	if err != nil {
		return nil, err
	}
	return FreeVariables(node), nil
}

type varWalker struct {
	seen  map[string]bool
	names []string
}

func (w *varWalker) add(name string) {
	switch name {
	case "undefined", "NaN", "Infinity":
		return
	}
	if w.seen[name] {
		return
	}
	w.seen[name] = true
	w.names = append(w.names, name)
}

func (w *varWalker) walk(node ast.Node) {
	switch n := node.(type) {
	case *ast.Identifier:
		w.add(n.Name)
	case *ast.Member:
		w.walkMember(n)
	case *ast.Unary:
		w.walk(n.Argument)
	case *ast.Binary:
		w.walkOperands(n.Left, n.Right)
	case *ast.Logical:
		w.walkOperands(n.Left, n.Right)
	case *ast.Conditional:
		w.walk(n.Test)
		w.walk(n.Consequent)
		w.walk(n.Alternate)
	case *ast.Call:
		if m, ok := n.Callee.(*ast.Member); ok {
			w.walkComputed(m)
		}
		for _, arg := range n.Arguments {
			w.walk(arg)
		}
	case *ast.Array:
		for _, el := range n.Elements {
			w.walk(el)
		}
	case *ast.Compound:
		for _, stmt := range n.Body {
			w.walk(stmt)
		}
	}
}

func (w *varWalker) walkOperands(left, right ast.Node) {
	if left.Kind() != ast.KindLiteral {
		w.walk(left)
	}
	if right.Kind() != ast.KindLiteral {
		w.walk(right)
	}
}

// walkMember reports the root of a member chain, then any computed keys.
func (w *varWalker) walkMember(m *ast.Member) {
	root := ast.Node(m)
	for {
		inner, ok := root.(*ast.Member)
		if !ok {
			break
		}
		root = inner.Object
	}

	switch r := root.(type) {
	case *ast.Identifier:
		w.add(r.Name)
	case *ast.This:
		// this.a.b reads context key "a": the first property below this.
		if first := firstBelowThis(m); first != nil {
			switch prop := first.Property.(type) {
			case *ast.Identifier:
				if !first.Computed {
					w.add(prop.Name)
				}
			case *ast.Literal:
				if key, ok := prop.Value.(string); ok {
					w.add(key)
				}
			}
		}
	default:
		w.walk(root)
	}
	w.walkComputed(m)
}

// walkComputed walks the computed property expressions of a member chain.
func (w *varWalker) walkComputed(m *ast.Member) {
	var keys []ast.Node
	for cur := m; cur != nil; {
		if cur.Computed {
			keys = append(keys, cur.Property)
		}
		next, ok := cur.Object.(*ast.Member)
		if !ok {
			break
		}
		cur = next
	}
	// Collected outermost first; report in source order.
	for i := len(keys) - 1; i >= 0; i-- {
		w.walk(keys[i])
	}
}

func firstBelowThis(m *ast.Member) *ast.Member {
	cur := m
	for {
		next, ok := cur.Object.(*ast.Member)
		if !ok {
			if _, isThis := cur.Object.(*ast.This); isThis {
				return cur
			}
			return nil
		}
		cur = next
	}
}
