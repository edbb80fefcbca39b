/*
Package expr evaluates parsed expressions against a context map.

# Overview

expr walks the tree produced by package parser. Identifiers and member
chains resolve to a Path which is then dereferenced against the context.
Operators follow ECMAScript value semantics closely enough for UI bindings:
truthiness, string concatenation with +, loose and strict equality, numeric
coercion for arithmetic and bitwise operators.

# Evaluation

	vars := map[string]any{"a": map[string]any{"b": 5}, "list": []any{10, 20}, "i": 1}
	v, _ := expr.Eval("a.b", vars)      // 5
	v, _ = expr.Eval("list[i]", vars)   // 20
	v, _ = expr.Eval("1 + 2 * 3", nil)  // 7.0

Numbers produced by the evaluator are float64. Host values of any Go
numeric type are accepted and compared by value.

Missing keys are not errors: `a.x.y` yields nil when any segment is absent.
Structural problems (unknown node, unknown operator, callee that is not a
name) return an *EvalError wrapping ErrInvalidNode, ErrInvalidOperator or
ErrInvalidCallee.

# Operand evaluation

Both operands of && and || and both branches of ?: are evaluated before a
result is chosen:

	f() || g()   // calls f and g
	a ? f() : g() // calls f and g

The result values still follow the usual rules (`0 || 2` is 2). Use
WithShortCircuit for lazy evaluation.

# Functions

Context values of type Func, func(...any) any, func(...any) (any, error) or
any other Go func can be called. Other func signatures are called through
reflection, converting numeric arguments to the parameter types. Builtins
returns now, getRandomInt, min, max, abs, floor, ceil and round.

# Dependencies

FreeVariables reports the context keys an expression reads. It is used to
decide which state changes affect which expressions:

	vars, _ := expr.VariablesFromExpression("a && b.c") // ["a", "b"]
*/
package expr
