package expr

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/randalmurphal/flowstate/pkg/flowstate/ast"
	"github.com/randalmurphal/flowstate/pkg/flowstate/parser"
)

// Sentinel errors for structurally invalid trees. They are fatal to the
// evaluation that hits them and are never swallowed.
var (
	// ErrInvalidNode indicates a missing node or a node kind that is not
	// allowed in its position.
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidOperator indicates an operator missing from the operator tables.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrInvalidCallee indicates a call whose callee is not an identifier,
	// member expression or this.
	ErrInvalidCallee = errors.New("invalid callee type")

	// ErrNotCallable indicates a callee that resolved to a non-function value.
	ErrNotCallable = errors.New("value is not callable")

	// ErrFunctionPanic indicates a context function panicked.
	ErrFunctionPanic = errors.New("function panicked")
)

// EvalError wraps an evaluation failure with the node that caused it.
type EvalError struct {
	// Node is the rendered node, for diagnostics.
	Node string
	// Kind is the kind of the failing node.
	Kind ast.Kind
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("evaluate %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("evaluate %s %s: %v", e.Kind, e.Node, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *EvalError) Unwrap() error {
	return e.Err
}

func evalErr(n ast.Node, err error) error {
	if n == nil {
		return &EvalError{Kind: ast.KindInvalid, Err: err}
	}
	return &EvalError{Node: n.String(), Kind: n.Kind(), Err: err}
}

// Func is the preferred signature for context functions.
type Func func(args ...any) (any, error)

// Evaluator walks expression trees against a context map.
//
// By default both operands of && and || and both branches of ?: are
// evaluated before the result is chosen. Context functions in either
// branch therefore always run. WithShortCircuit switches to lazy evaluation.
type Evaluator struct {
	binary       map[string]BinaryOp
	unary        map[string]UnaryOp
	shortCircuit bool
	cache        *parser.Cache
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCustomOperator registers or overrides a binary operator. The parser
// only produces ECMAScript operators, so this is mostly useful for
// changing the semantics of an existing one.
func WithCustomOperator(name string, fn BinaryOp) Option {
	return func(e *Evaluator) {
		e.binary[name] = fn
	}
}

// WithUnaryOperator registers or overrides a unary operator.
func WithUnaryOperator(name string, fn UnaryOp) Option {
	return func(e *Evaluator) {
		e.unary[name] = fn
	}
}

// WithShortCircuit makes && and || skip their right operand, and ?: skip
// the untaken branch.
func WithShortCircuit() Option {
	return func(e *Evaluator) {
		e.shortCircuit = true
	}
}

// WithCache makes EvaluateString reuse parsed trees from c.
func WithCache(c *parser.Cache) Option {
	return func(e *Evaluator) {
		e.cache = c
	}
}

// New creates a new Evaluator with the given options.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		binary: make(map[string]BinaryOp, len(binaryOps)),
		unary:  make(map[string]UnaryOp, len(unaryOps)),
	}
	for name, fn := range binaryOps {
		e.binary[name] = fn
	}
	for name, fn := range unaryOps {
		e.unary[name] = fn
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEvaluator = New(WithCache(parser.NewCache(1024)))

// Evaluate evaluates node against ctx with the default evaluator.
func Evaluate(node ast.Node, ctx map[string]any) (any, error) {
	return defaultEvaluator.Evaluate(node, ctx)
}

// Eval parses and evaluates an expression with the default evaluator.
func Eval(expression string, ctx map[string]any) (any, error) {
	return defaultEvaluator.EvaluateString(expression, ctx)
}

// EvaluateString parses expression and evaluates it against ctx.
func (e *Evaluator) EvaluateString(expression string, ctx map[string]any) (any, error) {
	var (
		node ast.Node
		err  error
	)
	if e.cache != nil {
		node, err = e.cache.Parse(expression)
	} else {
		node, err = parser.Parse(expression)
	}
	if err != nil {
		return nil, err
	}
	return e.Evaluate(node, ctx)
}

// Evaluate evaluates node against ctx. ctx is only read.
func (e *Evaluator) Evaluate(node ast.Node, ctx map[string]any) (any, error) {
	if ctx == nil {
		ctx = map[string]any{}
	}
	return e.eval(node, ctx)
}

func (e *Evaluator) eval(node ast.Node, ctx map[string]any) (any, error) {
	switch n := node.(type) {
	case *ast.Literal:
		return n.Value, nil

	case *ast.This:
		return ctx, nil

	case *ast.Compound:
		var last any
		for _, stmt := range n.Body {
			v, err := e.eval(stmt, ctx)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil

	case *ast.Array:
		out := make([]any, len(n.Elements))
		for i, el := range n.Elements {
			v, err := e.eval(el, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case *ast.Unary:
		op, ok := e.unary[n.Operator]
		if !ok {
			return nil, evalErr(n, fmt.Errorf("%w: %q", ErrInvalidOperator, n.Operator))
		}
		arg, err := e.eval(n.Argument, ctx)
		if err != nil {
			return nil, err
		}
		// Postfix a++ yields the value before the increment.
		if !n.Prefix && (n.Operator == "++" || n.Operator == "--") {
			return ToNumber(arg), nil
		}
		return op(arg), nil

	case *ast.Binary:
		return e.binaryOp(n, n.Operator, n.Left, n.Right, ctx)

	case *ast.Logical:
		if e.shortCircuit {
			return e.logicalLazy(n, ctx)
		}
		return e.binaryOp(n, n.Operator, n.Left, n.Right, ctx)

	case *ast.Conditional:
		return e.conditional(n, ctx)

	case *ast.Call:
		return e.call(n, ctx)

	case *ast.Identifier:
		if v, ok := ctx[n.Name]; ok {
			return v, nil
		}
		return global(n.Name), nil

	case *ast.Member:
		path, err := e.resolvePath(n, ctx)
		if err != nil {
			return nil, err
		}
		return path.Lookup(ctx), nil

	case nil:
		return nil, evalErr(nil, fmt.Errorf("%w: node missing", ErrInvalidNode))

	default:
		return nil, evalErr(nil, fmt.Errorf("%w: unknown node %T", ErrInvalidNode, node))
	}
}

func (e *Evaluator) binaryOp(n ast.Node, operator string, l, r ast.Node, ctx map[string]any) (any, error) {
	op, ok := e.binary[operator]
	if !ok {
		return nil, evalErr(n, fmt.Errorf("%w: %q", ErrInvalidOperator, operator))
	}
	left, err := e.eval(l, ctx)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(r, ctx)
	if err != nil {
		return nil, err
	}
	return op(left, right), nil
}

func (e *Evaluator) logicalLazy(n *ast.Logical, ctx map[string]any) (any, error) {
	if _, ok := e.binary[n.Operator]; !ok {
		return nil, evalErr(n, fmt.Errorf("%w: %q", ErrInvalidOperator, n.Operator))
	}
	left, err := e.eval(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case "&&":
		if !IsTruthy(left) {
			return left, nil
		}
	case "||":
		if IsTruthy(left) {
			return left, nil
		}
	default:
		right, err := e.eval(n.Right, ctx)
		if err != nil {
			return nil, err
		}
		return e.binary[n.Operator](left, right), nil
	}
	return e.eval(n.Right, ctx)
}

func (e *Evaluator) conditional(n *ast.Conditional, ctx map[string]any) (any, error) {
	test, err := e.eval(n.Test, ctx)
	if err != nil {
		return nil, err
	}
	if e.shortCircuit {
		if IsTruthy(test) {
			return e.eval(n.Consequent, ctx)
		}
		return e.eval(n.Alternate, ctx)
	}
	cons, err := e.eval(n.Consequent, ctx)
	if err != nil {
		return nil, err
	}
	alt, err := e.eval(n.Alternate, ctx)
	if err != nil {
		return nil, err
	}
	if IsTruthy(test) {
		return cons, nil
	}
	return alt, nil
}

func (e *Evaluator) call(n *ast.Call, ctx map[string]any) (any, error) {
	switch n.Callee.(type) {
	case *ast.Identifier, *ast.Member, *ast.This:
	default:
		return nil, evalErr(n, fmt.Errorf("%w: %v", ErrInvalidCallee, kindOf(n.Callee)))
	}
	fn, err := e.eval(n.Callee, ctx)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(n.Arguments))
	for i, arg := range n.Arguments {
		v, err := e.eval(arg, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	v, err := invoke(fn, args)
	if err != nil {
		return nil, evalErr(n, err)
	}
	return v, nil
}

func kindOf(n ast.Node) ast.Kind {
	if n == nil {
		return ast.KindInvalid
	}
	return n.Kind()
}

// resolvePath turns an identifier or member chain into a Path. Computed
// properties are evaluated against ctx to produce their key.
func (e *Evaluator) resolvePath(node ast.Node, ctx map[string]any) (Path, error) {
	switch n := node.(type) {
	case *ast.Identifier:
		return Path{n.Name}, nil

	case *ast.Member:
		var base Path
		switch n.Object.(type) {
		case *ast.This:
		case *ast.Identifier, *ast.Member:
			p, err := e.resolvePath(n.Object, ctx)
			if err != nil {
				return nil, err
			}
			base = p
		default:
			return nil, evalErr(n, fmt.Errorf("%w: member object %v", ErrInvalidNode, kindOf(n.Object)))
		}

		path := make(Path, len(base), len(base)+1)
		copy(path, base)
		if n.Computed {
			key, err := e.eval(n.Property, ctx)
			if err != nil {
				return nil, err
			}
			return append(path, segment(key)), nil
		}
		prop, ok := n.Property.(*ast.Identifier)
		if !ok {
			return nil, evalErr(n, fmt.Errorf("%w: member property %v", ErrInvalidNode, kindOf(n.Property)))
		}
		return append(path, prop.Name), nil

	default:
		return nil, evalErr(node, fmt.Errorf("%w: parameter path %v", ErrInvalidNode, kindOf(node)))
	}
}

// global supplies the handful of ECMAScript globals that are identifiers
// rather than literals, when the context does not define them.
func global(name string) any {
	switch name {
	case "NaN":
		return math.NaN()
	case "Infinity":
		return math.Inf(1)
	}
	return nil
}

// invoke calls fn with args. Func and the two common variadic shapes are
// called directly; other function values go through reflection with
// numeric arguments converted to the parameter types.
func invoke(fn any, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("%w: %v", ErrFunctionPanic, r)
		}
	}()

	switch f := fn.(type) {
	case nil:
		return nil, fmt.Errorf("%w: undefined", ErrNotCallable)
	case Func:
		return f(args...)
	case func(...any) (any, error):
		return f(args...)
	case func(...any) any:
		return f(args...), nil
	}

	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %s", ErrNotCallable, ToString(fn))
	}
	return invokeReflect(rv, args)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func invokeReflect(rv reflect.Value, args []any) (any, error) {
	t := rv.Type()
	fixed := t.NumIn()
	if t.IsVariadic() {
		fixed--
	}

	in := make([]reflect.Value, 0, max(fixed, len(args)))
	for i := 0; i < fixed; i++ {
		var arg any
		if i < len(args) {
			arg = args[i]
		}
		v, err := convertArg(arg, t.In(i))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in = append(in, v)
	}
	if t.IsVariadic() {
		elem := t.In(fixed).Elem()
		for i := fixed; i < len(args); i++ {
			v, err := convertArg(args[i], elem)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			in = append(in, v)
		}
	}

	out := rv.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if t.Out(0) == errorType {
			err, _ := out[0].Interface().(error)
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		if t.Out(len(out)-1) == errorType {
			if err, _ := out[len(out)-1].Interface().(error); err != nil {
				return nil, err
			}
		}
		return out[0].Interface(), nil
	}
}

func convertArg(arg any, want reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(want), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if _, isNum := numeric(arg); isNum && isNumericKind(want.Kind()) {
		return v.Convert(want), nil
	}
	switch want.Kind() {
	case reflect.String:
		return reflect.ValueOf(ToString(arg)).Convert(want), nil
	case reflect.Bool:
		return reflect.ValueOf(IsTruthy(arg)).Convert(want), nil
	}
	if isNumericKind(want.Kind()) {
		return reflect.ValueOf(ToNumber(arg)).Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, want)
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
