package flowstate

import (
	"errors"
	"fmt"
)

// Sentinel errors for registration.
var (
	// ErrEmptyID indicates a control spec without an ID.
	ErrEmptyID = errors.New("control id is empty")

	// ErrEmptyStorage indicates an assignment without a storage key.
	ErrEmptyStorage = errors.New("assignment storage is empty")

	// ErrEmptyExpression indicates an assignment without an expression.
	ErrEmptyExpression = errors.New("assignment expression is empty")

	// ErrNoScheduler indicates a delayed assignment on a manager created
	// without WithScheduler.
	ErrNoScheduler = errors.New("delayed assignment requires a scheduler")

	// ErrInvalidDefinition indicates a malformed definition document.
	ErrInvalidDefinition = errors.New("invalid definition")
)

// Sentinel errors for controls and transactions.
var (
	// ErrDisposed indicates a call on a disposed manager.
	ErrDisposed = errors.New("manager disposed")

	// ErrNoStorage indicates SetValue on a control without a storage slot.
	ErrNoStorage = errors.New("control has no storage slot")

	// ErrUnknownSlot indicates Evaluate with a slot the control does not define.
	ErrUnknownSlot = errors.New("unknown runtime slot")

	// ErrCascadeDepth indicates assignments kept triggering each other past
	// the configured depth, usually because they form a cycle.
	ErrCascadeDepth = errors.New("assignment cascade too deep")
)

// ExpressionError wraps a parse or evaluation failure with the expression
// text and what it was being used for.
type ExpressionError struct {
	// Expression is the source text.
	Expression string
	// Op is what failed: "parse", "evaluate", "condition" or "assign".
	Op string
	// Target is the control ID or storage key the expression belongs to,
	// if any.
	Target string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ExpressionError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %q for %s: %v", e.Op, e.Expression, e.Target, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Expression, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ExpressionError) Unwrap() error {
	return e.Err
}

// CascadeDepthError reports where a cascade was cut off.
type CascadeDepthError struct {
	// Max is the configured depth limit.
	Max int
	// Key is the state key whose change exceeded the limit.
	Key string
}

// Error implements the error interface.
func (e *CascadeDepthError) Error() string {
	return fmt.Sprintf("assignment cascade exceeded depth %d at %q", e.Max, e.Key)
}

// Unwrap returns ErrCascadeDepth for errors.Is support.
func (e *CascadeDepthError) Unwrap() error {
	return ErrCascadeDepth
}
