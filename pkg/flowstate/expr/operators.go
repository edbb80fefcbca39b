package expr

import (
	"fmt"
	"math"
)

// BinaryOp combines two evaluated operands.
type BinaryOp func(left, right any) any

// UnaryOp transforms one evaluated operand.
type UnaryOp func(arg any) any

// binaryOps is the built-in binary and logical operator table.
// The logical entries receive both operands already evaluated.
var binaryOps = map[string]BinaryOp{
	"===": func(a, b any) any { return StrictEqual(a, b) },
	"!==": func(a, b any) any { return !StrictEqual(a, b) },
	"==":  func(a, b any) any { return LooseEqual(a, b) },
	"!=":  func(a, b any) any { return !LooseEqual(a, b) },
	">":   func(a, b any) any { c, ok := compare(a, b); return ok && c > 0 },
	"<":   func(a, b any) any { c, ok := compare(a, b); return ok && c < 0 },
	">=":  func(a, b any) any { c, ok := compare(a, b); return ok && c >= 0 },
	"<=":  func(a, b any) any { c, ok := compare(a, b); return ok && c <= 0 },
	"+":   add,
	"-":   func(a, b any) any { return ToNumber(a) - ToNumber(b) },
	"*":   func(a, b any) any { return ToNumber(a) * ToNumber(b) },
	"/":   func(a, b any) any { return ToNumber(a) / ToNumber(b) },
	"%":   func(a, b any) any { return math.Mod(ToNumber(a), ToNumber(b)) },
	"**":  pow,
	"&":   func(a, b any) any { return float64(ToInt32(a) & ToInt32(b)) },
	"|":   func(a, b any) any { return float64(ToInt32(a) | ToInt32(b)) },
	"^":   func(a, b any) any { return float64(ToInt32(a) ^ ToInt32(b)) },
	"<<":  func(a, b any) any { return float64(ToInt32(a) << (ToUint32(b) & 31)) },
	">>":  func(a, b any) any { return float64(ToInt32(a) >> (ToUint32(b) & 31)) },
	">>>": func(a, b any) any { return float64(ToUint32(a) >> (ToUint32(b) & 31)) },
	"||": func(a, b any) any {
		if IsTruthy(a) {
			return a
		}
		return b
	},
	"&&": func(a, b any) any {
		if !IsTruthy(a) {
			return a
		}
		return b
	},
}

// unaryOps is the built-in unary operator table. ++ and -- only compute the
// incremented value; nothing is written back to the context.
var unaryOps = map[string]UnaryOp{
	"!":  func(a any) any { return !IsTruthy(a) },
	"~":  func(a any) any { return float64(^ToInt32(a)) },
	"+":  func(a any) any { return ToNumber(a) },
	"-":  func(a any) any { return -ToNumber(a) },
	"++": func(a any) any { return ToNumber(a) + 1 },
	"--": func(a any) any { return ToNumber(a) - 1 },
}

// add is `+`: string concatenation when either side is a string, array or
// object, numeric addition otherwise.
func add(a, b any) any {
	_, aStr := a.(string)
	_, bStr := b.(string)
	if aStr || bStr || isComposite(a) || isComposite(b) {
		return ToString(a) + ToString(b)
	}
	return ToNumber(a) + ToNumber(b)
}

func pow(a, b any) any {
	x, y := ToNumber(a), ToNumber(b)
	// math.Pow(1, NaN) is 1; the exponent operator yields NaN.
	if math.IsNaN(y) {
		return math.NaN()
	}
	return math.Pow(x, y)
}

// Apply applies a built-in binary operator to already evaluated operands.
// Returns an error for unknown operators.
func Apply(op string, left, right any) (any, error) {
	fn, ok := binaryOps[op]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperator, op)
	}
	return fn(left, right), nil
}
