package expr

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// IsTruthy reports whether v counts as true in a condition.
// nil, false, 0, NaN and "" are falsy; everything else, including empty
// arrays and objects, is truthy.
func IsTruthy(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != ""
	}
	if f, ok := numeric(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// numeric returns v as a float64 when v holds a Go number.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// isComposite reports whether v is an array- or object-like value.
func isComposite(v any) bool {
	switch v.(type) {
	case []any, map[string]any:
		return true
	case nil:
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct:
		return true
	}
	return false
}

// ToNumber converts v to a float64 following JavaScript's Number() rules.
// Values that have no numeric reading convert to NaN.
func ToNumber(v any) float64 {
	if f, ok := numeric(v); ok {
		return f
	}
	switch val := v.(type) {
	case nil:
		return math.NaN()
	case bool:
		if val {
			return 1
		}
		return 0
	case string:
		return stringToNumber(val)
	case []any:
		switch len(val) {
		case 0:
			return 0
		case 1:
			return stringToNumber(ToString(val[0]))
		}
	}
	return math.NaN()
}

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		if i, err := strconv.ParseUint(s[2:], 16, 64); err == nil {
			return float64(i)
		}
		return math.NaN()
	}
	// strconv accepts spellings such as "inf", "nan" and "1_0" that are not
	// numbers here.
	lower := strings.ToLower(s)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.Contains(s, "_") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToString converts v to its JavaScript string form.
func ToString(v any) string {
	if f, ok := numeric(v); ok {
		return FormatNumber(f)
	}
	switch val := v.(type) {
	case nil:
		return "undefined"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			if item != nil {
				parts[i] = ToString(item)
			}
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprint(v)
}

// FormatNumber renders f the way JavaScript prints numbers: integers have no
// decimal point, very large and very small magnitudes use exponent form.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToInt32 applies JavaScript's ToInt32 conversion used by bitwise operators.
func ToInt32(v any) int32 {
	return int32(ToUint32(v))
}

// ToUint32 applies JavaScript's ToUint32 conversion.
func ToUint32(v any) uint32 {
	f := ToNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return uint32(int64(math.Mod(math.Trunc(f), 4294967296)))
}

// StrictEqual implements `===`. Numbers compare by value regardless of their
// Go type, NaN is never equal to itself, and arrays, objects and functions
// compare by identity.
func StrictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	fa, aok := numeric(a)
	fb, bok := numeric(b)
	if aok || bok {
		return aok && bok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return sameReference(a, b)
}

func sameReference(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Slice:
		return ra.Len() == rb.Len() && ra.Pointer() == rb.Pointer()
	case reflect.Map, reflect.Func, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	}
	if ra.Type().Comparable() {
		return a == b
	}
	return false
}

// LooseEqual implements `==` for the value kinds flowstate handles.
func LooseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ab, ok := a.(bool); ok {
		return LooseEqual(boolNumber(ab), b)
	}
	if bb, ok := b.(bool); ok {
		return LooseEqual(a, boolNumber(bb))
	}

	fa, aNum := numeric(a)
	fb, bNum := numeric(b)
	as, aStr := a.(string)
	bs, bStr := b.(string)

	switch {
	case aNum && bNum:
		return fa == fb
	case aStr && bStr:
		return as == bs
	case aNum && bStr:
		return fa == stringToNumber(bs)
	case aStr && bNum:
		return stringToNumber(as) == fb
	case isComposite(a) && (bNum || bStr):
		return LooseEqual(ToString(a), b)
	case isComposite(b) && (aNum || aStr):
		return LooseEqual(a, ToString(b))
	}
	return StrictEqual(a, b)
}

func boolNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// compare orders a and b for the relational operators. ok is false when the
// comparison is undefined (a NaN operand), which makes every relation false.
func compare(a, b any) (cmp int, ok bool) {
	if isComposite(a) {
		a = ToString(a)
	}
	if isComposite(b) {
		b = ToString(b)
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return strings.Compare(as, bs), true
	}
	fa, fb := ToNumber(a), ToNumber(b)
	switch {
	case math.IsNaN(fa) || math.IsNaN(fb):
		return 0, false
	case fa < fb:
		return -1, true
	case fa > fb:
		return 1, true
	default:
		return 0, true
	}
}
