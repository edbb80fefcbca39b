package expr

import (
	"math"
	"math/rand/v2"
	"time"
)

// BuiltinOption configures Builtins.
type BuiltinOption func(*builtinConfig)

type builtinConfig struct {
	now  func() time.Time
	rand *rand.Rand
}

// WithClock sets the time source for now().
func WithClock(now func() time.Time) BuiltinOption {
	return func(c *builtinConfig) {
		c.now = now
	}
}

// maxSafeInteger is 2^53, past which float64 no longer holds every integer.
const maxSafeInteger = 1 << 53

// WithRand sets the random source for getRandomInt(). Pass a seeded
// generator to make expressions that use it reproducible.
func WithRand(r *rand.Rand) BuiltinOption {
	return func(c *builtinConfig) {
		c.rand = r
	}
}

// Builtins returns the standard context functions:
//
//	now()                 milliseconds since the Unix epoch
//	getRandomInt(min,max) random integer in [min, max]; NaN if the range is empty or not finite
//	min(a, b, ...)        smallest numeric argument
//	max(a, b, ...)        largest numeric argument
//	abs(x), floor(x), ceil(x), round(x)
//
// Host context entries with the same names take precedence.
func Builtins(opts ...BuiltinOption) map[string]any {
	cfg := builtinConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	intn := rand.IntN
	if cfg.rand != nil {
		intn = cfg.rand.IntN
	}

	return map[string]any{
		"now": Func(func(...any) (any, error) {
			return float64(cfg.now().UnixMilli()), nil
		}),
		"getRandomInt": Func(func(args ...any) (any, error) {
			lo := math.Ceil(ToNumber(arg(args, 0)))
			hi := math.Floor(ToNumber(arg(args, 1)))
			if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) ||
				hi < lo || hi-lo >= maxSafeInteger {
				return math.NaN(), nil
			}
			return lo + float64(intn(int(hi-lo)+1)), nil
		}),
		"min": Func(func(args ...any) (any, error) {
			return fold(args, math.Inf(1), math.Min), nil
		}),
		"max": Func(func(args ...any) (any, error) {
			return fold(args, math.Inf(-1), math.Max), nil
		}),
		"abs":   unaryMath(math.Abs),
		"floor": unaryMath(math.Floor),
		"ceil":  unaryMath(math.Ceil),
		"round": unaryMath(func(x float64) float64 { return math.Floor(x + 0.5) }),
	}
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func fold(args []any, start float64, fn func(a, b float64) float64) float64 {
	acc := start
	for _, a := range args {
		acc = fn(acc, ToNumber(a))
	}
	return acc
}

func unaryMath(fn func(float64) float64) Func {
	return func(args ...any) (any, error) {
		return fn(ToNumber(arg(args, 0))), nil
	}
}
