package flowstate

import (
	"log/slog"
	"maps"

	"github.com/randalmurphal/flowstate/pkg/flowstate/expr"
	"github.com/randalmurphal/flowstate/pkg/flowstate/observability"
	"github.com/randalmurphal/flowstate/pkg/flowstate/scheduler"
)

// DefaultMaxCascadeDepth bounds how deeply assignment changes may trigger
// further assignments within one transaction.
const DefaultMaxCascadeDepth = 1000

// managerConfig holds construction options for a Manager.
type managerConfig struct {
	initialAssignments map[string]string
	builtins           map[string]any
	context            map[string]any
	functions          map[string]any
	scheduler          scheduler.Scheduler
	logger             *slog.Logger
	metrics            observability.MetricsRecorder
	spans              observability.SpanManager
	maxCascadeDepth    int
	shortCircuit       bool
	onError            func(error)
}

func defaultManagerConfig() managerConfig {
	return managerConfig{
		context:         make(map[string]any),
		functions:       make(map[string]any),
		metrics:         observability.NoopMetrics{},
		spans:           observability.NoopSpanManager{},
		maxCascadeDepth: DefaultMaxCascadeDepth,
	}
}

// Option configures a Manager.
type Option func(*managerConfig)

// WithInitialAssignments sets keys computed once at construction. Each
// expression is evaluated against the default context and the initial
// state, and the results are merged over the initial state.
func WithInitialAssignments(assignments map[string]string) Option {
	return func(c *managerConfig) {
		c.initialAssignments = maps.Clone(assignments)
	}
}

// WithContext adds constants and functions visible to every expression.
// State keys with the same names shadow them. May be given more than once.
func WithContext(ctx map[string]any) Option {
	return func(c *managerConfig) {
		maps.Copy(c.context, ctx)
	}
}

// WithFunction adds one function to the default context. fn may be an
// expr.Func or any Go func value.
func WithFunction(name string, fn any) Option {
	return func(c *managerConfig) {
		c.functions[name] = fn
	}
}

// WithBuiltins adds the standard functions (now, getRandomInt, min, max,
// abs, floor, ceil, round). Names set through WithContext or WithFunction
// take precedence.
func WithBuiltins(opts ...expr.BuiltinOption) Option {
	return func(c *managerConfig) {
		c.builtins = expr.Builtins(opts...)
	}
}

// WithScheduler sets the scheduler for delayed assignments. Without one,
// registering an assignment with a timeout fails with ErrNoScheduler.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(c *managerConfig) {
		c.scheduler = s
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *managerConfig) {
		c.logger = logger
	}
}

// WithMetrics enables transaction metrics.
//
//	m, _ := flowstate.New(nil, flowstate.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(recorder observability.MetricsRecorder) Option {
	return func(c *managerConfig) {
		if recorder != nil {
			c.metrics = recorder
		}
	}
}

// WithSpanManager enables transaction tracing.
func WithSpanManager(spans observability.SpanManager) Option {
	return func(c *managerConfig) {
		if spans != nil {
			c.spans = spans
		}
	}
}

// WithMaxCascadeDepth sets the cascade depth limit.
// Default: 1000
//
// A transaction whose assignments keep changing each other beyond this
// depth is aborted with a *CascadeDepthError.
func WithMaxCascadeDepth(n int) Option {
	return func(c *managerConfig) {
		if n > 0 {
			c.maxCascadeDepth = n
		}
	}
}

// WithShortCircuit makes &&, || and ?: evaluate lazily. By default both
// sides are evaluated, so functions on either side always run.
func WithShortCircuit() Option {
	return func(c *managerConfig) {
		c.shortCircuit = true
	}
}

// WithErrorHandler receives errors from delayed assignments, which have
// no caller to return them to. They are logged either way.
func WithErrorHandler(fn func(error)) Option {
	return func(c *managerConfig) {
		c.onError = fn
	}
}
