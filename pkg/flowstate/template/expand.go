package template

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/randalmurphal/flowstate/pkg/flowstate/expr"
)

var (
	// placeholder matches ${name}.
	placeholder = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

	// whole matches a string that is a single placeholder.
	whole = regexp.MustCompile(`^\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}$`)
)

// Expander fills placeholders from a variable map.
//
// Expander is safe for concurrent use after construction.
type Expander struct {
	missingAction MissingAction
}

// NewExpander creates an Expander. The default MissingAction is
// MissingError.
func NewExpander(opts ...Option) *Expander {
	e := &Expander{missingAction: MissingError}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand fills the placeholders in s. Values are formatted the way the
// expression language converts them to strings.
func (e *Expander) Expand(s string, vars map[string]any) (string, error) {
	var missing []string
	out := e.expand(s, vars, &missing)
	if len(missing) > 0 {
		return out, &UndefinedVariableError{Names: missing}
	}
	return out, nil
}

func (e *Expander) expand(s string, vars map[string]any, missing *[]string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return placeholder.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := vars[name]; ok {
			return expr.ToString(val)
		}
		switch e.missingAction {
		case MissingEmpty:
			return ""
		case MissingError:
			if !slices.Contains(*missing, name) {
				*missing = append(*missing, name)
			}
		}
		return match
	})
}

// Value walks a decoded document and fills placeholders in every string,
// including map values and list elements. Map keys are not expanded. The
// input is not modified.
func (e *Expander) Value(v any, vars map[string]any) (any, error) {
	var missing []string
	out := e.value(v, vars, &missing)
	if len(missing) > 0 {
		return nil, &UndefinedVariableError{Names: missing}
	}
	return out, nil
}

func (e *Expander) value(v any, vars map[string]any, missing *[]string) any {
	switch val := v.(type) {
	case string:
		if m := whole.FindStringSubmatch(val); m != nil {
			if typed, ok := vars[m[1]]; ok {
				return typed
			}
		}
		return e.expand(val, vars, missing)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = e.value(item, vars, missing)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = e.value(item, vars, missing)
		}
		return out
	default:
		return v
	}
}

// Map is Value for a document root.
func (e *Expander) Map(m map[string]any, vars map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	out, err := e.Value(m, vars)
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

// UndefinedVariableError is returned under MissingError when placeholders
// name variables that were not provided.
type UndefinedVariableError struct {
	// Names lists the undefined variables in order of first use.
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}
