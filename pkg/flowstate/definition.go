package flowstate

import (
	"fmt"
	"maps"

	"github.com/randalmurphal/flowstate/pkg/flowstate/config"
	"github.com/randalmurphal/flowstate/pkg/flowstate/template"
)

// Definition is a declarative description of a manager: its state,
// context, assignments and controls.
type Definition struct {
	State              map[string]any
	InitialAssignments map[string]string
	Context            map[string]any
	Assignments        []AssignmentParams
	Controls           []ControlSpec
	Options            DefinitionOptions
}

// DefinitionOptions holds the manager options a definition may set.
type DefinitionOptions struct {
	// MaxCascadeDepth overrides DefaultMaxCascadeDepth when positive.
	MaxCascadeDepth int
	// Builtins adds the standard functions to the context.
	Builtins bool
	// ShortCircuit enables lazy &&, || and ?:.
	ShortCircuit bool
}

var (
	definitionKeys = []string{"state", "initial_assignments", "context", "assignments", "controls", "options"}
	assignmentKeys = []string{"storage", "expression", "listen", "condition", "timeout"}
	controlKeys    = []string{"id", "runtime"}
	optionKeys     = []string{"max_cascade_depth", "builtins", "short_circuit"}
)

// DefinitionOption configures definition parsing.
type DefinitionOption func(*definitionConfig)

type definitionConfig struct {
	vars    map[string]any
	missing template.MissingAction
}

// WithVariables fills ${name} placeholders in the document's string values
// before it is decoded. A value that is exactly one placeholder takes the
// variable's type. Without this option placeholders are left as written.
func WithVariables(vars map[string]any) DefinitionOption {
	return func(c *definitionConfig) {
		c.vars = vars
	}
}

// WithMissingVariables sets how placeholders naming undefined variables
// are handled. Default: template.MissingError
func WithMissingVariables(action template.MissingAction) DefinitionOption {
	return func(c *definitionConfig) {
		c.missing = action
	}
}

// LoadDefinition reads a definition from a .yaml, .yml or .json file.
func LoadDefinition(path string, opts ...DefinitionOption) (*Definition, error) {
	cfg, err := config.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return decodeDefinition(cfg, opts)
}

// ParseDefinition parses a YAML definition. JSON is accepted as well.
func ParseDefinition(data []byte, opts ...DefinitionOption) (*Definition, error) {
	cfg, err := config.FromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return decodeDefinition(cfg, opts)
}

func decodeDefinition(cfg config.Config, opts []DefinitionOption) (*Definition, error) {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidDefinition, fmt.Sprintf(format, args...))
	}

	dc := definitionConfig{missing: template.MissingError}
	for _, opt := range opts {
		opt(&dc)
	}
	if dc.vars != nil {
		expanded, err := template.NewExpander(template.WithMissingAction(dc.missing)).Map(cfg.Raw(), dc.vars)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
		}
		cfg = config.New(expanded)
	}
	if unknown := cfg.Unknown(definitionKeys...); len(unknown) > 0 {
		return nil, invalid("unknown keys %v", unknown)
	}

	def := &Definition{}
	var err error
	if def.State, err = cfg.Map("state"); err != nil {
		return nil, invalid("%v", err)
	}
	if def.InitialAssignments, err = cfg.StringMap("initial_assignments"); err != nil {
		return nil, invalid("%v", err)
	}
	if def.Context, err = cfg.Map("context"); err != nil {
		return nil, invalid("%v", err)
	}

	assignments, err := cfg.Sections("assignments")
	if err != nil {
		return nil, invalid("%v", err)
	}
	for i, a := range assignments {
		if unknown := a.Unknown(assignmentKeys...); len(unknown) > 0 {
			return nil, invalid("assignments[%d]: unknown keys %v", i, unknown)
		}
		p := AssignmentParams{
			Storage:    a.String("storage", ""),
			Expression: a.String("expression", ""),
			Listen:     a.String("listen", ""),
			Condition:  a.String("condition", ""),
		}
		if a.Has("timeout") {
			if p.Timeout, err = a.DurationE("timeout"); err != nil {
				return nil, invalid("assignments[%d].timeout: %v", i, err)
			}
		}
		def.Assignments = append(def.Assignments, p)
	}

	controls, err := cfg.Sections("controls")
	if err != nil {
		return nil, invalid("%v", err)
	}
	for i, c := range controls {
		if unknown := c.Unknown(controlKeys...); len(unknown) > 0 {
			return nil, invalid("controls[%d]: unknown keys %v", i, unknown)
		}
		runtime, err := c.StringMap("runtime")
		if err != nil {
			return nil, invalid("controls[%d]: %v", i, err)
		}
		def.Controls = append(def.Controls, ControlSpec{ID: c.String("id", ""), Runtime: runtime})
	}

	section, err := cfg.Section("options")
	if err != nil {
		return nil, invalid("%v", err)
	}
	if unknown := section.Unknown(optionKeys...); len(unknown) > 0 {
		return nil, invalid("options: unknown keys %v", unknown)
	}
	def.Options = DefinitionOptions{
		MaxCascadeDepth: section.Int("max_cascade_depth", 0),
		Builtins:        section.Bool("builtins", false),
		ShortCircuit:    section.Bool("short_circuit", false),
	}
	return def, nil
}

// NewFromDefinition creates a manager and registers the definition's
// controls and assignments, controls first. opts are applied after the
// definition's own options and take precedence.
func NewFromDefinition(def *Definition, opts ...Option) (*Manager, error) {
	var defOpts []Option
	if def.Options.Builtins {
		defOpts = append(defOpts, WithBuiltins())
	}
	if len(def.Context) > 0 {
		defOpts = append(defOpts, WithContext(def.Context))
	}
	if len(def.InitialAssignments) > 0 {
		defOpts = append(defOpts, WithInitialAssignments(def.InitialAssignments))
	}
	if def.Options.MaxCascadeDepth > 0 {
		defOpts = append(defOpts, WithMaxCascadeDepth(def.Options.MaxCascadeDepth))
	}
	if def.Options.ShortCircuit {
		defOpts = append(defOpts, WithShortCircuit())
	}

	m, err := New(maps.Clone(def.State), append(defOpts, opts...)...)
	if err != nil {
		return nil, err
	}
	for i, spec := range def.Controls {
		if _, err := m.AddControl(spec); err != nil {
			m.Dispose()
			return nil, fmt.Errorf("control %d: %w", i, err)
		}
	}
	for i, p := range def.Assignments {
		if err := m.AddRuntimeAssignment(p); err != nil {
			m.Dispose()
			return nil, fmt.Errorf("assignment %d: %w", i, err)
		}
	}
	return m, nil
}
