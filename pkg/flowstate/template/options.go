package template

// MissingAction specifies how to handle missing variables.
type MissingAction int

const (
	// MissingError reports every missing variable in an
	// UndefinedVariableError. This is the default.
	MissingError MissingAction = iota

	// MissingKeep leaves the placeholder as written.
	MissingKeep

	// MissingEmpty replaces the placeholder with an empty string.
	MissingEmpty
)

// Option configures an Expander.
type Option func(*Expander)

// WithMissingAction sets how missing variables are handled.
//
// Default: MissingError
//
// Example:
//
//	exp := NewExpander(WithMissingAction(MissingKeep))
//	out, _ := exp.Expand("${missing}", nil)
//	// out: "${missing}"
func WithMissingAction(action MissingAction) Option {
	return func(e *Expander) {
		e.missingAction = action
	}
}
