/*
Package config provides typed access to decoded YAML and JSON documents.

flowstate definition files are read through it: a Config wraps one object
and nested objects are reached with Section, Sections and Map.

# Basic Usage

	cfg, err := config.FromFile("door.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	opts, _ := cfg.Section("options")
	depth := opts.Int("max_cascade_depth", 1000)
	builtins := opts.Bool("builtins", false)

	assignments, _ := cfg.Sections("assignments")
	for _, a := range assignments {
	    storage := a.String("storage", "")
	    timeout := a.Duration("timeout", 0)
	    // ...
	}

# Type Coercion

Duration accepts Go duration strings ("250ms", "2s") and plain numbers,
which are milliseconds. Int accepts float64 values without a fractional
part, since JSON decodes every number as float64.

Plain accessors return the default when the value is missing or has the
wrong type. Section, Sections, Map, StringMap and DurationE report shape
errors instead, for callers that validate input.

# Documents

FromYAML and FromJSON accept exactly one document whose top-level value
is a mapping. Empty input and null decode to an empty Config. Anything
else fails with a *DecodeError carrying the line and column, wrapping
ErrNotMapping, ErrMultipleDocuments or the decoder's own error.

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
