package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document shape errors.
var (
	// ErrNotMapping is returned when the top-level value is not an object.
	ErrNotMapping = errors.New("top-level value is not a mapping")

	// ErrMultipleDocuments is returned when a YAML stream holds more than
	// one document or JSON input has trailing values.
	ErrMultipleDocuments = errors.New("more than one document")
)

// DecodeError reports where a document failed to decode.
// Line and Column are 1-based; zero when the decoder gave no position.
type DecodeError struct {
	Format string
	Line   int
	Column int
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d, column %d: %v", e.Format, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FromFile loads configuration from a file, detecting the format by
// extension. Supported extensions: .yaml, .yml, .json
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cfg, err = FromYAML(data)
	case ".json":
		cfg, err = FromJSON(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// FromYAML parses a single YAML document whose root is a mapping.
// Empty input and a null document yield an empty Config.
func FromYAML(data []byte) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return New(nil), nil
		}
		return Config{}, &DecodeError{Format: "yaml", Err: err}
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return Config{}, &DecodeError{Format: "yaml", Err: err}
		}
		at := &extra
		if len(extra.Content) > 0 {
			at = extra.Content[0]
		}
		return Config{}, &DecodeError{Format: "yaml", Line: at.Line, Column: at.Column, Err: ErrMultipleDocuments}
	}

	if len(doc.Content) == 0 {
		return New(nil), nil
	}
	root := doc.Content[0]
	switch {
	case root.Kind == yaml.ScalarNode && root.Tag == "!!null":
		return New(nil), nil
	case root.Kind != yaml.MappingNode:
		return Config{}, &DecodeError{Format: "yaml", Line: root.Line, Column: root.Column, Err: ErrNotMapping}
	}

	var m map[string]any
	if err := root.Decode(&m); err != nil {
		return Config{}, &DecodeError{Format: "yaml", Line: root.Line, Column: root.Column, Err: err}
	}
	return New(m), nil
}

// FromJSON parses a single JSON object. A bare null yields an empty Config.
func FromJSON(data []byte) (Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var v any
	if err := dec.Decode(&v); err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			line, col := position(data, syn.Offset)
			return Config{}, &DecodeError{Format: "json", Line: line, Column: col, Err: err}
		}
		return Config{}, &DecodeError{Format: "json", Err: err}
	}

	off := dec.InputOffset()
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		rest := data[off:]
		line, col := position(data, off+int64(len(rest)-len(bytes.TrimLeft(rest, " \t\r\n"))))
		return Config{}, &DecodeError{Format: "json", Line: line, Column: col, Err: ErrMultipleDocuments}
	}

	switch m := v.(type) {
	case nil:
		return New(nil), nil
	case map[string]any:
		return New(m), nil
	default:
		start := int64(len(data) - len(bytes.TrimLeft(data, " \t\r\n")))
		line, col := position(data, start)
		return Config{}, &DecodeError{Format: "json", Line: line, Column: col, Err: ErrNotMapping}
	}
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	if offset < 0 {
		offset = 0
	}
	prefix := data[:offset]
	line = bytes.Count(prefix, []byte("\n")) + 1
	col = len(prefix) - bytes.LastIndexByte(prefix, '\n')
	return line, col
}
