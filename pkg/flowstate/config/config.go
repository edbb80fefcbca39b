package config

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// Config wraps a decoded YAML or JSON object for typed access.
// Accessors return the default when the key is missing or holds a value
// of the wrong shape.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map.
// If data is nil, an empty Config is returned.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// String returns the string value for key, or defaultVal.
func (c Config) String(key, defaultVal string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return defaultVal
}

// Duration returns the duration value for key, or defaultVal.
//
// Accepts:
//   - string: parsed with time.ParseDuration ("250ms", "1.5s")
//   - int, int64, float64: milliseconds
//   - time.Duration: used directly
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	d, err := c.duration(key)
	if err != nil || !c.Has(key) {
		return defaultVal
	}
	return d
}

// DurationE is Duration with an error for present but invalid values.
// A missing key yields zero and no error.
func (c Config) DurationE(key string) (time.Duration, error) {
	return c.duration(key)
}

func (c Config) duration(key string) (time.Duration, error) {
	v, ok := c.data[key]
	if !ok || v == nil {
		return 0, nil
	}
	var d time.Duration
	switch val := v.(type) {
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		d = parsed
	case int:
		d = time.Duration(val) * time.Millisecond
	case int64:
		d = time.Duration(val) * time.Millisecond
	case float64:
		d = time.Duration(val * float64(time.Millisecond))
	case time.Duration:
		d = val
	default:
		return 0, fmt.Errorf("%s: cannot use %T as a duration", key, v)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %s", key, d)
	}
	return d, nil
}

// Bool returns the boolean value for key, or defaultVal.
func (c Config) Bool(key string, defaultVal bool) bool {
	if b, ok := c.data[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal.
//
// Accepts int, int64, and float64 without a fractional part.
func (c Config) Int(key string, defaultVal int) int {
	switch val := c.data[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Float returns the float64 value for key, or defaultVal.
func (c Config) Float(key string, defaultVal float64) float64 {
	switch val := c.data[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	}
	return defaultVal
}

// StringSlice returns the string slice for key, or defaultVal.
// A list with any non-string element yields defaultVal.
func (c Config) StringSlice(key string, defaultVal []string) []string {
	switch val := c.data[key].(type) {
	case []string:
		return val
	case []any:
		result := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			result = append(result, s)
		}
		return result
	}
	return defaultVal
}

// StringMap returns a nested object whose values are all strings.
// A missing key yields an empty map; any non-string value is an error.
func (c Config) StringMap(key string) (map[string]string, error) {
	obj, err := c.object(key)
	if err != nil || obj == nil {
		return map[string]string{}, err
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s.%s: expected string, got %T", key, k, v)
		}
		out[k] = s
	}
	return out, nil
}

// Map returns a nested object as a plain map. A missing key yields an
// empty map.
func (c Config) Map(key string) (map[string]any, error) {
	obj, err := c.object(key)
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, err
}

// Section returns a nested object as a Config. A missing key yields an
// empty Config.
func (c Config) Section(key string) (Config, error) {
	obj, err := c.object(key)
	return New(obj), err
}

// Sections returns a list of nested objects as Configs.
func (c Config) Sections(key string) ([]Config, error) {
	v, ok := c.data[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected list, got %T", key, v)
	}
	out := make([]Config, 0, len(list))
	for i, item := range list {
		obj, err := asObject(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		out = append(out, New(obj))
	}
	return out, nil
}

func (c Config) object(key string) (map[string]any, error) {
	v, ok := c.data[key]
	if !ok || v == nil {
		return nil, nil
	}
	obj, err := asObject(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return obj, nil
}

// asObject accepts the object shapes produced by yaml.v3 and encoding/json.
func asObject(v any) (map[string]any, error) {
	switch val := v.(type) {
	case map[string]any:
		return val, nil
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", k)
			}
			out[ks] = item
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected object, got %T", v)
}

// Any returns the raw value for key, or defaultVal if missing.
func (c Config) Any(key string, defaultVal any) any {
	v, ok := c.data[key]
	if !ok {
		return defaultVal
	}
	return v
}

// Has returns true if the key exists in the config.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Keys returns the keys in sorted order.
func (c Config) Keys() []string {
	return slices.Sorted(maps.Keys(c.data))
}

// Unknown returns the keys not in allowed, sorted.
func (c Config) Unknown(allowed ...string) []string {
	var out []string
	for _, k := range c.Keys() {
		if !slices.Contains(allowed, k) {
			out = append(out, k)
		}
	}
	return out
}

// Raw returns the underlying map.
// The returned map should not be modified.
func (c Config) Raw() map[string]any {
	return c.data
}
