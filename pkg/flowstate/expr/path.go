package expr

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Path is a resolved member chain such as a.b[1]. Segments are string keys
// or int indexes.
type Path []any

// String renders the path in dotted/bracketed form.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		switch s := seg.(type) {
		case int:
			b.WriteString("[")
			b.WriteString(strconv.Itoa(s))
			b.WriteString("]")
		case string:
			if i > 0 {
				b.WriteString(".")
			}
			b.WriteString(s)
		}
	}
	return b.String()
}

// Root returns the first segment as a string, or "" for an empty path.
func (p Path) Root() string {
	if len(p) == 0 {
		return ""
	}
	if s, ok := p[0].(string); ok {
		return s
	}
	return strconv.Itoa(p[0].(int))
}

// Lookup dereferences the path against ctx one segment at a time. A missing
// segment at any depth yields nil; it is not an error.
func (p Path) Lookup(ctx map[string]any) any {
	var cur any = ctx
	for _, seg := range p {
		next, ok := member(cur, seg)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// segment converts an evaluated computed-member key into a path segment.
// Integral numbers become indexes; everything else is stringified.
func segment(key any) any {
	if f, ok := numeric(key); ok && f == math.Trunc(f) && !math.IsInf(f, 0) && f >= 0 && f <= math.MaxInt32 {
		return int(f)
	}
	return ToString(key)
}

// member reads one segment from container.
func member(container any, seg any) (any, bool) {
	switch c := container.(type) {
	case nil:
		return nil, false
	case map[string]any:
		v, ok := c[segmentKey(seg)]
		return v, ok
	case []any:
		if idx, ok := segmentIndex(seg); ok {
			if idx < len(c) {
				return c[idx], true
			}
			return nil, false
		}
		if seg == "length" {
			return float64(len(c)), true
		}
		return nil, false
	case string:
		if idx, ok := segmentIndex(seg); ok {
			runes := []rune(c)
			if idx < len(runes) {
				return string(runes[idx]), true
			}
			return nil, false
		}
		if seg == "length" {
			return float64(utf8.RuneCountInString(c)), true
		}
		return nil, false
	}

	rv := reflect.ValueOf(container)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(segmentKey(seg)).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		if idx, ok := segmentIndex(seg); ok {
			if idx < rv.Len() {
				return rv.Index(idx).Interface(), true
			}
			return nil, false
		}
		if seg == "length" {
			return float64(rv.Len()), true
		}
	case reflect.Struct:
		name, ok := seg.(string)
		if !ok {
			return nil, false
		}
		f := rv.FieldByName(name)
		if !f.IsValid() || !f.CanInterface() {
			return nil, false
		}
		return f.Interface(), true
	}
	return nil, false
}

func segmentKey(seg any) string {
	if i, ok := seg.(int); ok {
		return strconv.Itoa(i)
	}
	return seg.(string)
}

func segmentIndex(seg any) (int, bool) {
	switch s := seg.(type) {
	case int:
		return s, s >= 0
	case string:
		i, err := strconv.Atoi(s)
		if err != nil || i < 0 || strconv.Itoa(i) != s {
			return 0, false
		}
		return i, true
	}
	return 0, false
}
