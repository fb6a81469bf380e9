package engine

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cast"

	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
)

// KnownOperator reports whether op has evaluation semantics.
func KnownOperator(op string) bool {
	switch op {
	case model.OpEquals, model.OpNotEquals, model.OpGreater, model.OpLess, model.OpIn, model.OpContains:
		return true
	}
	return false
}

// applyOperator compares actual against expected. Unknown operators fail
// closed.
func applyOperator(op string, actual, expected interface{}) bool {
	switch op {
	case model.OpEquals:
		return strictEqual(actual, expected)
	case model.OpNotEquals:
		return !strictEqual(actual, expected)
	case model.OpGreater:
		c, ok := compareOrdered(actual, expected)
		return ok && c > 0
	case model.OpLess:
		c, ok := compareOrdered(actual, expected)
		return ok && c < 0
	case model.OpIn:
		return inSequence(actual, expected)
	case model.OpContains:
		return containsString(actual, expected)
	}
	return false
}

func strictEqual(a, b interface{}) bool {
	if isAbsent(a) || isAbsent(b) {
		return false
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := toNumber(a); ok {
		fb, ok := toNumber(b)
		return ok && fa == fb
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.String:
		return vb.Kind() == reflect.String && va.String() == vb.String()
	case reflect.Bool:
		return vb.Kind() == reflect.Bool && va.Bool() == vb.Bool()
	}
	// sequences and mappings have no value equality
	return false
}

// compareOrdered orders two numbers or two strings. ok is false for any
// other pairing.
func compareOrdered(a, b interface{}) (int, bool) {
	if isAbsent(a) || isAbsent(b) || a == nil || b == nil {
		return 0, false
	}
	if fa, ok := toNumber(a); ok {
		fb, ok := toNumber(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa > fb:
			return 1, true
		case fa < fb:
			return -1, true
		}
		return 0, true
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() == reflect.String && vb.Kind() == reflect.String {
		return strings.Compare(va.String(), vb.String()), true
	}
	return 0, false
}

// inSequence requires expected to be a slice or array holding actual.
func inSequence(actual, expected interface{}) bool {
	if isAbsent(actual) || isAbsent(expected) || expected == nil {
		return false
	}
	rv := reflect.ValueOf(expected)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if strictEqual(actual, rv.Index(i).Interface()) {
			return true
		}
	}
	return false
}

func containsString(actual, expected interface{}) bool {
	if isAbsent(actual) || isAbsent(expected) {
		return false
	}
	return strings.Contains(stringify(actual), stringify(expected))
}

// stringify renders sequences as comma-joined elements and everything else
// through cast.
func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = stringify(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

func toNumber(v interface{}) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
