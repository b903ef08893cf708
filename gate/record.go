package gate

import (
	"reflect"
	"strconv"
	"strings"
)

// ReservedKey is the cache key under which the gate record is stored.
const ReservedKey = "gfbtdbxcc"

// ActiveField is the record field compared against 1.
const ActiveField = "active"

// Record is the value stored under ReservedKey. The raw value is kept as
// written so it survives flushes unchanged even when it is not map-shaped.
type Record struct {
	value any
}

// NewRecord wraps a raw value.
func NewRecord(value any) Record {
	return Record{value: value}
}

// Value returns the raw stored value.
func (r Record) Value() any {
	return r.value
}

// Fields returns the record as a string-keyed map. Any map whose keys are
// strings qualifies; everything else reports false.
func (r Record) Fields() (map[string]any, bool) {
	switch m := r.value.(type) {
	case map[string]any:
		return m, true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(r.value)
	if rv.Kind() != reflect.Map {
		return nil, false
	}

	fields := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key()
		if key.Kind() == reflect.Interface && !key.IsNil() {
			key = key.Elem()
		}
		if key.Kind() != reflect.String {
			return nil, false
		}
		fields[key.String()] = iter.Value().Interface()
	}
	return fields, true
}

// Active returns the raw "active" field.
func (r Record) Active() (any, bool) {
	fields, ok := r.Fields()
	if !ok {
		return nil, false
	}
	v, ok := fields[ActiveField]
	return v, ok
}

// IsActive reports whether the active field is loosely equal to 1.
func (r Record) IsActive() bool {
	v, ok := r.Active()
	return ok && LooselyEqualsOne(v)
}

// LooselyEqualsOne compares v with the integer 1 the way a dynamically typed
// "==" would: true, any numeric 1 and numeric strings such as "1", " 1" or
// "1.0" match; nil, collections and non-numeric strings do not.
func LooselyEqualsOne(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 1
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 1
	case reflect.Float32, reflect.Float64:
		return rv.Float() == 1
	case reflect.String:
		f, ok := parseNumeric(rv.String())
		return ok && f == 1
	default:
		return false
	}
}

// parseNumeric accepts decimal numbers with optional sign, fraction and
// exponent, surrounded by optional whitespace. Hex, binary, underscores,
// "Inf" and "NaN" are rejected.
func parseNumeric(s string) (float64, bool) {
	s = strings.Trim(s, " \t\n\r\v\f")
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c == '.', c == 'e', c == 'E', c == '+', c == '-':
		default:
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
