package cache

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// DefaultMaxKeyLength is the length above which argument segments are
// replaced by their xxhash digest. Redis accepts much longer keys, but long
// keys waste memory in both backends.
const DefaultMaxKeyLength = 200

// SerializerOption customizes the default key serializer.
type SerializerOption func(*defaultKeySerializer)

// WithPrefix prepends prefix to every key produced by the serializer.
func WithPrefix(prefix string) SerializerOption {
	return func(s *defaultKeySerializer) {
		s.prefix = strings.TrimSuffix(prefix, KeySeparator)
	}
}

// WithMaxKeyLength overrides DefaultMaxKeyLength. Values <= 0 disable hashing.
func WithMaxKeyLength(n int) SerializerOption {
	return func(s *defaultKeySerializer) {
		s.maxLength = n
	}
}

type defaultKeySerializer struct {
	prefix    string
	maxLength int
}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer(opts ...SerializerOption) KeySerializer {
	s := &defaultKeySerializer{maxLength: DefaultMaxKeyLength}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SerializeKey builds "<prefix>::<method>::<arg>::<arg>". When the argument
// segment would push the key past the max length, the arguments collapse to
// "h:<xxhash>" so the method prefix stays intact for prefix invalidation.
func (s *defaultKeySerializer) SerializeKey(method string, args ...any) string {
	head := method
	if s.prefix != "" {
		head = s.prefix + KeySeparator + method
	}
	if len(args) == 0 {
		return head
	}

	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = s.value(reflect.ValueOf(arg))
	}
	tail := strings.Join(parts, KeySeparator)

	if s.maxLength > 0 && len(head)+len(KeySeparator)+len(tail) > s.maxLength {
		tail = "h:" + strconv.FormatUint(xxhash.Sum64String(tail), 16)
	}
	return head + KeySeparator + tail
}

func (s *defaultKeySerializer) value(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return "nil"
		}
		return s.value(v.Elem())
	case reflect.Func:
		if v.IsNil() {
			return "nil"
		}
		return fmt.Sprintf("func:%x", v.Pointer())
	case reflect.Chan:
		return fmt.Sprintf("chan:%x", v.Pointer())
	case reflect.Slice:
		if v.IsNil() {
			return "slice:nil"
		}
		return s.sequence("slice", v)
	case reflect.Array:
		if text, ok := textValue(v); ok {
			return text
		}
		return s.sequence("array", v)
	case reflect.Map:
		if v.IsNil() {
			return "map:nil"
		}
		return s.mapping(v)
	case reflect.Struct:
		if text, ok := textValue(v); ok {
			return text
		}
		return s.structure(v)
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(v.Interface())
	}

	if !v.CanInterface() {
		return "opaque:" + v.Type().String()
	}
	data, err := json.Marshal(v.Interface())
	if err != nil {
		return "opaque:" + v.Type().String()
	}
	return "json:" + string(data)
}

func (s *defaultKeySerializer) sequence(kind string, v reflect.Value) string {
	items := make([]string, v.Len())
	for i := range items {
		items[i] = s.value(v.Index(i))
	}
	return fmt.Sprintf("%s[%d]:{%s}", kind, len(items), strings.Join(items, ","))
}

// mapping sorts entries by their serialized key so map iteration order never
// leaks into the cache key.
func (s *defaultKeySerializer) mapping(v reflect.Value) string {
	pairs := make([]string, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		pairs = append(pairs, s.value(iter.Key())+"="+s.value(iter.Value()))
	}
	sort.Strings(pairs)
	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

func (s *defaultKeySerializer) structure(v reflect.Value) string {
	t := v.Type()
	fields := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		fields = append(fields, f.Name+":"+s.value(v.Field(i)))
	}
	return "struct:{" + strings.Join(fields, ",") + "}"
}

// textValue renders values such as UUIDs and timestamps through their text
// encoding; their fields are unexported and would all collapse to one key.
func textValue(v reflect.Value) (string, bool) {
	if !v.CanInterface() {
		return "", false
	}
	tm, ok := v.Interface().(encoding.TextMarshaler)
	if !ok {
		return "", false
	}
	data, err := tm.MarshalText()
	if err != nil {
		return "", false
	}
	return string(data), true
}
