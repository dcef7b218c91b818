// Package convert coerces weakly typed configuration values
package convert

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"oidcconfig/internal/core"
	"oidcconfig/pkg/errors"
)

// ListSeparators split a single string into a list value
const ListSeparators = "|,"

var (
	typeString   = reflect.TypeFor[string]()
	typeStrings  = reflect.TypeFor[[]string]()
	typeBool     = reflect.TypeFor[bool]()
	typeInt      = reflect.TypeFor[int]()
	typeInt64    = reflect.TypeFor[int64]()
	typeURL      = reflect.TypeFor[*url.URL]()
	typeTime     = reflect.TypeFor[time.Time]()
	typeDuration = reflect.TypeFor[time.Duration]()
)

// Converter is the default core.TypeConverter
type Converter struct{}

// New creates a converter
func New() *Converter {
	return &Converter{}
}

var _ core.TypeConverter = (*Converter)(nil)

// Convert implements core.TypeConverter
func (c *Converter) Convert(target reflect.Type, raw any) (any, error) {
	if raw == nil {
		return reflect.Zero(target).Interface(), nil
	}
	if reflect.TypeOf(raw) == target {
		return raw, nil
	}

	var (
		v   any
		err error
	)
	switch target {
	case typeString:
		v, err = toString(raw)
	case typeStrings:
		v, err = toStrings(raw)
	case typeBool:
		v, err = cast.ToBoolE(raw)
	case typeInt:
		v, err = toInt(raw)
	case typeInt64:
		v, err = toInt64(raw)
	case typeURL:
		v, err = toURL(raw)
	case typeTime:
		v, err = cast.ToTimeE(raw)
	case typeDuration:
		v, err = cast.ToDurationE(raw)
	default:
		if rv := reflect.ValueOf(raw); rv.Type().ConvertibleTo(target) && target.Kind() == rv.Kind() {
			return rv.Convert(target).Interface(), nil
		}
		return nil, errors.NewCoercionError(target.String(), raw)
	}
	if err != nil {
		return nil, errors.NewCoercionError(target.String(), raw).WithCause(err)
	}
	return v, nil
}

// To converts raw into T using c
func To[T any](c core.TypeConverter, raw any) (T, error) {
	var zero T
	v, err := c.Convert(reflect.TypeFor[T](), raw)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, errors.NewCoercionError(reflect.TypeFor[T]().String(), v)
	}
	return t, nil
}

// toInt reads strings as base 10, a leading zero does not switch to octal
func toInt(raw any) (int, error) {
	if s, ok := raw.(string); ok {
		n, err := strconv.ParseInt(s, 10, strconv.IntSize)
		return int(n), err
	}
	return cast.ToIntE(raw)
}

func toInt64(raw any) (int64, error) {
	if s, ok := raw.(string); ok {
		return strconv.ParseInt(s, 10, 64)
	}
	return cast.ToInt64E(raw)
}

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case []string:
		return strings.Join(v, ","), nil
	case []any:
		parts, err := cast.ToStringSliceE(v)
		if err != nil {
			return "", err
		}
		return strings.Join(parts, ","), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return cast.ToStringE(raw)
}

// toStrings splits plain strings on ListSeparators. Items of an existing list
// are kept as they are, blank ones included.
func toStrings(raw any) ([]string, error) {
	if s, ok := raw.(string); ok {
		fields := strings.FieldsFunc(s, func(r rune) bool {
			return strings.ContainsRune(ListSeparators, r)
		})
		out := make([]string, 0, len(fields))
		for _, f := range fields {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
		return out, nil
	}
	return cast.ToStringSliceE(raw)
}

func toURL(raw any) (*url.URL, error) {
	s, err := toString(raw)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%q is not an absolute URL", s)
	}
	return u, nil
}
