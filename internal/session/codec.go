package session

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"oidcconfig/pkg/errors"
)

// Value type tags of encoded attributes
const (
	typeString  = "string"
	typeBool    = "bool"
	typeInt     = "int"
	typeInt64   = "int64"
	typeFloat   = "float64"
	typeStrings = "strings"
	typeTime    = "time"
	typeURL     = "url"
	typeToken   = "oauth2.token"
	typeClaims  = "jwt.claims"
)

type envelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Encode serializes an attribute value together with its type so Decode
// returns the same Go type.
func Encode(v any) (string, error) {
	var (
		typ     string
		payload any = v
	)
	switch x := v.(type) {
	case string:
		typ = typeString
	case bool:
		typ = typeBool
	case int:
		typ = typeInt
	case int64:
		typ = typeInt64
	case float64:
		typ = typeFloat
	case []string:
		typ = typeStrings
	case time.Time:
		typ = typeTime
	case *url.URL:
		typ = typeURL
		payload = x.String()
	case *oauth2.Token:
		typ = typeToken
	case jwt.MapClaims:
		typ = typeClaims
	default:
		return "", errors.NewError(errors.ErrorTypeInternal, fmt.Sprintf("unsupported session value type %T", v))
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", errors.NewError(errors.ErrorTypeInternal, "failed to encode session value").WithCause(err)
	}
	data, err := json.Marshal(envelope{Type: typ, Value: raw})
	if err != nil {
		return "", errors.NewError(errors.ErrorTypeInternal, "failed to encode session value").WithCause(err)
	}
	return string(data), nil
}

// Decode reverses Encode
func Decode(data string) (any, error) {
	var env envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return nil, errors.NewError(errors.ErrorTypeInternal, "malformed session value").WithCause(err)
	}

	switch env.Type {
	case typeString:
		return decodeAs[string](env.Value)
	case typeBool:
		return decodeAs[bool](env.Value)
	case typeInt:
		return decodeAs[int](env.Value)
	case typeInt64:
		return decodeAs[int64](env.Value)
	case typeFloat:
		return decodeAs[float64](env.Value)
	case typeStrings:
		return decodeAs[[]string](env.Value)
	case typeTime:
		return decodeAs[time.Time](env.Value)
	case typeURL:
		s, err := decodeAs[string](env.Value)
		if err != nil {
			return nil, err
		}
		u, err := url.Parse(s)
		if err != nil {
			return nil, errors.NewError(errors.ErrorTypeInternal, "malformed session value").WithCause(err)
		}
		return u, nil
	case typeToken:
		return decodeAs[*oauth2.Token](env.Value)
	case typeClaims:
		return decodeAs[jwt.MapClaims](env.Value)
	}
	return nil, errors.NewError(errors.ErrorTypeInternal, fmt.Sprintf("unknown session value type %q", env.Type))
}

func decodeAs[T any](raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, errors.NewError(errors.ErrorTypeInternal, "malformed session value").WithCause(err)
	}
	return v, nil
}
