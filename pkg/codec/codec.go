package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// StringCodec stores strings as-is. The "no value" marker is rejected.
type StringCodec struct{}

// String returns the identity codec for string values.
func String() StringCodec {
	return StringCodec{}
}

func (StringCodec) Deserialize(raw *string) (string, error) {
	if raw == nil {
		return "", ErrNoValue
	}
	return *raw, nil
}

func (StringCodec) Serialize(value string) (string, error) {
	return value, nil
}

// JSONCodec decodes JSON into T and runs validators on the result.
type JSONCodec[T any] struct {
	validators []Validator[T]
}

// JSON returns a codec that parses JSON then validates it.
func JSON[T any](validators ...Validator[T]) JSONCodec[T] {
	return JSONCodec[T]{validators: validators}
}

func (c JSONCodec[T]) Deserialize(raw *string) (T, error) {
	var value T
	if raw == nil {
		return value, ErrNoValue
	}
	if err := json.Unmarshal([]byte(*raw), &value); err != nil {
		return value, errors.Join(ErrDecode, err)
	}
	if err := validate(value, c.validators); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

func (c JSONCodec[T]) Serialize(value T) (string, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return "", errors.Join(ErrEncode, err)
	}
	return string(b), nil
}

// YAMLCodec decodes YAML into T and runs validators on the result.
type YAMLCodec[T any] struct {
	validators []Validator[T]
}

// YAML returns a codec that parses YAML then validates it.
func YAML[T any](validators ...Validator[T]) YAMLCodec[T] {
	return YAMLCodec[T]{validators: validators}
}

func (c YAMLCodec[T]) Deserialize(raw *string) (T, error) {
	var value T
	if raw == nil {
		return value, ErrNoValue
	}
	if err := yaml.Unmarshal([]byte(*raw), &value); err != nil {
		return value, errors.Join(ErrDecode, err)
	}
	if err := validate(value, c.validators); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

func (c YAMLCodec[T]) Serialize(value T) (string, error) {
	b, err := yaml.Marshal(value)
	if err != nil {
		return "", errors.Join(ErrEncode, err)
	}
	return string(b), nil
}

// Codec converts between raw stored strings and typed values.
// A nil raw is the "no value" marker for a missing entry.
type Codec[T any] interface {
	Deserialize(raw *string) (T, error)
	Serialize(value T) (string, error)
}

// OptionalCodec accepts the "no value" marker and decodes it to a fallback.
type OptionalCodec[T any] struct {
	inner    Codec[T]
	fallback T
}

// Optional wraps c so that absence decodes to fallback instead of failing.
func Optional[T any](c Codec[T], fallback T) OptionalCodec[T] {
	return OptionalCodec[T]{inner: c, fallback: fallback}
}

func (c OptionalCodec[T]) Deserialize(raw *string) (T, error) {
	if raw == nil {
		return c.fallback, nil
	}
	return c.inner.Deserialize(raw)
}

func (c OptionalCodec[T]) Serialize(value T) (string, error) {
	return c.inner.Serialize(value)
}

// ByName resolves the built-in codecs for string-typed values, as used by the CLI.
func ByName(name string) (Codec[string], error) {
	switch name {
	case "", "string":
		return String(), nil
	case "json":
		return rawJSON{}, nil
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
}

// rawJSON keeps the value as a string but requires it to be valid JSON.
type rawJSON struct{}

func (rawJSON) Deserialize(raw *string) (string, error) {
	if raw == nil {
		return "", ErrNoValue
	}
	if !json.Valid([]byte(*raw)) {
		return "", ErrDecode
	}
	return *raw, nil
}

func (rawJSON) Serialize(value string) (string, error) {
	if !json.Valid([]byte(value)) {
		return "", ErrEncode
	}
	return value, nil
}
