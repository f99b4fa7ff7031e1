package codec

import "errors"

var (
	// ErrNoValue is returned when a codec that requires a value is given the "no value" marker.
	ErrNoValue = errors.New("codec: no value stored")

	// ErrDecode is returned when raw input cannot be parsed into the target type.
	ErrDecode = errors.New("codec: failed to decode value")

	// ErrEncode is returned when a value cannot be serialized.
	ErrEncode = errors.New("codec: failed to encode value")
)
