package kvsync

import "errors"

var (
	ErrEmptyKey = errors.New("kvsync: key cannot be empty")
	ErrNilCodec = errors.New("kvsync: codec cannot be nil")
	ErrNilStore = errors.New("kvsync: store cannot be nil")

	// ErrMissingPayload is logged when the write service is entered without a store request.
	ErrMissingPayload = errors.New("kvsync: unable to store unknown value")

	// ErrCodecPanic wraps a panic raised by a codec.
	ErrCodecPanic = errors.New("kvsync: codec panicked")
)
