package logger

import (
	"log/slog"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// MachineID records the state machine instance identifier under the key "machine_id".
// If id is empty, it returns an empty Attr.
func MachineID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("machine_id", id)
}

// Key records the store key a machine is bound to under the key "key".
func Key(key string) slog.Attr {
	return slog.String("key", key)
}

// State records a state name under the key "state".
func State(name string) slog.Attr {
	return slog.String("state", name)
}

// Event records an event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Backend records a store backend name under the key "backend".
func Backend(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("backend", name)
}
