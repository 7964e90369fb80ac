package slogx

import (
	"fmt"
	"log/slog"
)

// Error returns a slog.Attr with the key "error" holding the error's message.
// A nil error yields an empty attribute, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Stringer renders value through its String method under key. A nil value
// yields an empty attribute.
//
// Parameters:
//   - key: The attribute key.
//   - value: Anything with a String method, such as an event id.
//
// Returns:
//   - slog.Attr: key paired with value.String().
func Stringer(key string, value fmt.Stringer) slog.Attr {
	if value == nil {
		return slog.Attr{}
	}
	return slog.String(key, value.String())
}

// Topic tags a record with the topic it concerns.
func Topic(name string) slog.Attr {
	return slog.String("topic", name)
}

// Subscription tags a record with a subscription id.
func Subscription(id string) slog.Attr {
	return slog.String("subscription", id)
}

// Session tags a record with a session key.
func Session(key string) slog.Attr {
	return slog.String("session", key)
}

const (
	// KeyLoggerName is the attribute key carrying the component name.
	KeyLoggerName = "logger"
)

// LoggerName creates a slog.Attr naming the component that logs.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// Component returns a logger derived from base (or slog.Default when nil)
// that tags every record with the component name.
func Component(base *slog.Logger, name string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With(LoggerName(name))
}
