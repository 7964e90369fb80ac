package events

import (
	"context"
	"log/slog"

	"github.com/casualjim/tidings/pkg/slogx"
)

// Hook receives the events of one subscription as they are consumed.
//
// OnEvent is called once per delivered event, in delivery order. OnError reports
// failures that happened while consuming, including a panic raised by OnEvent
// itself. OnClose is called exactly once when consumption stops.
type Hook[T any] interface {
	OnEvent(context.Context, Event[T])
	OnError(context.Context, error)
	OnClose(context.Context)
}

// HookFunc adapts a plain function to a Hook. Errors, including a panic raised
// by the function, go to slog.Default at error level. Close is ignored.
type HookFunc[T any] func(context.Context, Event[T])

func (f HookFunc[T]) OnEvent(ctx context.Context, e Event[T]) { f(ctx, e) }

func (HookFunc[T]) OnError(ctx context.Context, err error) {
	slog.Default().ErrorContext(ctx, "consumer failed", slogx.LoggerName("events"), slogx.Error(err))
}

func (HookFunc[T]) OnClose(context.Context) {}

// LoggingHook logs events and close at debug level and errors at error level.
func LoggingHook[T any](log *slog.Logger) Hook[T] {
	return &loggingHook[T]{log: slogx.Component(log, "events")}
}

type loggingHook[T any] struct {
	log *slog.Logger
}

func (h *loggingHook[T]) OnEvent(ctx context.Context, e Event[T]) {
	h.log.DebugContext(ctx, "event", slogx.Topic(e.Topic), slogx.Stringer("id", e.ID), slog.Any("payload", e.Payload))
}

func (h *loggingHook[T]) OnError(ctx context.Context, err error) {
	h.log.ErrorContext(ctx, "consumer failed", slogx.Error(err))
}

func (h *loggingHook[T]) OnClose(ctx context.Context) {
	h.log.DebugContext(ctx, "stream closed")
}

// CompositeHook fans each callback out to every hook in order.
type CompositeHook[T any] []Hook[T]

func (c CompositeHook[T]) OnEvent(ctx context.Context, e Event[T]) {
	for _, h := range c {
		h.OnEvent(ctx, e)
	}
}

func (c CompositeHook[T]) OnError(ctx context.Context, err error) {
	for _, h := range c {
		h.OnError(ctx, err)
	}
}

func (c CompositeHook[T]) OnClose(ctx context.Context) {
	for _, h := range c {
		h.OnClose(ctx)
	}
}
