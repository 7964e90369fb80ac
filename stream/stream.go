// Package stream drives a subscription on behalf of a consumer: it pulls events
// one at a time and hands each to a hook, the way a query layer forwards a live
// subscription to its transport.
package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/casualjim/tidings/events"
	"github.com/casualjim/tidings/pubsub"
)

// Source is the consumer side of a subscription.
type Source[T any] interface {
	Next(ctx context.Context) (events.Event[T], error)
}

// PanicError wraps a value recovered from a hook.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("stream: hook panicked: %v", e.Value)
}

// Forward pulls events from src and passes them to hook until the source ends
// or ctx is done.
//
// A panic inside hook.OnEvent is recovered and reported through hook.OnError;
// consumption carries on with the next event. hook.OnClose is always called
// before Forward returns. The result is nil when the source ended and ctx.Err()
// when the context stopped consumption.
func Forward[T any](ctx context.Context, src Source[T], hook events.Hook[T]) error {
	defer hook.OnClose(ctx)

	for {
		e, err := src.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, pubsub.ErrEndOfStream):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			hook.OnError(ctx, err)
			return err
		}

		deliver(ctx, hook, e)
	}
}

func deliver[T any](ctx context.Context, hook events.Hook[T], e events.Event[T]) {
	defer func() {
		if r := recover(); r != nil {
			hook.OnError(ctx, &PanicError{Value: r})
		}
	}()
	hook.OnEvent(ctx, e)
}

// First waits for one event from src.
func First[T any](ctx context.Context, src Source[T]) (events.Event[T], error) {
	return src.Next(ctx)
}
