package producer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/casualjim/tidings/events"
	"github.com/casualjim/tidings/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, string) (events.Event[string], error) {
	return events.Event[string]{}, errors.New("unavailable")
}

func TestAfter(t *testing.T) {
	t.Run("publishes once after the delay", func(t *testing.T) {
		b, err := pubsub.New[string]()
		require.NoError(t, err)
		defer b.Close()

		sub, err := b.Subscribe(context.Background(), "POST_UPDATE")
		require.NoError(t, err)
		defer sub.Close()

		start := time.Now()
		After[string](20*time.Millisecond, b, "POST_UPDATE", "hello", nil)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		e, err := sub.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, "hello", e.Payload)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

		short, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel2()
		_, err = sub.Next(short)
		assert.ErrorIs(t, err, context.DeadlineExceeded, "only one event is produced")
	})

	t.Run("drops the event without subscribers", func(t *testing.T) {
		b, err := pubsub.New[string]()
		require.NoError(t, err)
		defer b.Close()

		done := make(chan error, 1)
		After[string](time.Millisecond, b, "POST_UPDATE", "lost", func(_ events.Event[string], err error) {
			done <- err
		})

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("timer did not fire")
		}
	})

	t.Run("reports publish failures", func(t *testing.T) {
		done := make(chan error, 1)
		After[string](time.Millisecond, failingPublisher{}, "POST_UPDATE", "x", func(_ events.Event[string], err error) {
			done <- err
		})

		select {
		case err := <-done:
			assert.EqualError(t, err, "unavailable")
		case <-time.After(2 * time.Second):
			t.Fatal("timer did not fire")
		}
	})
}
