// Package producer stands in for an upstream system that eventually publishes
// an event. Real deployments replace it with their own calls to Publish.
package producer

import (
	"context"
	"time"

	"github.com/casualjim/tidings/events"
	"github.com/casualjim/tidings/pkg/slogx"
)

// Publisher is the part of the broker a producer needs.
type Publisher[T any] interface {
	Publish(ctx context.Context, topic string, payload T) (events.Event[T], error)
}

// After publishes payload to topic once, delay from now. There is no retry and
// no way to cancel: if nobody is subscribed when the timer fires the event is
// simply gone. done, when not nil, is called with the outcome after publishing.
func After[T any](delay time.Duration, p Publisher[T], topic string, payload T, done func(events.Event[T], error)) {
	log := slogx.Component(nil, "producer")
	time.AfterFunc(delay, func() {
		e, err := p.Publish(context.Background(), topic, payload)
		if err != nil {
			log.Error("scheduled publish failed", slogx.Topic(topic), slogx.Error(err))
		} else {
			log.Debug("scheduled publish sent", slogx.Topic(topic), slogx.Stringer("id", e.ID))
		}
		if done != nil {
			done(e, err)
		}
	})
}
