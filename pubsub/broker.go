package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/casualjim/tidings/events"
	"github.com/casualjim/tidings/internal/queue"
	"github.com/casualjim/tidings/internal/registry"
	"github.com/casualjim/tidings/pkg/slogx"
	"github.com/casualjim/tidings/pkg/uuidx"
	"github.com/fogfish/opts"
	"go.uber.org/atomic"
)

// Broker fans published events out to the subscriptions of a topic.
type Broker[T any] struct {
	topics  registry.Registry[*topic[T]]
	config  Config
	metrics *metrics
	log     *slog.Logger
	closed  atomic.Bool
}

type topic[T any] struct {
	name          string
	subscriptions registry.Registry[*Subscription[T]]
}

// New creates a broker. Create one per process and share it: events only reach
// subscriptions made on the same broker.
func New[T any](options ...Option) (*Broker[T], error) {
	var cfg Config
	if err := opts.Apply(&cfg, options); err != nil {
		return nil, fmt.Errorf("pubsub: invalid options: %w", err)
	}
	if cfg.queueCapacity < 0 {
		return nil, fmt.Errorf("pubsub: queue capacity must not be negative, got %d", cfg.queueCapacity)
	}

	m, err := newMetrics(cfg.registerer)
	if err != nil {
		return nil, fmt.Errorf("pubsub: register metrics: %w", err)
	}

	return &Broker[T]{
		topics:  registry.New[*topic[T]](),
		config:  cfg,
		metrics: m,
		log:     slogx.Component(cfg.logger, "pubsub"),
	}, nil
}

func (b *Broker[T]) topic(name string) *topic[T] {
	t, _ := b.topics.GetOrAdd(name, func() *topic[T] {
		return &topic[T]{
			name:          name,
			subscriptions: registry.New[*Subscription[T]](),
		}
	})
	return t
}

// Subscribe registers a fresh queue under name and returns the handle that
// consumes it. The topic is created on first use.
//
// The subscription closes itself when ctx is done; pass context.Background to
// tie its lifetime to Close alone.
func (b *Broker[T]) Subscribe(ctx context.Context, name string) (*Subscription[T], error) {
	if b.closed.Load() {
		return nil, ErrBrokerClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &Subscription[T]{
		id:     uuidx.NewString(),
		topic:  name,
		queue:  queue.New[events.Event[T]](b.config.queueOptions()...),
		broker: b,
	}
	b.topic(name).subscriptions.Add(sub.id, sub)
	b.metrics.subscribed(name)

	// Close may have swept the topics before the add above became visible.
	if b.closed.Load() {
		sub.Close()
		return nil, ErrBrokerClosed
	}

	sub.bind(context.AfterFunc(ctx, sub.Close))
	b.log.DebugContext(ctx, "subscribed", slogx.Topic(name), slogx.Subscription(sub.id))
	return sub, nil
}

// Publish wraps payload in a new event and delivers it to every subscription of
// name. The delivered event is returned. Publishing to a topic without
// subscribers succeeds and delivers nothing.
func (b *Broker[T]) Publish(ctx context.Context, name string, payload T) (events.Event[T], error) {
	e := events.New(name, payload)
	if err := b.PublishEvent(ctx, e); err != nil {
		return events.Event[T]{}, err
	}
	return e, nil
}

// PublishEvent delivers a pre-built event to every subscription of e.Topic.
func (b *Broker[T]) PublishEvent(ctx context.Context, e events.Event[T]) error {
	if b.closed.Load() {
		return ErrBrokerClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.metrics.publish(e.Topic)

	t, ok := b.topics.Get(e.Topic)
	if !ok {
		return nil
	}

	var snapshot []*Subscription[T]
	t.subscriptions.Range(func(_ string, sub *Subscription[T]) bool {
		snapshot = append(snapshot, sub)
		return true
	})

	for _, sub := range snapshot {
		accepted, evicted := sub.queue.Push(e)
		if evicted {
			b.metrics.drop(e.Topic)
			b.log.WarnContext(ctx, "subscription queue full, dropped oldest event", slogx.Topic(e.Topic), slogx.Subscription(sub.id))
		}
		if !accepted {
			if !sub.queue.Closed() {
				b.metrics.drop(e.Topic)
				b.log.WarnContext(ctx, "subscription queue full, dropped event", slogx.Topic(e.Topic), slogx.Subscription(sub.id))
			}
			continue
		}
		// A queue closed right after the push discards the event unread.
		if sub.queue.Closed() {
			continue
		}
		b.metrics.deliver(e.Topic)
	}
	return nil
}

// Unsubscribe closes the subscription id registered under name.
// Unknown ids are ignored.
func (b *Broker[T]) Unsubscribe(name, id string) {
	t, ok := b.topics.Get(name)
	if !ok {
		return
	}
	if sub, ok := t.subscriptions.Get(id); ok {
		sub.Close()
	}
}

// remove takes sub out of the registry. It reports whether sub was still registered.
func (b *Broker[T]) remove(sub *Subscription[T]) bool {
	t, ok := b.topics.Get(sub.topic)
	if !ok {
		return false
	}
	if _, ok := t.subscriptions.Take(sub.id); !ok {
		return false
	}
	b.metrics.unsubscribed(sub.topic)
	b.log.Debug("unsubscribed", slogx.Topic(sub.topic), slogx.Subscription(sub.id))
	return true
}

// Subscribers returns the number of active subscriptions of name.
func (b *Broker[T]) Subscribers(name string) int {
	t, ok := b.topics.Get(name)
	if !ok {
		return 0
	}
	return t.subscriptions.Len()
}

// Topics returns the names of the topics that have at least one subscription.
func (b *Broker[T]) Topics() []string {
	var names []string
	for _, name := range b.topics.Names() {
		if b.Subscribers(name) > 0 {
			names = append(names, name)
		}
	}
	return names
}

// Close ends every subscription and rejects further Subscribe and Publish calls.
// Calling Close more than once is safe.
func (b *Broker[T]) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	var subs []*Subscription[T]
	b.topics.Range(func(_ string, t *topic[T]) bool {
		t.subscriptions.Range(func(_ string, sub *Subscription[T]) bool {
			subs = append(subs, sub)
			return true
		})
		return true
	})
	for _, sub := range subs {
		sub.Close()
	}
	b.log.Debug("broker closed", slog.Int("subscriptions", len(subs)))
	return nil
}
