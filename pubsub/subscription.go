package pubsub

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/casualjim/tidings/events"
	"github.com/casualjim/tidings/internal/queue"
)

// Subscription is the consumer side of one topic registration.
//
// It yields the events published to its topic after it was created, in publish
// order. The sequence is infinite until Close is called (or the context given to
// Subscribe is done) and cannot be restarted afterwards: subscribe again to
// resume receiving.
//
// A Subscription has a single consumer. Calling Next while another Next on the
// same subscription is waiting returns ErrConcurrentNext.
type Subscription[T any] struct {
	id     string
	topic  string
	queue  *queue.Queue[events.Event[T]]
	broker *Broker[T]

	closeOnce sync.Once
	mu        sync.Mutex
	stop      func() bool
}

// ID returns the unique id of the subscription.
func (s *Subscription[T]) ID() string {
	return s.id
}

// Topic returns the topic the subscription listens to.
func (s *Subscription[T]) Topic() string {
	return s.topic
}

// Next returns the oldest undelivered event, waiting for one when none is
// buffered. It returns ErrEndOfStream once the subscription is closed, and
// ctx.Err() when ctx is done first; in the latter case the subscription stays open.
func (s *Subscription[T]) Next(ctx context.Context) (events.Event[T], error) {
	e, err := s.queue.Next(ctx)
	if errors.Is(err, queue.ErrClosed) {
		return events.Event[T]{}, ErrEndOfStream
	}
	return e, err
}

// All returns the subscription as a sequence. Iteration stops when the
// subscription closes, when ctx is done, or when the loop breaks; breaking does
// not close the subscription.
func (s *Subscription[T]) All(ctx context.Context) iter.Seq[events.Event[T]] {
	return func(yield func(events.Event[T]) bool) {
		for {
			e, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Closed reports whether the subscription has ended.
func (s *Subscription[T]) Closed() bool {
	return s.queue.Closed()
}

// Done is closed when the subscription ends.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.queue.Done()
}

// Close unregisters the subscription from its broker and wakes a waiting Next.
// It is safe to call more than once and from any goroutine.
func (s *Subscription[T]) Close() {
	s.closeOnce.Do(func() {
		s.broker.remove(s)
		s.queue.Close()

		s.mu.Lock()
		stop := s.stop
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
	})
}

// bind attaches the function that detaches the subscription from its context.
func (s *Subscription[T]) bind(stop func() bool) {
	s.mu.Lock()
	s.stop = stop
	s.mu.Unlock()
	if s.queue.Closed() {
		stop()
	}
}
