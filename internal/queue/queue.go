package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/gammazero/deque"
	"go.uber.org/atomic"
)

var (
	// ErrClosed is returned by Next once the queue has been closed.
	ErrClosed = errors.New("queue: closed")

	// ErrConcurrentNext is returned when Next is called while another Next on the
	// same queue is still pending.
	ErrConcurrentNext = errors.New("queue: concurrent consumption not supported")
)

// Policy decides what happens to a push when a bounded queue is full.
type Policy int

const (
	// DropOldest discards the oldest buffered value to make room.
	DropOldest Policy = iota
	// DropNewest rejects the value being pushed.
	DropNewest
)

func (p Policy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	default:
		return "unknown"
	}
}

// ParsePolicy maps the textual form of a policy back to its value.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "drop-oldest":
		return DropOldest, nil
	case "drop-newest":
		return DropNewest, nil
	default:
		return DropOldest, errors.New("queue: unknown overflow policy " + s)
	}
}

// Option configures a Queue.
type Option func(*settings)

type settings struct {
	capacity int
	policy   Policy
}

// WithCapacity bounds the number of buffered values. Zero or less means unbounded.
func WithCapacity(n int) Option {
	return func(s *settings) {
		if n < 0 {
			n = 0
		}
		s.capacity = n
	}
}

// WithPolicy sets the overflow policy used once a bounded queue is full.
func WithPolicy(p Policy) Option {
	return func(s *settings) {
		s.policy = p
	}
}

// Queue is an ordered buffer of pending values for exactly one consumer.
//
// Values come out of Next in the order they were pushed. A consumer that finds
// the queue empty is suspended until a value arrives or the queue is closed.
type Queue[T any] struct {
	mu     sync.Mutex
	buf    deque.Deque[T]
	signal chan struct{}
	done   chan struct{}
	closed bool

	busy atomic.Bool

	capacity int
	policy   Policy
}

// New creates an empty queue, unbounded unless WithCapacity says otherwise.
func New[T any](options ...Option) *Queue[T] {
	var s settings
	for _, o := range options {
		o(&s)
	}
	return &Queue[T]{
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		capacity: s.capacity,
		policy:   s.policy,
	}
}

// Push appends v and wakes a suspended consumer.
// It reports false when v was not accepted, either because the queue is closed or
// because it is full and the policy is DropNewest.
// With DropOldest on a full queue v is accepted and the oldest value is evicted;
// evicted is true in that case.
func (q *Queue[T]) Push(v T) (accepted, evicted bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false, false
	}
	if q.capacity > 0 && q.buf.Len() >= q.capacity {
		if q.policy == DropNewest {
			q.mu.Unlock()
			return false, false
		}
		q.buf.PopFront()
		evicted = true
	}
	q.buf.PushBack(v)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true, evicted
}

// Next returns the oldest buffered value, waiting for one if the queue is empty.
//
// It returns ErrClosed once the queue is closed, even when values were still
// buffered at that point. A cancelled ctx returns ctx.Err() and leaves the queue
// untouched.
func (q *Queue[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if !q.busy.CompareAndSwap(false, true) {
		return zero, ErrConcurrentNext
	}
	defer q.busy.Store(false)

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return zero, ErrClosed
		}
		if q.buf.Len() > 0 {
			v := q.buf.PopFront()
			q.mu.Unlock()
			return v, nil
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-q.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Close ends the queue. Buffered values are discarded and a pending Next
// returns ErrClosed. Calling Close more than once is safe.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.buf.Clear()
	close(q.done)
}

// Len returns the number of buffered values.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.Len()
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Done is closed when the queue is closed.
func (q *Queue[T]) Done() <-chan struct{} {
	return q.done
}
