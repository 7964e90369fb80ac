// Package session keeps one lazily built instance per session key.
//
// A Provider is the explicit form of a session-scoped dependency: callers ask it
// for the instance belonging to a session on every use instead of constructing
// one themselves, and all lookups for the same key while the session lives see
// the same instance.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/casualjim/tidings/internal/registry"
	"github.com/casualjim/tidings/pkg/slogx"
)

// ErrEmptyKey is returned when a lookup is made without a session key.
var ErrEmptyKey = errors.New("session: key is required")

// Factory builds the instance for a session.
type Factory[T any] func(ctx context.Context, key string) (T, error)

// Ender is implemented by instances that want to know when their session ends.
type Ender interface {
	OnDisconnect(context.Context)
}

// Provider caches one instance per session key.
type Provider[T any] struct {
	factory  Factory[T]
	sessions registry.Registry[*entry[T]]
	log      *slog.Logger

	// removals serialises every path that takes an entry out of sessions, so a
	// compare-then-delete cannot evict an entry added after the compare.
	removals sync.Mutex
}

type entry[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newEntry[T any]() *entry[T] {
	return &entry[T]{done: make(chan struct{})}
}

// New creates a provider that builds instances with factory.
func New[T any](factory Factory[T]) *Provider[T] {
	return &Provider[T]{
		factory:  factory,
		sessions: registry.New[*entry[T]](),
		log:      slogx.Component(nil, "session"),
	}
}

// Get returns the instance for key, building it on the first call.
//
// The factory runs at most once per key even when Get is called concurrently;
// every concurrent caller waits for that one construction and receives its
// result. A failed construction is not cached, so the next Get tries again.
func (p *Provider[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	if key == "" {
		return zero, ErrEmptyKey
	}

	e, _ := p.sessions.GetOrAdd(key, newEntry[T])
	e.once.Do(func() { p.build(ctx, key, e) })
	if e.err != nil {
		return zero, fmt.Errorf("session: create instance for %q: %w", key, e.err)
	}
	return e.value, nil
}

// build runs the factory for e. On failure e is unlinked while it is still the
// registered entry, so only callers already holding it see the error.
func (p *Provider[T]) build(ctx context.Context, key string, e *entry[T]) {
	defer func() {
		defer close(e.done)
		if r := recover(); r != nil {
			e.err = fmt.Errorf("factory panicked: %v", r)
		}
		if e.err != nil {
			p.unlink(key, e)
			p.log.WarnContext(ctx, "failed to create session instance", slogx.Session(key), slogx.Error(e.err))
			return
		}
		p.log.DebugContext(ctx, "session instance created", slogx.Session(key))
	}()
	e.value, e.err = p.factory(ctx, key)
}

// unlink removes key only while it still maps to e. A session ended and
// restarted during a failed construction keeps its new entry.
func (p *Provider[T]) unlink(key string, e *entry[T]) {
	p.removals.Lock()
	defer p.removals.Unlock()
	if cur, ok := p.sessions.Get(key); ok && cur == e {
		p.sessions.Del(key)
	}
}

// Lookup returns the instance for key without creating one.
func (p *Provider[T]) Lookup(key string) (T, bool) {
	var zero T
	e, ok := p.sessions.Get(key)
	if !ok {
		return zero, false
	}
	// Wait out a construction that is still running.
	<-e.done
	if e.err != nil {
		return zero, false
	}
	return e.value, true
}

// End drops the instance of a finished session. If the instance implements
// Ender or io.Closer it is told about it. Ending an unknown session does nothing.
func (p *Provider[T]) End(ctx context.Context, key string) error {
	p.removals.Lock()
	e, ok := p.sessions.Take(key)
	p.removals.Unlock()
	if !ok {
		return nil
	}
	<-e.done
	if e.err != nil {
		return nil
	}

	p.log.DebugContext(ctx, "session ended", slogx.Session(key))
	var instance any = e.value
	if ender, ok := instance.(Ender); ok {
		ender.OnDisconnect(ctx)
	}
	if closer, ok := instance.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("session: close instance for %q: %w", key, err)
		}
	}
	return nil
}

// Len returns the number of live sessions.
func (p *Provider[T]) Len() int {
	return p.sessions.Len()
}

// Keys returns the keys of the live sessions in lexical order.
func (p *Provider[T]) Keys() []string {
	return p.sessions.Names()
}
