package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type instance struct {
	id           int64
	disconnected bool
	closed       bool
}

func (i *instance) OnDisconnect(context.Context) { i.disconnected = true }

func (i *instance) Close() error {
	i.closed = true
	return nil
}

func countingFactory(calls *atomic.Int64) Factory[*instance] {
	return func(context.Context, string) (*instance, error) {
		return &instance{id: calls.Inc()}, nil
	}
}

func TestProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("same key yields the same instance", func(t *testing.T) {
		var calls atomic.Int64
		p := New(countingFactory(&calls))

		first, err := p.Get(ctx, "s1")
		require.NoError(t, err)
		second, err := p.Get(ctx, "s1")
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, first.id, second.id)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("distinct keys yield distinct instances", func(t *testing.T) {
		var calls atomic.Int64
		p := New(countingFactory(&calls))

		s1, err := p.Get(ctx, "s1")
		require.NoError(t, err)
		s2, err := p.Get(ctx, "s2")
		require.NoError(t, err)

		assert.NotEqual(t, s1.id, s2.id)
		assert.Equal(t, 2, p.Len())
		assert.Equal(t, []string{"s1", "s2"}, p.Keys())
	})

	t.Run("concurrent lookups construct once", func(t *testing.T) {
		var calls atomic.Int64
		release := make(chan struct{})
		p := New(func(context.Context, string) (*instance, error) {
			<-release
			return &instance{id: calls.Inc()}, nil
		})

		const workers = 64
		got := make([]*instance, workers)
		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func(i int) {
				defer wg.Done()
				v, err := p.Get(ctx, "shared")
				assert.NoError(t, err)
				got[i] = v
			}(i)
		}
		close(release)
		wg.Wait()

		assert.Equal(t, int64(1), calls.Load())
		for _, v := range got {
			assert.Same(t, got[0], v)
		}
	})

	t.Run("lookup does not create", func(t *testing.T) {
		var calls atomic.Int64
		p := New(countingFactory(&calls))

		_, ok := p.Lookup("s1")
		assert.False(t, ok)
		assert.Equal(t, int64(0), calls.Load())

		created, err := p.Get(ctx, "s1")
		require.NoError(t, err)
		found, ok := p.Lookup("s1")
		require.True(t, ok)
		assert.Same(t, created, found)
	})

	t.Run("failed construction is retried", func(t *testing.T) {
		boom := errors.New("boom")
		var attempts atomic.Int64
		p := New(func(context.Context, string) (*instance, error) {
			if attempts.Inc() == 1 {
				return nil, boom
			}
			return &instance{id: 42}, nil
		})

		_, err := p.Get(ctx, "s1")
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 0, p.Len())

		v, err := p.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, int64(42), v.id)
	})

	t.Run("failed construction keeps a restarted session", func(t *testing.T) {
		boom := errors.New("boom")
		var calls atomic.Int64
		entered := make(chan struct{})
		release := make(chan struct{})
		p := New(func(context.Context, string) (*instance, error) {
			n := calls.Inc()
			if n == 1 {
				close(entered)
				<-release
				return nil, boom
			}
			return &instance{id: n}, nil
		})

		firstErr := make(chan error, 1)
		go func() {
			_, err := p.Get(ctx, "s1")
			firstErr <- err
		}()
		<-entered

		ended := make(chan error, 1)
		go func() { ended <- p.End(ctx, "s1") }()
		require.Eventually(t, func() bool { return p.Len() == 0 }, time.Second, time.Millisecond)

		restarted, err := p.Get(ctx, "s1")
		require.NoError(t, err)

		close(release)
		require.ErrorIs(t, <-firstErr, boom)
		require.NoError(t, <-ended)

		again, err := p.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Same(t, restarted, again)
		assert.Equal(t, int64(2), calls.Load())
		assert.Equal(t, 1, p.Len())
	})

	t.Run("panicking factory is reported", func(t *testing.T) {
		p := New(func(context.Context, string) (*instance, error) {
			panic("nope")
		})
		_, err := p.Get(ctx, "s1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "factory panicked")
		assert.Equal(t, 0, p.Len())
	})

	t.Run("empty key is rejected", func(t *testing.T) {
		var calls atomic.Int64
		p := New(countingFactory(&calls))
		_, err := p.Get(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("end releases the instance", func(t *testing.T) {
		var calls atomic.Int64
		p := New(countingFactory(&calls))

		first, err := p.Get(ctx, "s1")
		require.NoError(t, err)
		require.NoError(t, p.End(ctx, "s1"))
		require.NoError(t, p.End(ctx, "s1"))

		assert.True(t, first.disconnected)
		assert.True(t, first.closed)
		assert.Equal(t, 0, p.Len())

		second, err := p.Get(ctx, "s1")
		require.NoError(t, err)
		assert.NotEqual(t, first.id, second.id)
	})
}
