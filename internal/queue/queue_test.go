package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestQueue(t *testing.T) {
	t.Run("returns values in push order", func(t *testing.T) {
		q := New[int]()
		for i := 0; i < 100; i++ {
			accepted, _ := q.Push(i)
			require.True(t, accepted)
		}
		assert.Equal(t, 100, q.Len())

		for i := 0; i < 100; i++ {
			v, err := q.Next(context.Background())
			require.NoError(t, err)
			assert.Equal(t, i, v)
		}
		assert.Equal(t, 0, q.Len())
	})

	t.Run("next waits for a push", func(t *testing.T) {
		q := New[string]()
		got := make(chan string, 1)
		go func() {
			v, err := q.Next(context.Background())
			if err == nil {
				got <- v
			}
			close(got)
		}()

		time.Sleep(20 * time.Millisecond)
		q.Push("hello")

		select {
		case v := <-got:
			assert.Equal(t, "hello", v)
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for value")
		}
	})

	t.Run("close wakes a pending next", func(t *testing.T) {
		q := New[int]()
		errc := make(chan error, 1)
		go func() {
			_, err := q.Next(context.Background())
			errc <- err
		}()

		time.Sleep(20 * time.Millisecond)
		q.Close()

		select {
		case err := <-errc:
			assert.ErrorIs(t, err, ErrClosed)
		case <-time.After(2 * time.Second):
			t.Fatal("next was not woken by close")
		}
	})

	t.Run("next after close ends immediately", func(t *testing.T) {
		q := New[int]()
		q.Push(1)
		q.Close()
		q.Close()

		_, err := q.Next(context.Background())
		assert.ErrorIs(t, err, ErrClosed)
		assert.True(t, q.Closed())
		assert.Equal(t, 0, q.Len())
	})

	t.Run("push after close is dropped", func(t *testing.T) {
		q := New[int]()
		q.Close()
		accepted, evicted := q.Push(1)
		assert.False(t, accepted)
		assert.False(t, evicted)
	})

	t.Run("context cancellation leaves queue usable", func(t *testing.T) {
		q := New[int]()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := q.Next(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, q.Closed())

		q.Push(7)
		v, err := q.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("rejects concurrent next", func(t *testing.T) {
		q := New[int]()
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, err := q.Next(context.Background()); err == ErrClosed {
					return
				}
			}
		}()

		assert.Eventually(t, func() bool {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
			defer cancel()
			_, err := q.Next(ctx)
			return err == ErrConcurrentNext
		}, time.Second, time.Millisecond)

		q.Close()
		wg.Wait()
	})
}

func TestQueueOverflow(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		want    []int
		evicted int
		dropped int
	}{
		{"drop oldest keeps the newest values", DropOldest, []int{2, 3, 4}, 2, 0},
		{"drop newest keeps the oldest values", DropNewest, []int{0, 1, 2}, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New[int](WithCapacity(3), WithPolicy(tt.policy))
			var evicted, dropped int
			for i := 0; i < 5; i++ {
				accepted, ev := q.Push(i)
				if !accepted {
					dropped++
				}
				if ev {
					evicted++
				}
			}
			assert.Equal(t, tt.evicted, evicted)
			assert.Equal(t, tt.dropped, dropped)

			var got []int
			for q.Len() > 0 {
				v, err := q.Next(context.Background())
				require.NoError(t, err)
				got = append(got, v)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("drop-newest")
	require.NoError(t, err)
	assert.Equal(t, DropNewest, p)
	assert.Equal(t, "drop-newest", p.String())

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DropOldest, p)

	_, err = ParsePolicy("block")
	assert.Error(t, err)
}
