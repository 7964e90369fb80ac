package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/casualjim/tidings/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(New(), "")
		require.NoError(t, err)
		assert.Equal(t, time.Second, cfg.ProducerDelay)
		assert.Equal(t, "nshaikhinurov", cfg.ProducerAuthor)
		assert.Equal(t, "Updated a post", cfg.ProducerText)
		assert.Equal(t, 0, cfg.QueueCapacity)
		assert.Equal(t, queue.DropOldest, cfg.QueueOverflow)
		assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
		assert.Equal(t, []string{"s1", "s2"}, cfg.Sessions)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("TIDINGS_PRODUCER_DELAY", "250ms")
		t.Setenv("TIDINGS_QUEUE_OVERFLOW", "drop-newest")
		t.Setenv("TIDINGS_QUEUE_CAPACITY", "16")
		t.Setenv("TIDINGS_LOG_LEVEL", "debug")

		cfg, err := Load(New(), "")
		require.NoError(t, err)
		assert.Equal(t, 250*time.Millisecond, cfg.ProducerDelay)
		assert.Equal(t, queue.DropNewest, cfg.QueueOverflow)
		assert.Equal(t, 16, cfg.QueueCapacity)
		assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	})

	t.Run("config file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "tidings.yaml")
		require.NoError(t, os.WriteFile(file, []byte("producer:\n  author: someone\nsessions: [alpha]\n"), 0o600))

		cfg, err := Load(New(), file)
		require.NoError(t, err)
		assert.Equal(t, "someone", cfg.ProducerAuthor)
		assert.Equal(t, "Updated a post", cfg.ProducerText)
		assert.Equal(t, []string{"alpha"}, cfg.Sessions)
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Setenv("TIDINGS_QUEUE_OVERFLOW", "block")
		_, err := Load(New(), "")
		assert.ErrorContains(t, err, "unknown overflow policy")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		v := New()
		v.Set(KeyProducerDelay, -time.Second)
		v.Set(KeyQueueCapacity, -1)
		_, err := Load(v, "")
		require.Error(t, err)
		assert.ErrorContains(t, err, KeyProducerDelay)
		assert.ErrorContains(t, err, KeyQueueCapacity)
	})
}
