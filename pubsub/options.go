package pubsub

import (
	"log/slog"

	"github.com/casualjim/tidings/internal/queue"
	"github.com/fogfish/opts"
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the broker settings assembled from options.
type Config struct {
	queueCapacity  int
	overflowPolicy queue.Policy
	registerer     prometheus.Registerer
	logger         *slog.Logger
}

type Option = opts.Option[Config]

var (
	// WithQueueCapacity bounds every subscription queue. Zero keeps queues unbounded.
	WithQueueCapacity = opts.ForName[Config, int]("queueCapacity")

	// WithOverflowPolicy picks what a bounded queue does when it is full.
	WithOverflowPolicy = opts.ForName[Config, queue.Policy]("overflowPolicy")
)

// WithMetrics registers the broker's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return opts.Type[Config](func(c *Config) error {
		c.registerer = reg
		return nil
	})
}

// WithLogger sets the logger used by the broker. It defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return opts.Type[Config](func(c *Config) error {
		c.logger = logger
		return nil
	})
}

func (c Config) queueOptions() []queue.Option {
	return []queue.Option{
		queue.WithCapacity(c.queueCapacity),
		queue.WithPolicy(c.overflowPolicy),
	}
}
