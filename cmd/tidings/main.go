// Command tidings replays one post update end to end: every configured session
// resolves its provider twice, subscribes for post updates, and a simulated
// producer publishes a single update after a delay.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/casualjim/tidings"
	"github.com/casualjim/tidings/events"
	"github.com/casualjim/tidings/internal/config"
	"github.com/casualjim/tidings/internal/consolefmt"
	"github.com/casualjim/tidings/pkg/slogx"
	"github.com/casualjim/tidings/posts"
	"github.com/casualjim/tidings/producer"
	"github.com/casualjim/tidings/pubsub"
	"github.com/casualjim/tidings/stream"
	_ "github.com/joho/godotenv/autoload"
	"github.com/phsym/zeroslog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"
)

func setupLogging(level slog.Level) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: level}),
	))
}

func main() {
	app := cli.NewApp()
	app.Name = "tidings"
	app.Usage = "publish a post update and watch every session receive it"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "path to a config file",
			EnvVar: "TIDINGS_CONFIG",
		},
		cli.DurationFlag{
			Name:  "delay",
			Usage: "how long the producer waits before publishing",
		},
		cli.StringSliceFlag{
			Name:  "session",
			Usage: "session key to attach, may be repeated",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("tidings failed", slogx.Error(err))
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	v := config.New()
	if c.IsSet("delay") {
		v.Set(config.KeyProducerDelay, c.Duration("delay"))
	}
	if c.IsSet("session") {
		v.Set(config.KeySessions, c.StringSlice("session"))
	}
	if c.IsSet("log-level") {
		v.Set(config.KeyLogLevel, c.String("log-level"))
	}
	cfg, err := config.Load(v, c.String("config"))
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	hub, err := tidings.New(
		pubsub.WithQueueCapacity(cfg.QueueCapacity),
		pubsub.WithOverflowPolicy(cfg.QueueOverflow),
		pubsub.WithMetrics(registry),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := hub.Close(); err != nil {
			slog.Error("failed to close hub", slogx.Error(err))
		}
	}()

	var wg sync.WaitGroup
	consoles := make([]*consolefmt.Console[posts.Post], 0, len(cfg.Sessions))
	for _, key := range cfg.Sessions {
		console, err := attach(ctx, hub, key, &wg)
		if err != nil {
			return err
		}
		consoles = append(consoles, console)
	}

	producer.After[posts.Post](cfg.ProducerDelay, hub.Broker(), posts.TopicPostUpdate, posts.Post{
		Author:  cfg.ProducerAuthor,
		Comment: cfg.ProducerText,
	}, nil)

	waitCtx, cancel := context.WithTimeout(ctx, cfg.ProducerDelay+cfg.ConsumeTimeout)
	defer cancel()
	for _, console := range consoles {
		select {
		case <-console.Received():
		case <-waitCtx.Done():
			return fmt.Errorf("waiting for post update: %w", waitCtx.Err())
		}
	}

	for _, key := range cfg.Sessions {
		if err := hub.EndSession(ctx, key); err != nil {
			return err
		}
	}
	if err := hub.Broker().Close(); err != nil {
		return err
	}
	wg.Wait()
	return reportMetrics(registry)
}

// attach resolves the provider of a session the way a resolver does, then
// forwards its post updates to the console until the session ends.
func attach(ctx context.Context, hub *tidings.Hub, key string, wg *sync.WaitGroup) (*consolefmt.Console[posts.Post], error) {
	for i := 0; i < 2; i++ {
		p, err := hub.Sessions().Get(ctx, key)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "resolved provider", slogx.Session(key), slog.Int64("instance", p.InstanceID()))
	}

	p, err := hub.Sessions().Get(ctx, key)
	if err != nil {
		return nil, err
	}
	sub, err := p.SubscribeForPostUpdate(ctx)
	if err != nil {
		return nil, err
	}

	console := consolefmt.New[posts.Post](os.Stdout, key)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer sub.Close()
		hook := events.CompositeHook[posts.Post]{console, events.LoggingHook[posts.Post](nil)}
		if err := stream.Forward[posts.Post](ctx, sub, hook); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("stream failed", slogx.Session(key), slogx.Error(err))
		}
	}()
	return console, nil
}

func reportMetrics(registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			}
			slog.Debug("metric", slog.String("name", mf.GetName()), slog.Float64("value", value))
		}
	}
	return nil
}
