package tidings

import (
	"context"
	"errors"
	"fmt"

	"github.com/casualjim/tidings/posts"
	"github.com/casualjim/tidings/pubsub"
	"github.com/casualjim/tidings/session"
)

// Hub owns the process-wide broker and the session cache built on it.
type Hub struct {
	broker   *pubsub.Broker[posts.Post]
	sessions *session.Provider[*posts.Provider]
}

// New builds the hub. options configure the broker.
func New(options ...pubsub.Option) (*Hub, error) {
	broker, err := pubsub.New[posts.Post](options...)
	if err != nil {
		return nil, fmt.Errorf("tidings: %w", err)
	}
	return &Hub{
		broker:   broker,
		sessions: posts.NewSessions(broker),
	}, nil
}

// Broker returns the process-wide broker.
func (h *Hub) Broker() *pubsub.Broker[posts.Post] {
	return h.broker
}

// Sessions returns the per-session provider cache.
func (h *Hub) Sessions() *session.Provider[*posts.Provider] {
	return h.sessions
}

// EndSession releases the provider of a session that went away.
func (h *Hub) EndSession(ctx context.Context, key string) error {
	return h.sessions.End(ctx, key)
}

// Close ends every live session and then the broker.
func (h *Hub) Close() error {
	ctx := context.Background()
	var errs []error
	for _, key := range h.sessions.Keys() {
		errs = append(errs, h.sessions.End(ctx, key))
	}
	errs = append(errs, h.broker.Close())
	return errors.Join(errs...)
}
