// Package posts is the post-update domain: the payload producers publish when a
// post changes and the session-scoped provider resolvers use to reach it.
package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/casualjim/tidings/internal/registry"
	"github.com/casualjim/tidings/pkg/slogx"
	"github.com/casualjim/tidings/pubsub"
	"github.com/casualjim/tidings/session"
	"go.uber.org/atomic"
)

// TopicPostUpdate is the topic post changes are published to.
const TopicPostUpdate = "POST_UPDATE"

// ErrProviderClosed is returned when subscribing through a provider whose
// session has ended.
var ErrProviderClosed = errors.New("posts: provider closed")

// Post is the payload of a post update.
type Post struct {
	Author  string `json:"author"`
	Comment string `json:"comment"`
}

func (p Post) String() string {
	return fmt.Sprintf("%s: %s", p.Author, p.Comment)
}

// instanceIDs hands out provider ids. A counter rather than a random number so
// two sessions can never end up with the same id.
var instanceIDs atomic.Int64

// Provider is the per-session entry point to post updates.
type Provider struct {
	id      int64
	session string
	broker  *pubsub.Broker[Post]
	log     *slog.Logger

	// subs holds the subscriptions opened through this provider until they end.
	subs   registry.Registry[*pubsub.Subscription[Post]]
	closed atomic.Bool
}

// NewProvider builds the provider for one session on top of the process-wide broker.
func NewProvider(broker *pubsub.Broker[Post], sessionKey string) *Provider {
	id := instanceIDs.Inc()
	return &Provider{
		id:      id,
		session: sessionKey,
		broker:  broker,
		subs:    registry.New[*pubsub.Subscription[Post]](),
		log:     slogx.Component(nil, "posts").With(slogx.Session(sessionKey), slog.Int64("instance", id)),
	}
}

// InstanceID identifies this provider for as long as it lives.
func (p *Provider) InstanceID() int64 {
	return p.id
}

// Session returns the key of the session the provider belongs to.
func (p *Provider) Session() string {
	return p.session
}

// SubscribeForPostUpdate attaches a new subscription to TopicPostUpdate. The
// subscription ends when ctx is done, when it is closed, or when the provider
// is closed.
func (p *Provider) SubscribeForPostUpdate(ctx context.Context) (*pubsub.Subscription[Post], error) {
	if p.closed.Load() {
		return nil, ErrProviderClosed
	}
	sub, err := p.broker.Subscribe(ctx, TopicPostUpdate)
	if err != nil {
		return nil, fmt.Errorf("posts: subscribe for post update: %w", err)
	}
	p.prune()
	p.subs.Add(sub.ID(), sub)
	// Close may have swept subs before the Add landed.
	if p.closed.Load() {
		p.subs.Del(sub.ID())
		sub.Close()
		return nil, ErrProviderClosed
	}
	p.log.DebugContext(ctx, "subscribed for post update", slogx.Subscription(sub.ID()))
	return sub, nil
}

// Subscriptions reports how many subscriptions opened through p are still live.
func (p *Provider) Subscriptions() int {
	p.prune()
	return p.subs.Len()
}

func (p *Provider) prune() {
	var ended []string
	p.subs.Range(func(id string, sub *pubsub.Subscription[Post]) bool {
		if sub.Closed() {
			ended = append(ended, id)
		}
		return true
	})
	for _, id := range ended {
		p.subs.Del(id)
	}
}

// Close ends every subscription opened through p. The session cache calls it
// when the session ends. It is safe to call more than once.
func (p *Provider) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	var n int
	for _, id := range p.subs.Names() {
		if sub, ok := p.subs.Take(id); ok {
			sub.Close()
			n++
		}
	}
	p.log.Debug("provider closed", slog.Int("subscriptions", n))
	return nil
}

// PublishUpdate announces a change to a post.
func (p *Provider) PublishUpdate(ctx context.Context, post Post) error {
	if _, err := p.broker.Publish(ctx, TopicPostUpdate, post); err != nil {
		return fmt.Errorf("posts: publish update: %w", err)
	}
	return nil
}

// OnConnect is called once, right after the session cache built p.
func (p *Provider) OnConnect(ctx context.Context) {
	p.log.InfoContext(ctx, "session connected")
}

// OnDisconnect is called when the session ends, before Close releases the
// subscriptions p opened.
func (p *Provider) OnDisconnect(ctx context.Context) {
	p.log.InfoContext(ctx, "session disconnected")
}

// NewSessions returns the session cache that hands out one Provider per session.
func NewSessions(broker *pubsub.Broker[Post]) *session.Provider[*Provider] {
	return session.New(func(ctx context.Context, key string) (*Provider, error) {
		p := NewProvider(broker, key)
		p.OnConnect(ctx)
		return p, nil
	})
}
