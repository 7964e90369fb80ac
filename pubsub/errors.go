package pubsub

import (
	"errors"

	"github.com/casualjim/tidings/internal/queue"
)

var (
	// ErrBrokerClosed is returned when operations are attempted on a closed broker.
	ErrBrokerClosed = errors.New("pubsub: broker is closed")

	// ErrEndOfStream is returned by Subscription.Next once the subscription is closed.
	ErrEndOfStream = errors.New("pubsub: end of stream")

	// ErrConcurrentNext is returned when Next is called on a subscription while
	// another Next on the same subscription is still waiting.
	ErrConcurrentNext = queue.ErrConcurrentNext
)
