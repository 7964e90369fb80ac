// Package pubsub implements the in-process publish/subscribe broker.
//
// One Broker is meant to live for the whole process. Producers call Publish with
// a topic name and a payload; every subscription currently registered under that
// topic gets its own copy of the resulting event appended to its queue. Consumers
// pull from their Subscription with Next, or range over All.
//
// Guarantees:
//   - Per subscription, events arrive in publish order and are never duplicated.
//   - Subscriptions are isolated: consuming from one never drains another.
//   - Publishing to a topic with no subscribers is a no-op.
//   - Publish works on a snapshot of the subscriber set taken when it starts, so
//     a subscription created concurrently may miss that event, and one closed
//     before its turn is skipped.
//   - Close is synchronous: a Next waiting on the subscription returns
//     ErrEndOfStream promptly.
//
// Example usage:
//
//	broker, err := pubsub.New[Post]()
//	if err != nil {
//	    return err
//	}
//	sub, err := broker.Subscribe(ctx, "POST_UPDATE")
//	if err != nil {
//	    return err
//	}
//	defer sub.Close()
//
//	for event := range sub.All(ctx) {
//	    fmt.Println(event.Payload)
//	}
package pubsub
