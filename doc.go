/*
Package tidings is a small in-process notification layer: producers publish
named events, consumers attach to a topic and pull a live, ordered stream of
events until they disconnect.

The package ties together the pieces a server needs: one broker shared by the
whole process and a session cache that gives every session its own provider
and returns that same provider on every lookup.

# Basic Usage

	hub, err := tidings.New()
	if err != nil {
		return err
	}
	defer hub.Close()

	provider, err := hub.Sessions().Get(ctx, sessionKey)
	if err != nil {
		return err
	}
	sub, err := provider.SubscribeForPostUpdate(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	event, err := sub.Next(ctx)

Elsewhere, any producer announces a change:

	hub.Broker().Publish(ctx, posts.TopicPostUpdate, posts.Post{Author: "a", Comment: "c1"})

# Architecture

  - pubsub: the broker, topic registry and subscription handles
  - session: keyed get-or-create cache with at-most-once construction
  - events: the event envelope, its JSON form and the consumer hook
  - stream: drives a subscription into a hook, isolating consumer panics
  - posts: the post-update domain and its session-scoped provider
  - producer: a one-shot delayed publisher used by the demo

The cmd/tidings binary wires everything together and replays a single post
update end to end.
*/
package tidings
