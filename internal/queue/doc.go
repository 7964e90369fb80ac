// Package queue provides the per-subscriber event buffer used by the broker.
//
// A Queue is written to by any number of publishers and read by exactly one
// consumer. Push never blocks: the buffer is unbounded by default, and a bounded
// queue applies its overflow Policy instead of waiting for room. Next is the only
// suspending operation; it waits until a value is pushed, the queue is closed, or
// the caller's context is done.
package queue
