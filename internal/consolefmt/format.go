// Package consolefmt renders delivered events on a terminal. It is the demo
// binary's stand-in for a real transport.
package consolefmt

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/casualjim/tidings/events"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"
)

// Console is an events.Hook that prints every event as a colored line followed
// by its JSON wire form.
type Console[T any] struct {
	mu       sync.Mutex
	w        io.Writer
	label    string
	received chan events.Event[T]
}

// New returns a console hook writing to w. label prefixes every line, typically
// the session the stream belongs to.
func New[T any](w io.Writer, label string) *Console[T] {
	return &Console[T]{
		w:        w,
		label:    label,
		received: make(chan events.Event[T], 1),
	}
}

// Received yields the first event printed, then nothing.
func (c *Console[T]) Received() <-chan events.Event[T] {
	return c.received
}

func (c *Console[T]) OnEvent(_ context.Context, e events.Event[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.w, "%s %s %v\n", color.MagentaString(c.label), color.CyanString(e.Topic), e.Payload)
	if data, err := json.Marshal(e); err == nil {
		fmt.Fprintln(c.w, string(data))
	}

	select {
	case c.received <- e:
	default:
	}
}

func (c *Console[T]) OnError(_ context.Context, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n", color.MagentaString(c.label), color.RedString("error: %v", err))
}

func (c *Console[T]) OnClose(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n", color.MagentaString(c.label), color.YellowString("stream closed"))
}
