// Package registry is a small concurrent name to value map shared by the
// broker's topic table and the session cache.
package registry

import (
	"sort"

	"github.com/alphadose/haxmap"
)

// Registry maps names to values and is safe for concurrent use.
type Registry[T any] interface {
	Get(name string) (T, bool)
	Add(name string, value T)
	// GetOrAdd returns the value stored under name, creating it with valueFn when
	// absent. loaded is true when the value already existed. valueFn may run more
	// than once under contention but only one result is ever stored.
	GetOrAdd(name string, valueFn func() T) (value T, loaded bool)
	// Take removes name and returns the value it held.
	Take(name string) (T, bool)
	Del(name string)
	Len() int
	Names() []string
	Range(fn func(name string, value T) bool)
}

type registry[T any] struct {
	values *haxmap.Map[string, T]
}

func New[T any]() Registry[T] {
	return &registry[T]{
		values: haxmap.New[string, T](),
	}
}

func (r *registry[T]) Get(name string) (T, bool) {
	return r.values.Get(name)
}

func (r *registry[T]) Add(name string, value T) {
	r.values.Set(name, value)
}

func (r *registry[T]) GetOrAdd(name string, valueFn func() T) (T, bool) {
	return r.values.GetOrCompute(name, valueFn)
}

func (r *registry[T]) Take(name string) (T, bool) {
	return r.values.GetAndDel(name)
}

func (r *registry[T]) Del(name string) {
	r.values.Del(name)
}

func (r *registry[T]) Len() int {
	return int(r.values.Len())
}

// Names returns the registered names in lexical order.
func (r *registry[T]) Names() []string {
	names := make([]string, 0, r.values.Len())
	r.values.ForEach(func(name string, _ T) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

func (r *registry[T]) Range(fn func(name string, value T) bool) {
	r.values.ForEach(fn)
}
