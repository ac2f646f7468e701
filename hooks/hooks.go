// Package hooks provides a small observer registry. The server exposes
// one registry per lifecycle event (connect, disconnect, join, part,
// message delivery, mode changes, raw commands) and runs the observers
// synchronously after the corresponding state transition.
package hooks

import (
	"fmt"
	"log"
	"reflect"
	"runtime"
	"sort"
	"sync"
)

// Hook is an observer for one event type. A non-nil error is logged
// and does not stop the remaining observers.
type Hook[T any] func(event T) error

type hookInfo[T any] struct {
	name     string
	hook     Hook[T]
	priority int64
}

// Registry holds the observers for a single event type.
type Registry[T any] struct {
	mu    sync.RWMutex
	hooks []hookInfo[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Register adds an observer with default priority (0).
func (r *Registry[T]) Register(hook Hook[T]) {
	r.RegisterWithPriority(hook, 0)
}

// RegisterWithPriority adds an observer with the given priority. Lower
// values run first, like Unix nice.
func (r *Registry[T]) RegisterWithPriority(hook Hook[T], priority int64) {
	name := runtime.FuncForPC(reflect.ValueOf(hook).Pointer()).Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hookInfo[T]{name: name, hook: hook, priority: priority})
}

// Run invokes every observer in priority order with the given event.
// A panicking or failing observer is logged and skipped so that one
// observer cannot break the others or the caller.
func (r *Registry[T]) Run(event T) {
	r.mu.RLock()
	hooks := make([]hookInfo[T], len(r.hooks))
	copy(hooks, r.hooks)
	r.mu.RUnlock()

	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].priority < hooks[j].priority
	})

	for _, info := range hooks {
		if err := runOne(info, event); err != nil {
			log.Printf("hook %s: %v", info.name, err)
		}
	}
}

func runOne[T any](info hookInfo[T], event T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return info.hook(event)
}

// Count returns the number of registered observers.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// Clear removes all observers.
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = nil
}
