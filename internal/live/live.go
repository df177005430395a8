// Package live implements push-based query results: a Hub registry that
// writers publish to after each commit, and Subscriptions that re-run their
// query on every publish and emit only when the result changed.
package live

import (
	"context"
	"reflect"
	"sync"
)

// Hub is the registry of live queries. The zero value is ready to use.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan struct{}
}

func (h *Hub) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[int]chan struct{})
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Publish wakes every subscriber. Wake-ups that have not been consumed yet
// coalesce into one.
func (h *Hub) Publish() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// subscribers reports how many queries are currently live.
func (h *Hub) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Subscription delivers successive results of a live query. The first value
// is the current snapshot; later values arrive only when the result changes.
// C is closed when the context is cancelled or the query fails.
type Subscription[T any] struct {
	c   chan T
	mu  sync.Mutex
	err error
}

// C returns the result channel.
func (s *Subscription[T]) C() <-chan T {
	return s.c
}

// Err reports the fault that ended the stream, if any. It is meaningful once
// C is closed.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription[T]) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Watch starts a live query. load runs once immediately and again after
// every Publish on h.
func Watch[T any](ctx context.Context, h *Hub, load func(context.Context) (T, error)) *Subscription[T] {
	sub := &Subscription[T]{c: make(chan T)}
	trigger, unsubscribe := h.subscribe()

	go func() {
		defer close(sub.c)
		defer unsubscribe()

		var last T
		sent := false
		for {
			v, err := load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					sub.fail(err)
				}
				return
			}

			if !sent || !sameResult(last, v) {
				select {
				case sub.c <- v:
				case <-ctx.Done():
					return
				}
				last, sent = v, true
			}

			select {
			case <-trigger:
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub
}

func sameResult(a, b any) bool {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Kind() == reflect.Slice && bv.Kind() == reflect.Slice && av.Len() == 0 && bv.Len() == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
