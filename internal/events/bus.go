// Package events provides the in-process typed publish/subscribe channel
// that carries database and controller notifications to observers.
package events

import (
	"log"
	"sync"
)

// Bus delivers values of one event type to subscribed receivers.
// Delivery is synchronous, on the publisher's goroutine, in subscription
// order. A receiver that panics is logged and skipped; it never prevents
// delivery to the others and never propagates to the publisher.
type Bus[T any] struct {
	mu     sync.Mutex
	subs   []*subscriber[T]
	nextID int
}

type subscriber[T any] struct {
	id      int
	receive func(T)
}

// Subscription detaches one receiver from its bus.
type Subscription struct {
	cancel func()
}

// Unsubscribe removes the receiver. Safe to call more than once.
func (s *Subscription) Unsubscribe() { s.cancel() }

// NewBus creates an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{}
}

// Subscribe registers a receiver. Receivers run on the publisher's
// goroutine and must be fast and non-blocking.
func (b *Bus[T]) Subscribe(receive func(T)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &subscriber[T]{id: b.nextID, receive: receive}
	b.nextID++
	b.subs = append(b.subs, sub)

	id := sub.id
	return &Subscription{cancel: func() { b.remove(id) }}
}

func (b *Bus[T]) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers value to every currently subscribed receiver.
func (b *Bus[T]) Publish(value T) {
	b.mu.Lock()
	subs := make([]*subscriber[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		deliver(sub, value)
	}
}

func deliver[T any](sub *subscriber[T], value T) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[EVENTS] subscriber panicked: %v", r)
		}
	}()
	sub.receive(value)
}

// Count returns the current subscriber count.
func (b *Bus[T]) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
