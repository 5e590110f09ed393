// Package events carries the refresh signal between dashboard panels.
package events

import (
	"sync"

	"support-insights-go/internal/types"
)

// RefreshEvent announces that a new artifact finished ingestion.
type RefreshEvent struct {
	Source types.SourceType
}

type Handler func(RefreshEvent)

type subscription struct {
	id int
	h  Handler
}

// Bus is a synchronous broadcast channel. Publish invokes every current
// subscriber in registration order on the publishing goroutine.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h and returns a func that removes it. The returned
// func is idempotent.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *Bus) Publish(ev RefreshEvent) {
	b.mu.Lock()
	snapshot := make([]Handler, len(b.subs))
	for i, s := range b.subs {
		snapshot[i] = s.h
	}
	b.mu.Unlock()

	for _, h := range snapshot {
		h(ev)
	}
}

// Len is the number of live subscribers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
