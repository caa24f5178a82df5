package services

import (
	"sync"
	"time"
)

// GraphState describes where a collection is in its build lifecycle
type GraphState string

const (
	GraphStateIdle       GraphState = "idle"
	GraphStateOrganizing GraphState = "organizing"
	GraphStateReady      GraphState = "ready"
)

// StatusEvent tells subscribers the collection changed state, so the
// presentation layer can show a "still organizing" indicator during
// background recomputation
type StatusEvent struct {
	Collection string     `json:"collection"`
	State      GraphState `json:"state"`
	Version    uint64     `json:"version"`
	At         time.Time  `json:"at"`
}

// Notifier fans status events out to in-process subscribers. Sends never
// block a build: a subscriber that falls behind loses intermediate events.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan StatusEvent
}

// NewNotifier creates a notifier
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan StatusEvent)}
}

// Subscribe registers a subscriber and returns its channel plus an
// unsubscribe function
func (n *Notifier) Subscribe() (<-chan StatusEvent, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan StatusEvent, 16)
	n.subs[id] = ch

	unsubscribe := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, unsubscribe
}

// Publish delivers an event to every subscriber without blocking
func (n *Notifier) Publish(evt StatusEvent) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
