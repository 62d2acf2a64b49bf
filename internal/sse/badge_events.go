// Package sse broadcasts live badge-list updates to subscribed clients.
// There is no diffing contract: every underlying change pushes the full
// current list and consumers re-render from it.
package sse

import (
	"sync"

	"ms-badging/internal/models"
)

// BadgeEventEmitter manages per-event subscriber channels.
type BadgeEventEmitter struct {
	mu      sync.RWMutex
	clients map[string][]chan []models.Badge
}

func NewBadgeEventEmitter() *BadgeEventEmitter {
	return &BadgeEventEmitter{
		clients: make(map[string][]chan []models.Badge),
	}
}

// Subscribe registers a listener for one event's badge list. The caller
// must invoke the returned unsubscribe func on teardown; a forgotten
// handle leaks a standing listener.
func (e *BadgeEventEmitter) Subscribe(eventID string) (<-chan []models.Badge, func()) {
	ch := make(chan []models.Badge, 10)

	e.mu.Lock()
	e.clients[eventID] = append(e.clients[eventID], ch)
	e.mu.Unlock()

	unsubscribe := func() {
		e.remove(eventID, ch)
	}
	return ch, unsubscribe
}

// Emit pushes the full badge list to every subscriber of the event.
// Sends are non-blocking: a slow client misses an update rather than
// stalling the emitter.
func (e *BadgeEventEmitter) Emit(eventID string, badges []models.Badge) {
	e.mu.RLock()
	clients := e.clients[eventID]
	e.mu.RUnlock()

	for _, ch := range clients {
		select {
		case ch <- badges:
		default:
		}
	}
}

func (e *BadgeEventEmitter) remove(eventID string, target chan []models.Badge) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[eventID]
	for i, ch := range clients {
		if ch == target {
			e.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(e.clients[eventID]) == 0 {
		delete(e.clients, eventID)
	}
}

// SubscriberCount reports the number of active listeners for an event.
func (e *BadgeEventEmitter) SubscriberCount(eventID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[eventID])
}
