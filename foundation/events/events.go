// Package events fans node activity out to streaming subscribers.
package events

import (
	"fmt"
	"sync"
)

// subscriberBuffer is the per-subscriber queue depth. A subscriber that
// falls further behind than this loses messages rather than stalling
// the node.
const subscriberBuffer = 100

// Events delivers node activity messages to any number of subscribers,
// each identified by a unique id.
type Events struct {
	mu   sync.Mutex
	subs map[string]chan string
}

// New constructs an empty subscriber set.
func New() *Events {
	return &Events{
		subs: make(map[string]chan string),
	}
}

// Subscribe registers an id and returns the channel its messages will
// arrive on. Subscribing an id twice returns the original channel.
func (evt *Events) Subscribe(id string) chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.subs[id]; exists {
		return ch
	}

	ch := make(chan string, subscriberBuffer)
	evt.subs[id] = ch
	return ch
}

// Unsubscribe removes an id and closes its channel.
func (evt *Events) Unsubscribe(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("subscriber %q does not exist", id)
	}

	delete(evt.subs, id)
	close(ch)
	return nil
}

// Send formats a message and offers it to every subscriber. A
// subscriber with a full queue is skipped, never waited on.
func (evt *Events) Send(v string, args ...any) {
	msg := v
	if len(args) > 0 {
		msg = fmt.Sprintf(v, args...)
	}

	evt.mu.Lock()
	defer evt.mu.Unlock()

	for _, ch := range evt.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Shutdown closes every subscriber channel and empties the set.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.subs {
		delete(evt.subs, id)
		close(ch)
	}
}
