package amp

import (
	"fmt"
	"sync"

	"github.com/dougsko/ampd/pkg/logging"
	"github.com/google/uuid"
)

// Handler receives events from a Dispatcher. A session delivers from its
// own goroutine, so a slow handler delays later events but never the
// connection itself.
type Handler interface {
	HandleEvent(ev Event) error
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ev Event) error

// HandleEvent calls f(ev)
func (f HandlerFunc) HandleEvent(ev Event) error {
	return f(ev)
}

type subscriber struct {
	id      string
	name    string
	handler Handler
}

// Dispatcher delivers every event to all subscribers, synchronously and in
// order. A failing subscriber is logged and skipped; the rest still receive
// the event.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers []subscriber
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers h and returns an id for Unsubscribe. The name only
// appears in logs.
func (d *Dispatcher) Subscribe(name string, h Handler) string {
	id := uuid.NewString()

	d.mu.Lock()
	d.subscribers = append(d.subscribers, subscriber{id: id, name: name, handler: h})
	d.mu.Unlock()

	logging.Debugf("dispatch", "subscriber %s registered (%s)", name, id)
	return id
}

// Unsubscribe removes a subscriber; unknown ids are ignored
func (d *Dispatcher) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, s := range d.subscribers {
		if s.id == id {
			d.subscribers = append(d.subscribers[:i:i], d.subscribers[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscribers
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

// Dispatch delivers ev to every subscriber in registration order
func (d *Dispatcher) Dispatch(ev Event) {
	d.mu.RLock()
	subs := d.subscribers
	d.mu.RUnlock()

	for _, s := range subs {
		if err := deliver(s, ev); err != nil {
			logging.Warn("dispatch", "subscriber failed", map[string]interface{}{
				"subscriber": s.name,
				"event":      string(ev.Type),
				"error":      err.Error(),
			})
		}
	}
}

func deliver(s subscriber, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.handler.HandleEvent(ev)
}
