package amp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherOrderAndIsolation(t *testing.T) {
	d := NewDispatcher()

	var got []string
	d.Subscribe("first", HandlerFunc(func(ev Event) error {
		got = append(got, "first:"+string(ev.Type))
		return nil
	}))
	d.Subscribe("failing", HandlerFunc(func(ev Event) error {
		return errors.New("boom")
	}))
	d.Subscribe("panicking", HandlerFunc(func(ev Event) error {
		panic("handler bug")
	}))
	d.Subscribe("last", HandlerFunc(func(ev Event) error {
		got = append(got, "last:"+string(ev.Type))
		return nil
	}))

	assert.NotPanics(t, func() {
		d.Dispatch(Event{Type: EventBanner})
		d.Dispatch(Event{Type: EventStatus})
	})

	assert.Equal(t, []string{
		"first:banner", "last:banner",
		"first:status", "last:status",
	}, got)
}

func TestDispatcherUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	calls := 0
	id := d.Subscribe("counter", HandlerFunc(func(ev Event) error {
		calls++
		return nil
	}))

	d.Dispatch(Event{Type: EventTrip})
	d.Unsubscribe(id)
	d.Unsubscribe("unknown")
	d.Dispatch(Event{Type: EventTrip})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, d.Len())
}
