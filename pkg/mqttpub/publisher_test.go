package mqttpub

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeBroker struct {
	mu  sync.Mutex
	got []published
}

func (f *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return doneToken{}
}

func newTestPublisher() (*Publisher, *fakeBroker) {
	broker := &fakeBroker{}
	p := New(Config{Topic: "shack/amp"})
	p.pub = broker
	return p, broker
}

func TestPublisherTopics(t *testing.T) {
	p, broker := newTestPublisher()

	events := []amp.Event{
		{Type: amp.EventConnection, Connection: &amp.ConnectionState{Connected: true}},
		{Type: amp.EventStatus, Status: amp.Status{"BAND": "14MHZ", "STATE": "RX"}},
		{Type: amp.EventTrip, Cause: "Overtemp"},
		{Type: amp.EventLog, Log: &amp.LogEntry{Level: amp.LogRX, Message: "ignored"}},
	}
	for _, ev := range events {
		require.NoError(t, p.HandleEvent(ev))
	}

	require.Len(t, broker.got, 3)
	assert.Equal(t, "shack/amp/connection", broker.got[0].topic)
	assert.True(t, broker.got[0].retained)
	assert.JSONEq(t, `{"connected":true}`, string(broker.got[0].payload))

	assert.Equal(t, "shack/amp/status", broker.got[1].topic)
	var status map[string]string
	require.NoError(t, json.Unmarshal(broker.got[1].payload, &status))
	assert.Equal(t, "14MHZ", status["BAND"])

	assert.Equal(t, "shack/amp/trip", broker.got[2].topic)
	assert.False(t, broker.got[2].retained)
	assert.JSONEq(t, `{"cause":"Overtemp"}`, string(broker.got[2].payload))
}

func TestPublisherNotConnected(t *testing.T) {
	p := New(Config{Topic: "amp"})
	assert.NoError(t, p.HandleEvent(amp.Event{Type: amp.EventTrip, Cause: "Overcurrent"}))
}
