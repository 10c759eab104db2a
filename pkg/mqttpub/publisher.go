// Package mqttpub mirrors amplifier events onto an MQTT broker so home
// automation and station dashboards can follow the amplifier.
package mqttpub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
	"github.com/dougsko/ampd/pkg/logging"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config selects the broker and topic prefix
type Config struct {
	Broker   string
	Port     int
	Topic    string
	ClientID string
	Username string
	Password string
}

// publisher is the part of mqtt.Client the bridge uses
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher forwards session events to MQTT topics under a prefix:
// <prefix>/connection, /banner, /status, /trip, /ptt and /response.
type Publisher struct {
	cfg    Config
	client mqtt.Client
	pub    publisher
}

// New creates a publisher; call Connect before events arrive
func New(cfg Config) *Publisher {
	return &Publisher{cfg: cfg}
}

// Connect establishes the broker connection
func (p *Publisher) Connect() error {
	opts := mqtt.NewClientOptions()
	brokerURL := fmt.Sprintf("tcp://%s:%d", p.cfg.Broker, p.cfg.Port)
	opts.AddBroker(brokerURL)
	opts.SetClientID(p.cfg.ClientID)
	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}

	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)

	// Retained offline marker for when ampd disappears
	opts.SetWill(p.topic("connection"), `{"connected":false,"error":"ampd offline"}`, 1, true)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logging.Info("mqtt", "connected to broker", map[string]interface{}{"broker": brokerURL})
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logging.Warn("mqtt", "connection lost, will reconnect", map[string]interface{}{"error": err.Error()})
	})

	p.client = mqtt.NewClient(opts)
	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	p.pub = p.client
	return nil
}

// Close disconnects from the broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

func (p *Publisher) topic(suffix string) string {
	return p.cfg.Topic + "/" + suffix
}

// HandleEvent publishes one event. Log events are not forwarded.
func (p *Publisher) HandleEvent(ev amp.Event) error {
	if p.pub == nil {
		return nil
	}

	var (
		suffix   string
		retained bool
		payload  interface{}
	)

	switch ev.Type {
	case amp.EventConnection:
		suffix, retained, payload = "connection", true, ev.Connection
	case amp.EventBanner:
		suffix, retained, payload = "banner", true, map[string]string{"banner": ev.Line}
	case amp.EventStatus:
		suffix, retained, payload = "status", true, ev.Status
	case amp.EventTrip:
		suffix, payload = "trip", map[string]string{"cause": ev.Cause}
	case amp.EventPTT:
		suffix, retained, payload = "ptt", true, map[string]string{"ptt": ev.PTT}
	case amp.EventResponse:
		suffix, payload = "response", map[string]string{"line": ev.Line}
	default:
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.Type, err)
	}

	topic := p.topic(suffix)
	token := p.pub.Publish(topic, 0, retained, data)

	// Delivery is checked elsewhere so other subscribers are not held up
	go func() {
		if token.WaitTimeout(10*time.Second) && token.Error() != nil {
			logging.Warn("mqtt", "publish failed", map[string]interface{}{
				"topic": topic,
				"error": token.Error().Error(),
			})
		}
	}()
	return nil
}
