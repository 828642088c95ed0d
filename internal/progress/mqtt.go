package progress

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTOptions configures the broker connection of an MQTT reporter.
type MQTTOptions struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	// Timeout bounds how long Report waits for a publish to leave;
	// 100ms when zero.
	Timeout time.Duration
	Logger  *slog.Logger
}

const connectTimeout = 5 * time.Second

// MQTT publishes every update as JSON with QoS 0.
type MQTT struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
	logger  *slog.Logger
}

// DialMQTT connects to the broker and returns a reporter publishing to
// opts.Topic.
func DialMQTT(opts MQTTOptions) (*MQTT, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("mqtt: broker is required")
	}

	options := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetConnectTimeout(connectTimeout)
	client := mqtt.NewClient(options)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", opts.Broker, err)
	}
	return NewMQTT(client, opts.Topic, opts.Timeout, opts.Logger), nil
}

// NewMQTT wraps an already connected client.
func NewMQTT(client mqtt.Client, topic string, timeout time.Duration, logger *slog.Logger) *MQTT {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	return &MQTT{client: client, topic: topic, timeout: timeout, logger: logger}
}

func (m *MQTT) Report(u Update) {
	b, err := json.Marshal(u)
	if err != nil {
		m.logger.Warn("mqtt: marshal update", "err", err)
		return
	}
	token := m.client.Publish(m.topic, 0, false, b)
	if !token.WaitTimeout(m.timeout) {
		m.logger.Debug("mqtt: publish still pending", "topic", m.topic, "percent", u.Percent)
		return
	}
	if err := token.Error(); err != nil {
		m.logger.Warn("mqtt: publish failed", "topic", m.topic, "err", err)
	}
}

// Close disconnects from the broker, giving in-flight messages a moment to
// leave.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
