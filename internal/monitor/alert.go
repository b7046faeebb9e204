package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/ironsheep/doc-tools-mcp/internal/config"
)

// LogAlerter writes alerts as warnings.
type LogAlerter struct {
	Logger *zap.Logger
}

// Alert implements Alerter.
func (l LogAlerter) Alert(_ context.Context, a Alert) error {
	if l.Logger == nil {
		return nil
	}
	l.Logger.Warn("io usage exceeded threshold",
		zap.String("alert_id", a.ID),
		zap.Int32("pid", a.PID),
		zap.Uint64("read_bytes", a.ReadBytes),
		zap.Uint64("write_bytes", a.WriteBytes),
		zap.Uint64("threshold", a.Threshold))
	return nil
}

// Publisher is the part of mqtt.Client the alerter needs.
type Publisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTAlerter publishes alerts as JSON to "<prefix>/alerts".
type MQTTAlerter struct {
	client  Publisher
	topic   string
	qos     byte
	timeout time.Duration
}

// NewMQTTAlerter returns an alerter publishing with QoS 1 through client.
func NewMQTTAlerter(client Publisher, prefix string) *MQTTAlerter {
	if prefix == "" {
		prefix = "doc-tools"
	}
	return &MQTTAlerter{
		client:  client,
		topic:   prefix + "/alerts",
		qos:     1,
		timeout: 2 * time.Second,
	}
}

// Topic returns the topic alerts are published to.
func (m *MQTTAlerter) Topic() string {
	return m.topic
}

// Alert implements Alerter.
func (m *MQTTAlerter) Alert(_ context.Context, a Alert) error {
	if m.client == nil || !m.client.IsConnected() {
		return errors.New("MQTT client not connected")
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling alert: %w", err)
	}

	token := m.client.Publish(m.topic, m.qos, false, payload)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("publishing to %s: timed out", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", m.topic, err)
	}
	return nil
}

// ConnectMQTT connects to the configured broker, waiting up to timeout.
func ConnectMQTT(cfg config.MQTTConfig, timeout time.Duration) (mqtt.Client, error) {
	if cfg.Broker == "" {
		return nil, errors.New("monitor.mqtt.broker is not set")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "doc-tools"
	}
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connecting to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Broker, err)
	}
	return client, nil
}
