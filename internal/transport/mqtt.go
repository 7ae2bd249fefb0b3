// v0
// internal/transport/mqtt.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"nrgchamp/cracfuzzy/internal/logging"
)

var ErrNotConnected = errors.New("broker not connected")

// mqttClient is the subset of mqtt.Client used here.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	IsConnectionOpen() bool
	Disconnect(quiesce uint)
}

// ConnectMQTT dials the broker with auto-reconnect enabled. onConnect runs
// after every (re)connection, which is where subscriptions are restored.
func ConnectMQTT(broker, clientID string, log *slog.Logger, onConnect func(mqtt.Client)) (mqtt.Client, error) {
	if log == nil {
		log = logging.Discard()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetConnectTimeout(5 * time.Second).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn("mqtt_connection_lost", "broker", broker, "err", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Info("mqtt_connected", "broker", broker, "clientId", clientID)
			if onConnect != nil {
				onConnect(c)
			}
		})

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return client, nil
}

// Topics derives the dashboard topics from a prefix such as
// "datacenter/fuzzy".
type Topics struct {
	Prefix string
}

func (t Topics) For(kind Kind) string { return t.join(string(kind)) }
func (t Topics) Command() string      { return t.join("cmd") }

func (t Topics) join(leaf string) string {
	p := strings.TrimRight(t.Prefix, "/")
	if p == "" {
		return leaf
	}
	return p + "/" + leaf
}

// MQTTSink publishes events to <prefix>/stream, <prefix>/alert and
// <prefix>/result.
type MQTTSink struct {
	client mqttClient
	topics Topics
	qos    byte
	owns   bool
}

// NewMQTTSink wraps a connected client. When owns is set Close disconnects
// it.
func NewMQTTSink(client mqttClient, prefix string, owns bool) *MQTTSink {
	return &MQTTSink{client: client, topics: Topics{Prefix: prefix}, owns: owns}
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Connected() bool { return s.client != nil && s.client.IsConnectionOpen() }

func (s *MQTTSink) Publish(ctx context.Context, kind Kind, _ string, payload []byte) error {
	if !s.Connected() {
		return ErrNotConnected
	}
	return waitToken(ctx, s.client.Publish(s.topics.For(kind), s.qos, false, payload))
}

func (s *MQTTSink) Close() error {
	if s.owns && s.client != nil {
		s.client.Disconnect(250)
	}
	return nil
}

func waitToken(ctx context.Context, tok mqtt.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
