package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/san-kum/convsim/internal/config"
	"github.com/san-kum/convsim/internal/results"
)

const connectTimeout = 10 * time.Second

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes results under <topic>/<topology>.
type MQTT struct {
	topic  string
	qos    byte
	client mqttClient
	log    *slog.Logger
}

func NewMQTT(cfg config.SinkConfig, log *slog.Logger) (*MQTT, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("mqtt topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("invalid qos %d", cfg.QoS)
	}

	opts := mqtt.NewClientOptions().
		SetClientID(cfg.ClientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)
	for _, b := range cfg.Brokers {
		opts.AddBroker(b)
	}

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect: timed out after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return newMQTT(cfg.Topic, cfg.QoS, c, log), nil
}

func newMQTT(topic string, qos byte, c mqttClient, log *slog.Logger) *MQTT {
	return &MQTT{
		topic:  strings.TrimSuffix(topic, "/"),
		qos:    qos,
		client: c,
		log:    log.With(slog.String("component", "mqtt_sink")),
	}
}

func (m *MQTT) Publish(ctx context.Context, res *results.Result) error {
	payload, err := Payload(res)
	if err != nil {
		return err
	}
	topic := m.topic + "/" + res.Topology

	token := m.client.Publish(topic, m.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		m.log.Error("publish_failed", slog.String("topic", topic), slog.Any("err", err))
		return fmt.Errorf("mqtt publish: %w", err)
	}
	m.log.Debug("published", slog.String("topic", topic), slog.String("circuit", res.CircuitID), slog.Int("bytes", len(payload)))
	return nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
