package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/san-kum/convsim/internal/config"
	"github.com/san-kum/convsim/internal/results"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes one message per result, keyed by circuit id.
type Kafka struct {
	topic  string
	writer messageWriter
	log    *slog.Logger
}

func NewKafka(cfg config.SinkConfig, log *slog.Logger) (*Kafka, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newKafka(cfg.Topic, w, log), nil
}

func newKafka(topic string, w messageWriter, log *slog.Logger) *Kafka {
	return &Kafka{
		topic:  topic,
		writer: w,
		log:    log.With(slog.String("component", "kafka_sink")),
	}
}

func (k *Kafka) Publish(ctx context.Context, res *results.Result) error {
	payload, err := Payload(res)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(res.CircuitID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "topology", Value: []byte(res.Topology)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		k.log.Error("publish_failed", slog.String("topic", k.topic), slog.Any("err", err))
		return fmt.Errorf("kafka publish: %w", err)
	}
	k.log.Debug("published", slog.String("topic", k.topic), slog.String("circuit", res.CircuitID), slog.Int("bytes", len(payload)))
	return nil
}

func (k *Kafka) Close() error { return k.writer.Close() }
