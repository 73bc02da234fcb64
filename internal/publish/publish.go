// Package publish forwards finished simulation results to a message
// broker so other services can consume them.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/san-kum/convsim/internal/config"
	"github.com/san-kum/convsim/internal/export"
	"github.com/san-kum/convsim/internal/results"
)

// Sink delivers results somewhere outside the process.
type Sink interface {
	Publish(ctx context.Context, res *results.Result) error
	Close() error
}

// New builds the sink described by cfg.
func New(cfg config.SinkConfig, log *slog.Logger) (Sink, error) {
	if log == nil {
		log = slog.Default()
	}
	switch strings.ToLower(cfg.Kind) {
	case "", config.SinkNone:
		return Nop{}, nil
	case config.SinkKafka:
		return NewKafka(cfg, log)
	case config.SinkMQTT:
		return NewMQTT(cfg, log)
	default:
		return nil, fmt.Errorf("unknown sink kind %q", cfg.Kind)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(context.Context, *results.Result) error { return nil }
func (Nop) Close() error                                   { return nil }

// Payload encodes res the way every sink sends it.
func Payload(res *results.Result) ([]byte, error) {
	doc, err := export.NewDocument(res, false)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
