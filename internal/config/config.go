package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/convsim/internal/logging"
	"github.com/san-kum/convsim/internal/sim"
)

const (
	DefaultEndTime    = 1.0
	DefaultStepSize   = 1e-6
	DefaultMaxEndTime = 1.0
	DefaultMaxSteps   = 1_000_000
	DefaultRelTol     = 1e-3
	DefaultAbsTol     = 1e-6
	DefaultMethod     = "rk45"
	DefaultAddr       = ":8080"
	DefaultDataDir    = ".convsim"
	DefaultTopic      = "convsim.results"
)

// Sink kinds accepted in SinkConfig.Kind.
const (
	SinkNone  = "none"
	SinkKafka = "kafka"
	SinkMQTT  = "mqtt"
)

type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Server     ServerConfig     `yaml:"server"`
	DataDir    string           `yaml:"data_dir"`
	Log        logging.Options  `yaml:"log"`
	Sink       SinkConfig       `yaml:"sink"`
}

type SimulationConfig struct {
	EndTime  float64 `yaml:"end_time"`
	StepSize float64 `yaml:"step_size"`
	// MaxEndTime bounds the end time accepted from server requests.
	MaxEndTime  float64 `yaml:"max_end_time"`
	MaxSteps    int     `yaml:"max_steps"`
	RelTol      float64 `yaml:"rel_tol"`
	AbsTol      float64 `yaml:"abs_tol"`
	Method      string  `yaml:"method"`
	AlignEvents bool    `yaml:"align_events"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

type SinkConfig struct {
	Kind     string   `yaml:"kind"`
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	ClientID string   `yaml:"client_id"`
	QoS      byte     `yaml:"qos"`
}

func DefaultConfig() *Config {
	return &Config{
		Simulation: SimulationConfig{
			EndTime:     DefaultEndTime,
			StepSize:    DefaultStepSize,
			MaxEndTime:  DefaultMaxEndTime,
			MaxSteps:    DefaultMaxSteps,
			RelTol:      DefaultRelTol,
			AbsTol:      DefaultAbsTol,
			Method:      DefaultMethod,
			AlignEvents: true,
		},
		Server: ServerConfig{
			Addr:         DefaultAddr,
			MaxBodyBytes: 1 << 20,
		},
		DataDir: DefaultDataDir,
		Log:     logging.Options{Level: "info", Format: "text"},
		Sink: SinkConfig{
			Kind:     SinkNone,
			Topic:    DefaultTopic,
			ClientID: "convsim",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the settings that are not re-checked when a simulation
// starts.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Simulation.MaxEndTime <= 0 {
		return fmt.Errorf("simulation.max_end_time must be positive, got %g", c.Simulation.MaxEndTime)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	switch strings.ToLower(c.Sink.Kind) {
	case "", SinkNone:
	case SinkKafka, SinkMQTT:
		if len(c.Sink.Brokers) == 0 {
			return fmt.Errorf("sink.brokers is required for %s", c.Sink.Kind)
		}
		if c.Sink.Topic == "" {
			return fmt.Errorf("sink.topic is required for %s", c.Sink.Kind)
		}
		if c.Sink.QoS > 2 {
			return fmt.Errorf("sink.qos must be 0, 1 or 2, got %d", c.Sink.QoS)
		}
	default:
		return fmt.Errorf("unknown sink kind %q", c.Sink.Kind)
	}
	return c.Simulation.Options().Validate()
}

// Options converts the simulation section into solver options.
func (s SimulationConfig) Options() sim.Options {
	return sim.Options{
		EndTime:  s.EndTime,
		StepSize: s.StepSize,
		RelTol:   s.RelTol,
		AbsTol:   s.AbsTol,
		MaxSteps: s.MaxSteps,
		Method:   sim.Method(strings.ToLower(s.Method)),
	}
}
