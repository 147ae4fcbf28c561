package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/formflow/formflow-go/adapters/amqp"
	"github.com/formflow/formflow-go/adapters/kafka"
	"github.com/formflow/formflow-go/adapters/s3"
	"github.com/formflow/formflow-go/runtime"
)

type daemonConfig struct {
	HTTP    httpConfig    `yaml:"http"`
	API     apiConfig     `yaml:"api"`
	Forms   formsConfig   `yaml:"forms"`
	Storage storageConfig `yaml:"storage"`
	Events  eventsConfig  `yaml:"events"`
	Archive archiveConfig `yaml:"archive"`
}

type httpConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type apiConfig struct {
	Auth  string `yaml:"auth"` // "disabled" or "token"
	Token string `yaml:"token"`
}

type formsConfig struct {
	Dir      string `yaml:"dir"`
	Watch    bool   `yaml:"watch"`
	Language string `yaml:"language"`
}

type storageConfig struct {
	Backend  string                 `yaml:"backend"` // memory, postgres, redis
	Postgres runtime.PostgresConfig `yaml:"postgres"`
	Redis    runtime.RedisConfig    `yaml:"redis"`
}

type eventsConfig struct {
	Backend string       `yaml:"backend"` // none, kafka, amqp
	Kafka   kafka.Config `yaml:"kafka"`
	AMQP    amqp.Config  `yaml:"amqp"`
}

type archiveConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	S3       s3.Config     `yaml:"s3"`
}

func loadDaemonConfig(path string) (*daemonConfig, error) {
	cfg := &daemonConfig{}
	cfg.applyDefaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config yaml: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *daemonConfig) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.API.Auth == "" {
		c.API.Auth = "disabled"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Events.Backend == "" {
		c.Events.Backend = "none"
	}
	if c.Archive.Interval == 0 {
		c.Archive.Interval = time.Hour
	}
	if c.Forms.Language == "" {
		c.Forms.Language = "en"
	}
}
