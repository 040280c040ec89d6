package config

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

var allowedVals map[string][]string

func init() {
	allowedVals = map[string][]string{
		"log.level":  {"debug", "info", "warn", "error"},
		"log.format": {"json", "text"},
	}
}

type Config struct {
	Log             LogConfig            `yaml:"log"`
	Version         string               `yaml:"version"`
	API             APIConfig            `yaml:"api"`
	DisableMaxProcs bool                 `yaml:"disable_max_procs"`
	Limiter         LimiterConfig        `yaml:"limiter"`
	Coordinator     CoordinatorConfig    `yaml:"coordinator"`
	Mirror          MirrorConfig         `yaml:"mirror"`
	Source          SourceConfig         `yaml:"source"`
	Compression     CompressionConfig    `yaml:"compression"`
	CircuitBreaker  CircuitBreakerConfig `yaml:"circuit_breaker"`
	ObjectStorage   ObjectStorageConfig  `yaml:"object_storage"`
	ExternalQueue   ExternalQueueConfig  `yaml:"external_queue"`
	O11y            O11yConfig           `yaml:"o11y"`
}

func New(confData []byte) (*Config, error) {
	c := &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Mirror: MirrorConfig{
			Enabled: true,
		},
		CircuitBreaker: CircuitBreakerConfig{
			TurnOn: true,
		},
	}

	err := yaml.Unmarshal(confData, c)
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	c.fillDefaultValues()

	err = c.validate()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	validators := []func() error{
		c.Log.validate,
		c.API.validate,
		c.Limiter.validate,
		c.Coordinator.validate,
		c.Mirror.validate,
		c.Source.validate,
		c.Compression.validate,
		c.CircuitBreaker.validate,
		c.ObjectStorage.validate,
		c.ExternalQueue.validate,
		c.O11y.validate,
	}

	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) fillDefaultValues() {
	c.Log = c.Log.fillDefaults()
	c.API = c.API.fillDefaults()
	c.Limiter = c.Limiter.fillDefaults()
	c.Coordinator = c.Coordinator.fillDefaults()
	c.Mirror = c.Mirror.fillDefaults()
	c.Source = c.Source.fillDefaults()
	c.Compression = c.Compression.fillDefaultValues()
	c.CircuitBreaker = c.CircuitBreaker.fillDefaultValues()
	c.ObjectStorage = c.ObjectStorage.fillDefaultValues()
	c.ExternalQueue = c.ExternalQueue.fillDefaultValues()
	c.O11y = c.O11y.fillDefaults()
}

func allowed(group []string, elem string) bool {
	for _, a := range group {
		if a == elem {
			return true
		}
	}
	return false
}

func allowedValues(key string) []string {
	return allowedVals[key]
}
