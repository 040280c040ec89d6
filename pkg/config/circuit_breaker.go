package config

import (
	"errors"
	"time"
)

const DefaultCBOpenIntervalInMs = 100

type CircuitBreakerConfig struct {
	TurnOn       bool  `yaml:"turn_on"`
	OpenInterval int64 `yaml:"open_interval_in_ms"`
}

func (cbConf CircuitBreakerConfig) fillDefaultValues() CircuitBreakerConfig {
	if cbConf.OpenInterval == 0 {
		cbConf.OpenInterval = DefaultCBOpenIntervalInMs
	}
	return cbConf
}

func (cbConf CircuitBreakerConfig) validate() error {
	if cbConf.OpenInterval <= 0 {
		return errors.New("circuit_breaker.open_interval_in_ms must be positive")
	}
	return nil
}

func (cbConf CircuitBreakerConfig) OpenIntervalAsDuration() time.Duration {
	return time.Duration(cbConf.OpenInterval) * time.Millisecond
}
