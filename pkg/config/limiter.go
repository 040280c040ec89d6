package config

import (
	"errors"
	"time"
)

const (
	DefaultLimiterValueThreshold    = 0.01
	DefaultLimiterTimeThresholdInMs = 16
)

// LimiterConfig holds the thresholds of the progress limiter. The value
// domain is always [0,1], as it gates aggregate ratios.
type LimiterConfig struct {
	ValueThreshold  float64 `yaml:"value_threshold"`
	TimeThresholdMs int64   `yaml:"time_threshold_in_ms"`
}

func (limConf LimiterConfig) fillDefaults() LimiterConfig {
	if limConf.ValueThreshold == 0 {
		limConf.ValueThreshold = DefaultLimiterValueThreshold
	}
	if limConf.TimeThresholdMs == 0 {
		limConf.TimeThresholdMs = DefaultLimiterTimeThresholdInMs
	}
	return limConf
}

func (limConf LimiterConfig) validate() error {
	if limConf.ValueThreshold < 0 || limConf.ValueThreshold > 1 {
		return errors.New("limiter.value_threshold must be in the interval [0,1]")
	}
	if limConf.TimeThresholdMs < 0 {
		return errors.New("limiter.time_threshold_in_ms cannot be negative")
	}
	return nil
}

func (limConf LimiterConfig) TimeThreshold() time.Duration {
	return time.Duration(limConf.TimeThresholdMs) * time.Millisecond
}
