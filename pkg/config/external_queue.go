package config

import (
	"fmt"
	"slices"
)

var allowedExternalQueues = []string{"noop", "sqs"}

type ExternalQueueConfig struct {
	Type   string      `yaml:"type"`
	Config interface{} `yaml:"config"`
}

func (extQConf ExternalQueueConfig) fillDefaultValues() ExternalQueueConfig {
	if extQConf.Type == "" {
		extQConf.Type = "noop"
	}
	return extQConf
}

func (extQConf ExternalQueueConfig) validate() error {
	if !slices.Contains(allowedExternalQueues, extQConf.Type) {
		return fmt.Errorf("external_queue.type must be one of %v", allowedExternalQueues)
	}
	return nil
}
