package config

import "errors"

const DefaultInboxCapacity = 1024

type CoordinatorConfig struct {
	InboxCapacity int `yaml:"inbox_capacity"`
}

func (coordConf CoordinatorConfig) fillDefaults() CoordinatorConfig {
	if coordConf.InboxCapacity == 0 {
		coordConf.InboxCapacity = DefaultInboxCapacity
	}
	return coordConf
}

func (coordConf CoordinatorConfig) validate() error {
	if coordConf.InboxCapacity < 1 {
		return errors.New("coordinator.inbox_capacity must be at least 1")
	}
	return nil
}
