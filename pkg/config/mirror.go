package config

import (
	"errors"
	"time"
)

const DefaultMirrorDrainTimeoutInMs = 5000

// MirrorConfig toggles the background mirror, which keeps track of live
// uploads of every buffer and lets them drain on shutdown.
type MirrorConfig struct {
	Enabled        bool  `yaml:"enabled"`
	DrainTimeoutMs int64 `yaml:"drain_timeout_in_ms"`
}

func (mirrorConf MirrorConfig) fillDefaults() MirrorConfig {
	if mirrorConf.DrainTimeoutMs == 0 {
		mirrorConf.DrainTimeoutMs = DefaultMirrorDrainTimeoutInMs
	}
	return mirrorConf
}

func (mirrorConf MirrorConfig) validate() error {
	if mirrorConf.DrainTimeoutMs < 0 {
		return errors.New("mirror.drain_timeout_in_ms cannot be negative")
	}
	return nil
}

func (mirrorConf MirrorConfig) DrainTimeout() time.Duration {
	return time.Duration(mirrorConf.DrainTimeoutMs) * time.Millisecond
}
