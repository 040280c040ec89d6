package config

import (
	"errors"
	"path/filepath"
)

type SourceConfig struct {
	Root string `yaml:"root"`
}

func (srcConf SourceConfig) fillDefaults() SourceConfig {
	if srcConf.Root == "" {
		srcConf.Root = "/"
	}
	return srcConf
}

func (srcConf SourceConfig) validate() error {
	if !filepath.IsAbs(srcConf.Root) {
		return errors.New("source.root must be an absolute path")
	}
	return nil
}
