package config

import (
	"fmt"
	"slices"
	"strconv"
)

var allowedCompressions = []string{"gzip", "zlib", "deflate", "zstd", "snappy"}

type CompressionConfig struct {
	Level string `yaml:"level"`
	Type  string `yaml:"type"`
}

func (compConf CompressionConfig) fillDefaultValues() CompressionConfig {
	return compConf
}

func (compConf CompressionConfig) validate() error {
	if compConf.Type == "" {
		return nil
	}

	if !slices.Contains(allowedCompressions, compConf.Type) {
		return fmt.Errorf("compression.type option must be one of %v", allowedCompressions)
	}

	if compConf.Level != "" {
		level, err := strconv.Atoi(compConf.Level)
		if err != nil || level < 1 || level > 9 {
			return fmt.Errorf("compression.level must be an integer between 1 and 9, got %q", compConf.Level)
		}
	}

	return nil
}
