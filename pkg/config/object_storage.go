package config

import (
	"errors"
	"fmt"
	"slices"
)

var allowedObjectStorages = []string{"s3", "localstorage", "httpstorage"}

type ObjectStorageConfig struct {
	Type   string      `yaml:"type"`
	Name   string      `yaml:"name"`
	Config interface{} `yaml:"config"`
}

func (objStgConf ObjectStorageConfig) fillDefaultValues() ObjectStorageConfig {
	if objStgConf.Name == "" {
		objStgConf.Name = objStgConf.Type
	}
	return objStgConf
}

func (objStgConf ObjectStorageConfig) validate() error {
	if objStgConf.Type == "" {
		return errors.New("object_storage.type is required")
	}

	if !slices.Contains(allowedObjectStorages, objStgConf.Type) {
		return fmt.Errorf("object_storage.type must be one of %v", allowedObjectStorages)
	}
	return nil
}
