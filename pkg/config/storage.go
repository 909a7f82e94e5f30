package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

const DefaultPreviewBucket = "previews"

// The two credential-bearing values every deployment must provide. They are
// capabilities for the whole asset store, so they only ever come from the
// environment, never from the config file.
const (
	EnvStorageEndpoint   = "PREVIEWD_STORAGE_ENDPOINT"
	EnvStorageServiceKey = "PREVIEWD_STORAGE_SERVICE_KEY"
)

var allowedStorageTypes = []string{"platform", "s3"}

type StorageConfig struct {
	Type          string      `yaml:"type"`
	PreviewBucket string      `yaml:"preview_bucket"`
	Config        interface{} `yaml:"config"`
}

type StorageCredentials struct {
	Endpoint   string
	ServiceKey string
}

func (storageConf StorageConfig) fillDefaults() StorageConfig {
	if storageConf.Type == "" {
		storageConf.Type = "platform"
	}

	if storageConf.PreviewBucket == "" {
		storageConf.PreviewBucket = DefaultPreviewBucket
	}

	return storageConf
}

func (storageConf StorageConfig) validate() error {
	if !allowed(allowedStorageTypes, storageConf.Type) {
		return fmt.Errorf("storage.type should be one of %v", allowedStorageTypes)
	}

	return nil
}

// RawConfig re-serializes the adapter-specific part of the storage config, so
// each adapter can parse only the section it owns.
func (storageConf StorageConfig) RawConfig() ([]byte, error) {
	data, err := yaml.Marshal(storageConf.Config)
	if err != nil {
		return nil, fmt.Errorf("error serializing storage config: %w", err)
	}

	return data, nil
}

func StorageCredentialsFromEnv() (StorageCredentials, error) {
	endpoint := os.Getenv(EnvStorageEndpoint)
	if endpoint == "" {
		return StorageCredentials{}, fmt.Errorf("%s must be set", EnvStorageEndpoint)
	}

	serviceKey := os.Getenv(EnvStorageServiceKey)
	if serviceKey == "" {
		return StorageCredentials{}, fmt.Errorf("%s must be set", EnvStorageServiceKey)
	}

	return StorageCredentials{Endpoint: endpoint, ServiceKey: serviceKey}, nil
}
