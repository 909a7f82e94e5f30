package config

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Log       LogConfig       `yaml:"log"`
	API       APIConfig       `yaml:"api"`
	O11y      O11yConfig      `yaml:"o11y"`
	Storage   StorageConfig   `yaml:"storage"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Transcode TranscodeConfig `yaml:"transcode"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	Version   string          `yaml:"-"`
}

func New(confData []byte) (*Config, error) {
	c := &Config{}

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

func (c *Config) fillDefaultValues() {
	c.Log = c.Log.fillDefaults()
	c.API = c.API.fillDefaults()
	c.Storage = c.Storage.fillDefaults()
	c.Pipeline = c.Pipeline.fillDefaults()
	c.Transcode = c.Transcode.fillDefaults()
	c.Notifier = c.Notifier.fillDefaults()
}

func (c *Config) validate() error {
	err := c.Log.validate()
	if err != nil {
		return err
	}

	err = c.API.validate()
	if err != nil {
		return err
	}

	err = c.Storage.validate()
	if err != nil {
		return err
	}

	err = c.Pipeline.validate()
	if err != nil {
		return err
	}

	err = c.Transcode.validate()
	if err != nil {
		return err
	}

	return c.Notifier.validate()
}

func allowed(group []string, elem string) bool {
	for _, a := range group {
		if a == elem {
			return true
		}
	}
	return false
}
