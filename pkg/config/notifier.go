package config

import "fmt"

var allowedNotifierTypes = []string{"noop", "sqs"}

type NotifierConfig struct {
	Type   string      `yaml:"type"`
	Config interface{} `yaml:"config"`
}

func (notifierConf NotifierConfig) fillDefaults() NotifierConfig {
	if notifierConf.Type == "" {
		notifierConf.Type = "noop"
	}

	return notifierConf
}

func (notifierConf NotifierConfig) validate() error {
	if !allowed(allowedNotifierTypes, notifierConf.Type) {
		return fmt.Errorf("notifier.type should be one of %v", allowedNotifierTypes)
	}

	return nil
}
