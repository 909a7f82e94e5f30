package config

import "fmt"

var allowedLogLevels = []string{"debug", "info", "warn", "error"}
var allowedLogFormats = []string{"json", "text"}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (logConf LogConfig) fillDefaults() LogConfig {
	if logConf.Level == "" {
		logConf.Level = "info"
	}

	if logConf.Format == "" {
		logConf.Format = "json"
	}

	return logConf
}

func (logConf LogConfig) validate() error {
	if !allowed(allowedLogLevels, logConf.Level) {
		return fmt.Errorf("log level should be one of %v", allowedLogLevels)
	}

	if !allowed(allowedLogFormats, logConf.Format) {
		return fmt.Errorf("log format should be one of %v", allowedLogFormats)
	}

	return nil
}
