package config

import "errors"

const DefaultPort = 9199

type APIConfig struct {
	Port int `yaml:"port"`
}

func (apiConf APIConfig) fillDefaults() APIConfig {
	if apiConf.Port == 0 {
		apiConf.Port = DefaultPort
	}

	return apiConf
}

func (apiConf APIConfig) validate() error {
	if apiConf.Port <= 0 || apiConf.Port > 65535 {
		return errors.New("api.port must be a valid port number")
	}

	return nil
}
