package config

import "errors"

const DefaultEncoderBinary = "ffmpeg"

type TranscodeConfig struct {
	Binary string `yaml:"binary"`
}

func (transcodeConf TranscodeConfig) fillDefaults() TranscodeConfig {
	if transcodeConf.Binary == "" {
		transcodeConf.Binary = DefaultEncoderBinary
	}

	return transcodeConf
}

func (transcodeConf TranscodeConfig) validate() error {
	if transcodeConf.Binary == "" {
		return errors.New("transcode.binary cannot be empty")
	}

	return nil
}
