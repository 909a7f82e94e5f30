package config

import (
	"errors"
	"time"
)

const (
	DefaultSignedURLTTLSecs    = 60
	DefaultFetchTimeoutSecs    = 60
	DefaultTranscodeTimeoutSec = 300
	DefaultUploadTimeoutSecs   = 120
)

type PipelineConfig struct {
	SignedURLTTLInSeconds     int `yaml:"signed_url_ttl_in_seconds"`
	FetchTimeoutInSeconds     int `yaml:"fetch_timeout_in_seconds"`
	TranscodeTimeoutInSeconds int `yaml:"transcode_timeout_in_seconds"`
	UploadTimeoutInSeconds    int `yaml:"upload_timeout_in_seconds"`
}

func (pipeConf PipelineConfig) fillDefaults() PipelineConfig {
	if pipeConf.SignedURLTTLInSeconds == 0 {
		pipeConf.SignedURLTTLInSeconds = DefaultSignedURLTTLSecs
	}

	if pipeConf.FetchTimeoutInSeconds == 0 {
		// The signed URL is the real deadline: a fetch that outlives the
		// credential can only fail.
		pipeConf.FetchTimeoutInSeconds = pipeConf.SignedURLTTLInSeconds
	}

	if pipeConf.TranscodeTimeoutInSeconds == 0 {
		pipeConf.TranscodeTimeoutInSeconds = DefaultTranscodeTimeoutSec
	}

	if pipeConf.UploadTimeoutInSeconds == 0 {
		pipeConf.UploadTimeoutInSeconds = DefaultUploadTimeoutSecs
	}

	return pipeConf
}

func (pipeConf PipelineConfig) validate() error {
	if pipeConf.SignedURLTTLInSeconds < 0 || pipeConf.FetchTimeoutInSeconds < 0 ||
		pipeConf.TranscodeTimeoutInSeconds < 0 || pipeConf.UploadTimeoutInSeconds < 0 {
		return errors.New("pipeline timeouts cannot be negative")
	}

	return nil
}

func (pipeConf PipelineConfig) SignedURLTTL() time.Duration {
	return time.Duration(pipeConf.SignedURLTTLInSeconds) * time.Second
}

func (pipeConf PipelineConfig) FetchTimeout() time.Duration {
	return time.Duration(pipeConf.FetchTimeoutInSeconds) * time.Second
}

func (pipeConf PipelineConfig) TranscodeTimeout() time.Duration {
	return time.Duration(pipeConf.TranscodeTimeoutInSeconds) * time.Second
}

func (pipeConf PipelineConfig) UploadTimeout() time.Duration {
	return time.Duration(pipeConf.UploadTimeoutInSeconds) * time.Second
}
