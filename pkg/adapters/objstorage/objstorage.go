package objstorage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/trackforge/previewd/pkg/adapters/objstorage/platform"
	"github.com/trackforge/previewd/pkg/adapters/objstorage/s3"
	"github.com/trackforge/previewd/pkg/config"
	"github.com/trackforge/previewd/pkg/domain"
)

const (
	platformType string = "platform"
	s3Type       string = "s3"
)

// Storage is the object-store capability the pipeline is built on: time-boxed
// signed reads on private buckets, upsert writes and public address
// resolution on public ones.
type Storage interface {
	PresignGet(ctx context.Context, bucket string, key string, ttl time.Duration) (string, error)
	Upload(ctx context.Context, bucket string, key string, data []byte, contentType string) (*domain.UploadResult, error)
	PublicURL(bucket string, key string) string
	Type() string
}

func New(
	l *slog.Logger, metricRegistry *prometheus.Registry,
	conf config.StorageConfig, creds config.StorageCredentials,
) (Storage, error) {

	specificConf, err := conf.RawConfig()
	if err != nil {
		return nil, err
	}

	var storage Storage

	switch conf.Type {
	case platformType:
		platformConf, err := platform.ParseConfig(specificConf)
		if err != nil {
			return nil, fmt.Errorf("error parsing platform-specific config: %w", err)
		}

		storage, err = platform.New(l, platformConf, creds.Endpoint, creds.ServiceKey)
		if err != nil {
			return nil, fmt.Errorf("error creating platform object storage: %w", err)
		}
	case s3Type:
		s3Conf, err := s3.ParseConfig(specificConf)
		if err != nil {
			return nil, fmt.Errorf("error parsing s3-specific config: %w", err)
		}

		storage, err = s3.New(l, s3Conf, creds.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("error creating S3 object storage: %w", err)
		}
	default:
		return nil, fmt.Errorf("invalid object storage type %s", conf.Type)
	}

	return NewStorageWithMetrics(newStorageWithBreaker(storage), metricRegistry), nil
}
