package objstorage

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"github.com/trackforge/previewd/pkg/domain"
)

const breakerOpenInterval = 10 * time.Second
const breakerFailThreshold = 3

// storageWithBreaker guards the destination-store write path. It never
// retries anything; it only fails fast across invocations while the store
// keeps refusing uploads, instead of burning a transcode on every doomed run.
// Signed reads stay unguarded: a missing source object must surface as a
// source-access failure, not as an open circuit.
type storageWithBreaker struct {
	storage Storage
	breaker *gobreaker.CircuitBreaker
}

func newStorageWithBreaker(storage Storage) Storage {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "objstorage-upload",
		Timeout: breakerOpenInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailThreshold
		},
	})

	return &storageWithBreaker{storage: storage, breaker: breaker}
}

func (w *storageWithBreaker) PresignGet(
	ctx context.Context, bucket string, key string, ttl time.Duration,
) (string, error) {
	return w.storage.PresignGet(ctx, bucket, key, ttl)
}

func (w *storageWithBreaker) Upload(
	ctx context.Context, bucket string, key string, data []byte, contentType string,
) (*domain.UploadResult, error) {
	result, err := w.breaker.Execute(func() (interface{}, error) {
		return w.storage.Upload(ctx, bucket, key, data, contentType)
	})
	if err != nil {
		return nil, err
	}

	return result.(*domain.UploadResult), nil
}

func (w *storageWithBreaker) PublicURL(bucket string, key string) string {
	return w.storage.PublicURL(bucket, key)
}

func (w *storageWithBreaker) Type() string {
	return w.storage.Type()
}
