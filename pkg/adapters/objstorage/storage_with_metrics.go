package objstorage

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/trackforge/previewd/pkg/domain"
)

const StorageTypeLabel string = "storage_type"

var (
	ensureMetricRegisteringOnce sync.Once
	uploadLatencyHistogram      *prometheus.HistogramVec
	uploadCounter               *prometheus.CounterVec
	uploadErrorCounter          *prometheus.CounterVec
	presignCounter              *prometheus.CounterVec
	presignErrorCounter         *prometheus.CounterVec
)

type storageWithMetrics struct {
	storage     Storage
	wrappedType string
}

func NewStorageWithMetrics(storage Storage, metricRegistry *prometheus.Registry) Storage {
	ensureMetricRegisteringOnce.Do(func() {
		uploadLatencyHistogram = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:      "upload_latency_seconds",
				Subsystem: "object_storage",
				Namespace: "previewd",
				Help:      "the time it took to finish the upload of data to object storage",
				Buckets:   []float64{0.25, 0.5, 1.0, 1.5, 2.0, 5.0, 10.0, 30.0, 45.0, 60.0, 90.0, 120.0},
			},
			[]string{StorageTypeLabel},
		)

		uploadCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "upload_total",
				Namespace: "previewd",
				Subsystem: "object_storage",
				Help:      "count of uploads to object storage that finished",
			},
			[]string{StorageTypeLabel},
		)

		uploadErrorCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "upload_errors_total",
				Namespace: "previewd",
				Subsystem: "object_storage",
				Help:      "count of errors uploading to object storage",
			},
			[]string{StorageTypeLabel},
		)

		presignCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "presign_total",
				Namespace: "previewd",
				Subsystem: "object_storage",
				Help:      "count of signed-URL generations that finished",
			},
			[]string{StorageTypeLabel},
		)

		presignErrorCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:      "presign_errors_total",
				Namespace: "previewd",
				Subsystem: "object_storage",
				Help:      "count of errors generating signed URLs",
			},
			[]string{StorageTypeLabel},
		)

		metricRegistry.MustRegister(
			uploadLatencyHistogram,
			uploadCounter,
			uploadErrorCounter,
			presignCounter,
			presignErrorCounter,
		)
	})

	return &storageWithMetrics{
		storage:     storage,
		wrappedType: storage.Type(),
	}
}

func (w *storageWithMetrics) PresignGet(
	ctx context.Context, bucket string, key string, ttl time.Duration,
) (string, error) {
	signedURL, err := w.storage.PresignGet(ctx, bucket, key, ttl)

	presignCounter.WithLabelValues(w.wrappedType).Inc()
	if err != nil {
		presignErrorCounter.WithLabelValues(w.wrappedType).Inc()
	}

	return signedURL, err
}

func (w *storageWithMetrics) Upload(
	ctx context.Context, bucket string, key string, data []byte, contentType string,
) (*domain.UploadResult, error) {
	startTime := time.Now()

	uploadResult, err := w.storage.Upload(ctx, bucket, key, data, contentType)
	elapsedTime := time.Since(startTime).Seconds()

	uploadLatencyHistogram.WithLabelValues(w.wrappedType).Observe(elapsedTime)
	uploadCounter.WithLabelValues(w.wrappedType).Inc()

	if err != nil {
		uploadErrorCounter.WithLabelValues(w.wrappedType).Inc()
	}

	return uploadResult, err
}

func (w *storageWithMetrics) PublicURL(bucket string, key string) string {
	return w.storage.PublicURL(bucket, key)
}

func (w *storageWithMetrics) Type() string {
	return w.wrappedType
}
