package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/trackforge/previewd/pkg/domain"
	"github.com/trackforge/previewd/pkg/logger"
	"gopkg.in/yaml.v2"
)

const TYPE string = "platform"

const defaultTimeoutInMillis = 60_000

// Config holds the non-credential knobs of the managed platform's storage
// API. The endpoint and service key are capabilities and arrive separately,
// from the environment.
type Config struct {
	TimeoutInMillis int64 `yaml:"timeout_milliseconds"`
}

// Storage talks to the storage API of the backend-as-a-service platform the
// storefront runs on. Buckets are namespaces under a single endpoint; the
// service key authorizes every call.
type Storage struct {
	endpoint   string
	serviceKey string
	log        *slog.Logger
	client     *http.Client
}

func New(l *slog.Logger, c *Config, endpoint string, serviceKey string) (*Storage, error) {
	endpoint, err := validateAndFormatEndpoint(endpoint)
	if err != nil {
		return nil, fmt.Errorf("error creating platform storage: %w", err)
	}

	if serviceKey == "" {
		return nil, fmt.Errorf("platform storage needs a service key")
	}

	timeout := c.TimeoutInMillis
	if timeout == 0 {
		timeout = defaultTimeoutInMillis
	}

	client := &http.Client{
		Timeout: time.Duration(timeout) * time.Millisecond,
		Transport: &http.Transport{
			IdleConnTimeout: 10 * time.Second,
		},
	}

	return &Storage{
		endpoint:   endpoint,
		serviceKey: serviceKey,
		log:        l.With(logger.ObjStorageTypeKey, TYPE),
		client:     client,
	}, nil
}

func ParseConfig(confData []byte) (*Config, error) {
	conf := &Config{}

	err := yaml.Unmarshal(confData, conf)
	if err != nil {
		return conf, fmt.Errorf("error parsing platform storage config: %w", err)
	}

	return conf, nil
}

// PresignGet asks the platform for a time-limited read URL on one object of a
// private bucket. The resulting URL is a capability: it is returned to the
// caller and never logged.
func (storage *Storage) PresignGet(
	ctx context.Context, bucket string, key string, ttl time.Duration,
) (string, error) {

	signURL := fmt.Sprintf("%s/object/sign/%s/%s", storage.endpoint, bucket, strings.TrimPrefix(key, "/"))

	body, err := json.Marshal(map[string]int{"expiresIn": int(ttl.Seconds())})
	if err != nil {
		return "", fmt.Errorf("error serializing sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error creating sign request: %w", err)
	}
	storage.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := storage.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error doing sign request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("sign request failed with status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading sign response: %w", err)
	}

	signResponse := struct {
		SignedURL string `json:"signedURL"`
	}{}

	err = json.Unmarshal(respBody, &signResponse)
	if err != nil {
		return "", fmt.Errorf("error parsing sign response: %w", err)
	}

	if signResponse.SignedURL == "" {
		return "", fmt.Errorf("sign response carries no signed URL")
	}

	return storage.endpoint + "/" + strings.TrimPrefix(signResponse.SignedURL, "/"), nil
}

// Upload writes the object with upsert semantics: a second publication to the
// same key replaces the first, which is what makes re-runs of the same
// logical preview idempotent.
func (storage *Storage) Upload(
	ctx context.Context, bucket string, key string, data []byte, contentType string,
) (*domain.UploadResult, error) {

	uploadURL := fmt.Sprintf("%s/object/%s/%s", storage.endpoint, bucket, strings.TrimPrefix(key, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error creating upload request: %w", err)
	}
	storage.authorize(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := storage.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error doing upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upload request failed with status %d", resp.StatusCode)
	}

	return &domain.UploadResult{
		Bucket:      bucket,
		Path:        key,
		URL:         storage.PublicURL(bucket, key),
		SizeInBytes: len(data),
	}, nil
}

// PublicURL resolves the durable address of an object in a public-read
// bucket. No signing involved.
func (storage *Storage) PublicURL(bucket string, key string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", storage.endpoint, bucket, strings.TrimPrefix(key, "/"))
}

func (storage *Storage) Type() string {
	return TYPE
}

func (storage *Storage) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+storage.serviceKey)
}

func validateAndFormatEndpoint(endpoint string) (string, error) {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return "", fmt.Errorf("the endpoint should start with http:// or https://")
	}

	return strings.TrimSuffix(endpoint, "/"), nil
}
