package s3

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/trackforge/previewd/pkg/domain"
	"github.com/trackforge/previewd/pkg/logger"
	"gopkg.in/yaml.v2"
)

const TYPE string = "s3"

const startupTimeout = 20 * time.Second

type Config struct {
	Region         string `yaml:"region"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

type Storage struct {
	endpoint  string
	region    string
	pathStyle bool
	client    *awsS3.Client
	uploader  *manager.Uploader
	presigner *awsS3.PresignClient
	log       *slog.Logger
}

func New(l *slog.Logger, c *Config, endpoint string) (*Storage, error) {
	ctx, cancelFunc := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelFunc()

	sdkConfig, err := awsConfig.LoadDefaultConfig(
		ctx, awsConfig.WithRegion(c.Region), awsConfig.WithBaseEndpoint(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't load default AWS configuration: %w", err)
	}

	client := awsS3.NewFromConfig(sdkConfig, func(o *awsS3.Options) {
		o.UsePathStyle = c.ForcePathStyle
	})

	return &Storage{
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		region:    c.Region,
		pathStyle: c.ForcePathStyle,
		client:    client,
		uploader:  manager.NewUploader(client),
		presigner: awsS3.NewPresignClient(client),
		log:       l.With(logger.ObjStorageTypeKey, TYPE),
	}, nil
}

func ParseConfig(confData []byte) (*Config, error) {
	conf := &Config{}

	err := yaml.Unmarshal(confData, conf)
	if err != nil {
		return conf, fmt.Errorf("error parsing S3 config: %w", err)
	}

	return conf, nil
}

func (storage *Storage) PresignGet(
	ctx context.Context, bucket string, key string, ttl time.Duration,
) (string, error) {

	signedReq, err := storage.presigner.PresignGetObject(ctx,
		&awsS3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		},
		awsS3.WithPresignExpires(ttl),
	)
	if err != nil {
		return "", fmt.Errorf("error presigning S3 get: %w", err)
	}

	return signedReq.URL, nil
}

func (storage *Storage) Upload(
	ctx context.Context, bucket string, key string, data []byte, contentType string,
) (*domain.UploadResult, error) {

	uploadInfo, err := storage.uploader.Upload(ctx, &awsS3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("error when uploading to S3: %w", err)
	}

	url := uploadInfo.Location
	if url == "" {
		url = storage.PublicURL(bucket, key)
	}

	return &domain.UploadResult{
		Bucket:      bucket,
		Path:        key,
		URL:         url,
		SizeInBytes: len(data),
	}, nil
}

func (storage *Storage) PublicURL(bucket string, key string) string {
	key = strings.TrimPrefix(key, "/")

	if storage.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", storage.endpoint, bucket, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, storage.region, key)
}

func (storage *Storage) Type() string {
	return TYPE
}
