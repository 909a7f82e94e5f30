package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	awsSqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/trackforge/previewd/pkg/domain"
	"github.com/trackforge/previewd/pkg/logger"
	"gopkg.in/yaml.v2"
)

const TYPE string = "sqs"
const startupTimeout = 20 * time.Second

type sqsSendMessageAPI interface {
	SendMessage(context.Context, *awsSqs.SendMessageInput, ...func(*awsSqs.Options)) (*awsSqs.SendMessageOutput, error)
}

type Message struct {
	SchemaVersion string `json:"schema_version"`
	RequestID     string `json:"request_id"`
	Bucket        string `json:"bucket"`
	Object        Object `json:"object"`
}

type Object struct {
	Path        string `json:"path"`
	PublicURL   string `json:"public_url"`
	SizeInBytes int    `json:"size_in_bytes"`
}

type Config struct {
	URL      string `yaml:"url"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

type Queue struct {
	log      *slog.Logger
	client   sqsSendMessageAPI
	queueURL string
}

func New(l *slog.Logger, c *Config) (*Queue, error) {
	ctx, cancelFunc := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelFunc()

	sdkConfig, err := awsConfig.LoadDefaultConfig(
		ctx, awsConfig.WithRegion(c.Region), awsConfig.WithBaseEndpoint(c.Endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("couldn't load default AWS configuration: %w", err)
	}

	if !validURL(c.URL) {
		return nil, fmt.Errorf("invalid url for SQS %s", c.URL)
	}

	return &Queue{
		log:      l.With(logger.NotifierTypeKey, TYPE),
		client:   awsSqs.NewFromConfig(sdkConfig),
		queueURL: c.URL,
	}, nil
}

func ParseConfig(confData []byte) (*Config, error) {
	conf := &Config{}

	err := yaml.Unmarshal(confData, conf)
	if err != nil {
		return conf, fmt.Errorf("error parsing SQS config: %w", err)
	}

	return conf, nil
}

func (queue *Queue) Notify(ctx context.Context, msg *domain.MessageContext) error {
	message := Message{
		SchemaVersion: domain.MsgSchemaVersion,
		RequestID:     msg.RequestID,
		Bucket:        msg.Bucket,
		Object: Object{
			Path:        msg.Path,
			PublicURL:   msg.URL,
			SizeInBytes: msg.SizeInBytes,
		},
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("error generating message body: %w", err)
	}

	_, err = queue.client.SendMessage(ctx, &awsSqs.SendMessageInput{
		MessageBody: aws.String(string(body)),
		QueueUrl:    aws.String(queue.queueURL),
	})
	if err != nil {
		return fmt.Errorf("error enqueueing publication notification: %w", err)
	}

	queue.log.Debug("publication notification sent", "path", msg.Path)
	return nil
}

func (queue *Queue) Type() string {
	return TYPE
}

func validURL(candidate string) bool {
	parsed, err := url.ParseRequestURI(candidate)
	return err == nil && parsed.Host != ""
}
