package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	awsSqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackforge/previewd/pkg/domain"
	"github.com/trackforge/previewd/pkg/logger"
)

var llog = logger.NewDummy()

type mockSQSClient struct {
	err   error
	input *awsSqs.SendMessageInput
}

func (m *mockSQSClient) SendMessage(
	_ context.Context, input *awsSqs.SendMessageInput, _ ...func(*awsSqs.Options),
) (*awsSqs.SendMessageOutput, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	return &awsSqs.SendMessageOutput{}, nil
}

func TestParseConfig(t *testing.T) {
	conf, err := ParseConfig([]byte(
		"url: https://sqs.us-east-1.amazonaws.com/123/previews\nregion: us-east-1"))
	require.NoError(t, err)
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123/previews", conf.URL)
	assert.Equal(t, "us-east-1", conf.Region)
}

func TestNewRejectsInvalidQueueURL(t *testing.T) {
	_, err := New(llog, &Config{URL: "not a url", Region: "us-east-1"})
	assert.Error(t, err)

	_, err = New(llog, &Config{URL: "", Region: "us-east-1"})
	assert.Error(t, err)
}

func TestNotifySendsTheExpectedMessage(t *testing.T) {
	client := &mockSQSClient{}
	queue := &Queue{
		log:      llog,
		client:   client,
		queueURL: "https://sqs.us-east-1.amazonaws.com/123/previews",
	}

	err := queue.Notify(context.Background(), &domain.MessageContext{
		Bucket:      "previews",
		Path:        "previews/track.mp3",
		URL:         "https://cdn.example.com/previews/previews/track.mp3",
		SizeInBytes: 720_000,
		RequestID:   "req-42",
	})
	require.NoError(t, err)

	require.NotNil(t, client.input)
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123/previews", *client.input.QueueUrl)

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(*client.input.MessageBody), &msg))
	assert.Equal(t, domain.MsgSchemaVersion, msg.SchemaVersion)
	assert.Equal(t, "req-42", msg.RequestID)
	assert.Equal(t, "previews", msg.Bucket)
	assert.Equal(t, "previews/track.mp3", msg.Object.Path)
	assert.Equal(t, "https://cdn.example.com/previews/previews/track.mp3", msg.Object.PublicURL)
	assert.Equal(t, 720_000, msg.Object.SizeInBytes)
}

func TestNotifySurfacesSendFailures(t *testing.T) {
	queue := &Queue{
		log:      llog,
		client:   &mockSQSClient{err: errors.New("queue unreachable")},
		queueURL: "https://sqs.us-east-1.amazonaws.com/123/previews",
	}

	err := queue.Notify(context.Background(), &domain.MessageContext{Path: "previews/track.mp3"})
	assert.Error(t, err)
}
