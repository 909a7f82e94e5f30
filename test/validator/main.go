// nolint: forbidigo
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

const localstackEndpoint = "http://localhost:4566"
const previewdEndpoint = "http://localhost:9199"

type previewResponse struct {
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
}

type notification struct {
	SchemaVersion string `json:"schema_version"`
	RequestID     string `json:"request_id"`
	Bucket        string `json:"bucket"`
	Object        struct {
		Path        string `json:"path"`
		PublicURL   string `json:"public_url"`
		SizeInBytes int    `json:"size_in_bytes"`
	} `json:"object"`
}

// Drives a full preview generation against a running previewd + localstack
// pair and validates the observable outcomes: the 200 response, the published
// artifact being fetchable at its public URL, and the notification message.
func main() {
	queueURL := flag.String("q", "", "The URL of the notification queue")
	flag.Parse()

	if *queueURL == "" {
		fmt.Println("You must supply the URL of a queue (-q QUEUE)")
		os.Exit(1)
	}

	fmt.Println("Requesting preview generation...")

	requestBody := `{"sourceBucket":"beats","sourcePath":"e2e/source.mp3","destPath":"previews/e2e.mp3"}`
	response, err := http.Post(
		previewdEndpoint+"/v1/previews", "application/json", strings.NewReader(requestBody))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		fmt.Printf("Expected status 200, got %d\n", response.StatusCode)
		os.Exit(1)
	}

	var preview previewResponse
	err = json.NewDecoder(response.Body).Decode(&preview)
	if err != nil {
		fmt.Println("Failed to parse response: ", err)
		os.Exit(1)
	}

	if preview.PublicURL == "" || preview.Path != "previews/e2e.mp3" {
		fmt.Printf("Unexpected response body: %+v\n", preview)
		os.Exit(1)
	}

	fmt.Println("Fetching the published artifact...")

	artifactResp, err := http.Get(preview.PublicURL)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	artifactResp.Body.Close()

	if artifactResp.StatusCode != http.StatusOK {
		fmt.Printf("Artifact fetch returned status %d\n", artifactResp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Waiting for the notification message...")

	msg, err := receiveNotification(*queueURL)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if msg.Object.Path != preview.Path || msg.Object.PublicURL != preview.PublicURL {
		fmt.Printf("Notification disagrees with the response: %+v\n", msg)
		os.Exit(1)
	}
	if msg.RequestID == "" || msg.SchemaVersion == "" || msg.Object.SizeInBytes == 0 {
		fmt.Printf("Notification is missing fields: %+v\n", msg)
		os.Exit(1)
	}

	fmt.Println("Validation finished with success!")
}

func receiveNotification(queueURL string) (*notification, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	sdkConfig, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithBaseEndpoint(localstackEndpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	sqsClient := sqs.NewFromConfig(sdkConfig)

	for {
		received, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:          aws.String(queueURL),
			WaitTimeSeconds:   10,
			VisibilityTimeout: 30,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to receive from queue: %w", err)
		}

		if len(received.Messages) == 0 {
			continue
		}

		msg := &notification{}
		err = json.Unmarshal([]byte(*received.Messages[0].Body), msg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse notification: %w", err)
		}

		return msg, nil
	}
}
