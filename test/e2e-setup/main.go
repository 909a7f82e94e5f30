// nolint: forbidigo
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

const localstackEndpoint = "http://localhost:4566"

// Prepares a localstack instance for an end-to-end run: the private source
// bucket, the public preview bucket, the notification queue, and one source
// asset to generate a preview from.
func main() {
	queue := flag.String("q", "", "The name of the notification queue")
	sourceFile := flag.String("f", "", "A local audio file to seed as the source asset")
	flag.Parse()

	if *queue == "" || *sourceFile == "" {
		fmt.Println("You must supply a queue name (-q QUEUE) and a source audio file (-f FILE)")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sdkConfig, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithBaseEndpoint(localstackEndpoint),
	)
	if err != nil {
		fmt.Println("Failed to load AWS config: ", err)
		os.Exit(1)
	}

	sqsClient := sqs.NewFromConfig(sdkConfig)

	fmt.Printf("Creating queue %s\n", *queue)
	_, err = sqsClient.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName: queue,
		Attributes: map[string]string{
			"MessageRetentionPeriod": "120",
		},
	})
	if err != nil {
		fmt.Println("Failed to create queue: ", err)
		os.Exit(1)
	}

	s3Client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	for _, bucket := range []string{"beats", "previews"} {
		fmt.Printf("Creating bucket %s\n", bucket)
		_, err = s3Client.CreateBucket(ctx, &s3.CreateBucketInput{
			Bucket: aws.String(bucket),
		})
		if err != nil {
			fmt.Println("Failed to create bucket: ", err)
			os.Exit(1)
		}
	}

	audio, err := os.Open(*sourceFile)
	if err != nil {
		fmt.Println("Failed to open source file: ", err)
		os.Exit(1)
	}
	defer audio.Close()

	fmt.Println("Seeding source asset beats/e2e/source.mp3")
	_, err = s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String("beats"),
		Key:    aws.String("e2e/source.mp3"),
		Body:   audio,
	})
	if err != nil {
		fmt.Println("Failed to seed source asset: ", err)
		os.Exit(1)
	}

	fmt.Println("Setup finished with success!")
}
