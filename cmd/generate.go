package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/trackforge/previewd/pkg/config"
	"github.com/trackforge/previewd/pkg/logger"
	"github.com/trackforge/previewd/pkg/preview"
)

const (
	exitCodeFailure = 1
	exitCodeUsage   = 2
)

func newGenerateCommand() *cobra.Command {
	var sourceBucket string
	var sourcePath string
	var destBucket string
	var destPath string

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Runs the preview pipeline once for a single asset",
		Run: func(cmd *cobra.Command, args []string) {
			publicURL, err := runGenerate(preview.Request{
				SourceBucket: sourceBucket,
				SourcePath:   sourcePath,
				DestBucket:   destBucket,
				DestPath:     destPath,
			})
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitCodeFor(err))
			}

			fmt.Println(publicURL)
		},
	}

	generateCmd.Flags().StringVar(&sourceBucket, "bucket", "", "[required]The private bucket holding the source asset")
	generateCmd.Flags().StringVar(&sourcePath, "path", "", "[required]The key of the source asset")
	generateCmd.Flags().StringVar(&destBucket, "dest-bucket", "", "The public bucket to publish the preview into")
	generateCmd.Flags().StringVar(&destPath, "dest", "", "The key to publish the preview under")

	err := generateCmd.MarkFlagRequired("bucket")
	if err != nil {
		panic(fmt.Sprintf("err on flags setup: %v", err))
	}
	err = generateCmd.MarkFlagRequired("path")
	if err != nil {
		panic(fmt.Sprintf("err on flags setup: %v", err))
	}

	return generateCmd
}

func runGenerate(req preview.Request) (string, error) {
	conf, err := initializeConfig()
	if err != nil {
		return "", &preview.Error{Kind: preview.KindConfig, ExitCode: -1, Err: err}
	}

	l := logger.New(conf.Log)

	creds, err := config.StorageCredentialsFromEnv()
	if err != nil {
		return "", &preview.Error{Kind: preview.KindConfig, ExitCode: -1, Err: err}
	}

	pipeline, err := createPipeline(conf, l, creds, prometheus.NewRegistry())
	if err != nil {
		return "", &preview.Error{Kind: preview.KindConfig, ExitCode: -1, Err: err}
	}

	result, err := pipeline.Run(context.Background(), req)
	if err != nil {
		return "", err
	}

	return result.PublicURL, nil
}

// exitCodeFor keeps the operator contract: 2 means "fix your invocation or
// the host", 1 means "this job failed".
func exitCodeFor(err error) int {
	switch preview.KindOf(err) {
	case preview.KindConfig, preview.KindToolUnavailable:
		return exitCodeUsage
	default:
		return exitCodeFailure
	}
}
