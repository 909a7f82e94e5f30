package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/trackforge/previewd/pkg/adapters/httpin"
	"github.com/trackforge/previewd/pkg/adapters/notifier"
	"github.com/trackforge/previewd/pkg/adapters/objstorage"
	"github.com/trackforge/previewd/pkg/config"
	"github.com/trackforge/previewd/pkg/logger"
	"github.com/trackforge/previewd/pkg/o11y/tracing"
	"github.com/trackforge/previewd/pkg/preview"
	"github.com/trackforge/previewd/pkg/transcode"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP preview generation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := initializeConfig()
			if err != nil {
				return err
			}

			l := logger.New(conf.Log)
			startServer(conf, l)
			return nil
		},
	}
}

func startServer(conf *config.Config, l *slog.Logger) {
	metricRegistry := prometheus.NewRegistry()
	registerDefaultMetrics(metricRegistry)

	tracer, tracerShutdown := tracing.NewTracer(conf.O11y)

	// The server boots without the storage credentials so operational routes
	// stay reachable, but the preview endpoint reports the misconfiguration.
	var runner httpin.PipelineRunner
	creds, err := config.StorageCredentialsFromEnv()
	if err != nil {
		l.Error("storage credentials missing, preview generation disabled", "error", err)
	} else {
		pipeline, err := createPipeline(conf, l, creds, metricRegistry)
		if err != nil {
			l.Error("error creating pipeline", "error", err)
			panic(err)
		}
		runner = pipeline
	}

	api := httpin.NewAPI(l, *conf, metricRegistry, tracer, conf.Version, runner)

	var g run.Group

	addShutdownRelatedActors(&g, l)

	g.Add(
		func() error {
			return api.ListenAndServe()
		},
		func(error) {
			err := api.Shutdown()
			if err != nil {
				l.Error("api shutdown failed", "error", err)
			}
		},
	)

	err = g.Run()
	if err != nil {
		l.Error("something went wrong when running the components", "error", err)
	}

	err = tracerShutdown(context.Background())
	if err != nil {
		l.Error("tracer shutdown failed", "error", err)
	}

	l.Info("previewd stopped")
}

func createPipeline(
	conf *config.Config, l *slog.Logger, creds config.StorageCredentials,
	metricRegistry *prometheus.Registry,
) (*preview.Pipeline, error) {
	storage, err := objstorage.New(l, metricRegistry, conf.Storage, creds)
	if err != nil {
		return nil, fmt.Errorf("error creating object storage: %w", err)
	}

	notif, err := notifier.New(l, conf.Notifier)
	if err != nil {
		return nil, fmt.Errorf("error creating notifier: %w", err)
	}

	transcoder := transcode.NewFFmpeg(l, conf.Transcode)

	return preview.New(
		l, conf.Pipeline, conf.Storage.PreviewBucket, storage, transcoder, notif, metricRegistry,
	), nil
}

func addShutdownRelatedActors(g *run.Group, l *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())

	signalsCh := make(chan os.Signal, 2)
	signal.Notify(signalsCh, syscall.SIGINT, syscall.SIGTERM)

	g.Add(func() error {
		select {
		case s := <-signalsCh:
			l.Info("received signal, shutting down", "signal", s.String())
		case <-ctx.Done():
		}
		return nil
	}, func(error) {
		cancel()
		signal.Reset(syscall.SIGINT, syscall.SIGTERM)
	})
}

func registerDefaultMetrics(registry *prometheus.Registry) {
	registry.MustRegister(collectors.NewBuildInfoCollector())
	registry.MustRegister(collectors.NewGoCollector(
		collectors.WithGoCollectorRuntimeMetrics(collectors.GoRuntimeMetricsRule{Matcher: regexp.MustCompile("/.*")}),
	))
}
