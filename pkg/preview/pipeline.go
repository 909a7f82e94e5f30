package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/trackforge/previewd/pkg/config"
	"github.com/trackforge/previewd/pkg/domain"
	"github.com/trackforge/previewd/pkg/logger"
	"github.com/trackforge/previewd/pkg/transcode"
)

const (
	stageSign      = "sign"
	stageFetch     = "fetch"
	stageTranscode = "transcode"
	stagePublish   = "publish"
)

// Storage is the slice of the object-storage capability the pipeline needs:
// a time-boxed read credential for the private store, an upsert write into
// the public one, and public address resolution.
type Storage interface {
	PresignGet(ctx context.Context, bucket string, key string, ttl time.Duration) (string, error)
	Upload(ctx context.Context, bucket string, key string, data []byte, contentType string) (*domain.UploadResult, error)
	PublicURL(bucket string, key string) string
}

type Notifier interface {
	Notify(ctx context.Context, msg *domain.MessageContext) error
}

type Request struct {
	SourceBucket string
	SourcePath   string
	DestBucket   string
	DestPath     string
}

type Result struct {
	Path      string
	PublicURL string
}

// Pipeline runs the four stages (sign, fetch, transcode, publish) strictly in
// order, once per invocation. There is no internal concurrency and no
// internal retry; isolation between concurrent invocations comes from the
// per-run workspace.
type Pipeline struct {
	log           *slog.Logger
	conf          config.PipelineConfig
	previewBucket string
	storage       Storage
	fetcher       *Fetcher
	transcoder    transcode.Transcoder
	notifier      Notifier
	metrics       *metricCollector
	now           func() time.Time
}

func New(
	l *slog.Logger, conf config.PipelineConfig, previewBucket string, storage Storage,
	transcoder transcode.Transcoder, notifier Notifier, metricRegistry *prometheus.Registry,
) *Pipeline {
	return &Pipeline{
		log:           l.With(logger.ComponentKey, "pipeline"),
		conf:          conf,
		previewBucket: previewBucket,
		storage:       storage,
		fetcher:       NewFetcher(),
		transcoder:    transcoder,
		notifier:      notifier,
		metrics:       newMetricCollector(metricRegistry),
		now:           time.Now,
	}
}

func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	result, err := p.run(ctx, req)
	if err != nil {
		p.metrics.incRunResult(string(kindOrUnknown(err)))
		return nil, err
	}

	p.metrics.incRunResult("success")
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, req Request) (*Result, error) {
	if req.SourceBucket == "" {
		return nil, configError("sourceBucket cannot be empty")
	}
	if req.SourcePath == "" {
		return nil, configError("sourcePath cannot be empty")
	}

	if req.DestBucket == "" {
		req.DestBucket = p.previewBucket
	}
	if req.DestPath == "" {
		req.DestPath = fmt.Sprintf("previews/preview_%d.mp3", p.now().UnixMilli())
	}

	requestID := uuid.NewString()
	log := p.log.With(logger.RequestIDKey, requestID)
	log.Info("starting preview generation",
		"source_bucket", req.SourceBucket, "source_path", req.SourcePath,
		"dest_bucket", req.DestBucket, "dest_path", req.DestPath)

	// Tool availability is checked before any network I/O, so an
	// unprovisioned host never touches the source store.
	err := p.transcoder.Probe(ctx)
	if err != nil {
		return nil, newError(KindToolUnavailable, "", err)
	}

	signedURL, err := p.signSource(ctx, req)
	if err != nil {
		return nil, err
	}

	ws, err := NewWorkspace()
	if err != nil {
		return nil, err
	}
	defer func() {
		removeErr := ws.Remove()
		if removeErr != nil {
			log.Error("error removing scratch workspace", "dir", ws.Dir(), "error", removeErr)
		}
	}()

	inputPath := ws.InputPath(req.SourcePath)
	err = p.fetchSource(ctx, signedURL, inputPath)
	if err != nil {
		return nil, err
	}

	err = p.transcodeInput(ctx, inputPath, ws.OutputPath())
	if err != nil {
		return nil, err
	}

	result, err := p.publishArtifact(ctx, ws.OutputPath(), req, requestID, log)
	if err != nil {
		return nil, err
	}

	log.Info("preview published", "path", result.Path, "public_url", result.PublicURL)
	return result, nil
}

func (p *Pipeline) signSource(ctx context.Context, req Request) (string, error) {
	startTime := time.Now()
	signedURL, err := p.storage.PresignGet(ctx, req.SourceBucket, req.SourcePath, p.conf.SignedURLTTL())
	p.metrics.observeStage(stageSign, time.Since(startTime))

	if err != nil {
		return "", p.stageError(KindSourceAccess, stageSign, err)
	}

	return signedURL, nil
}

func (p *Pipeline) fetchSource(ctx context.Context, signedURL string, inputPath string) error {
	fetchCtx, cancel := context.WithTimeout(ctx, p.conf.FetchTimeout())
	defer cancel()

	startTime := time.Now()
	err := p.fetcher.Fetch(fetchCtx, signedURL, inputPath)
	p.metrics.observeStage(stageFetch, time.Since(startTime))

	if err != nil {
		return p.stageError(KindFetch, stageFetch, err)
	}

	return nil
}

func (p *Pipeline) transcodeInput(ctx context.Context, inputPath string, outputPath string) error {
	transcodeCtx, cancel := context.WithTimeout(ctx, p.conf.TranscodeTimeout())
	defer cancel()

	startTime := time.Now()
	err := p.transcoder.Transcode(transcodeCtx, inputPath, outputPath)
	p.metrics.observeStage(stageTranscode, time.Since(startTime))

	if err != nil {
		pipelineErr := p.stageError(KindTranscode, stageTranscode, err)

		var exitErr *transcode.ExitError
		var pErr *Error
		if errors.As(err, &exitErr) && errors.As(pipelineErr, &pErr) {
			pErr.ExitCode = exitErr.ExitCode
		}

		return pipelineErr
	}

	return nil
}

func (p *Pipeline) publishArtifact(
	ctx context.Context, outputPath string, req Request, requestID string, log *slog.Logger,
) (*Result, error) {
	artifact, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, newError(KindPublish, stagePublish, fmt.Errorf("error reading produced artifact: %w", err))
	}

	uploadCtx, cancel := context.WithTimeout(ctx, p.conf.UploadTimeout())
	defer cancel()

	startTime := time.Now()
	uploadResult, err := p.storage.Upload(uploadCtx, req.DestBucket, req.DestPath, artifact, domain.PreviewContentType)
	p.metrics.observeStage(stagePublish, time.Since(startTime))

	if err != nil {
		return nil, p.stageError(KindPublish, stagePublish, err)
	}

	publicURL := uploadResult.URL
	if publicURL == "" {
		publicURL = p.storage.PublicURL(req.DestBucket, req.DestPath)
	}

	if p.notifier != nil {
		notifyErr := p.notifier.Notify(ctx, &domain.MessageContext{
			Bucket:      req.DestBucket,
			Path:        req.DestPath,
			URL:         publicURL,
			SizeInBytes: len(artifact),
			RequestID:   requestID,
		})
		if notifyErr != nil {
			// The artifact is already live, a notification failure must not
			// fail the run.
			log.Warn("error notifying preview publication", "error", notifyErr)
		}
	}

	return &Result{Path: req.DestPath, PublicURL: publicURL}, nil
}

// stageError maps deadline exceedance to the timeout kind, anything else to
// the stage's own kind.
func (p *Pipeline) stageError(kind ErrorKind, stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, stage, err)
	}

	return newError(kind, stage, err)
}

func kindOrUnknown(err error) ErrorKind {
	kind := KindOf(err)
	if kind == "" {
		return "unknown"
	}

	return kind
}
