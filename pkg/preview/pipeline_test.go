package preview_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackforge/previewd/pkg/config"
	"github.com/trackforge/previewd/pkg/domain"
	"github.com/trackforge/previewd/pkg/logger"
	"github.com/trackforge/previewd/pkg/preview"
	"github.com/trackforge/previewd/pkg/transcode"
)

var llog = logger.NewDummy()

const testPreviewBucket = "previews"

func testPipelineConf() config.PipelineConfig {
	return config.PipelineConfig{
		SignedURLTTLInSeconds:     60,
		FetchTimeoutInSeconds:     60,
		TranscodeTimeoutInSeconds: 60,
		UploadTimeoutInSeconds:    60,
	}
}

type uploadCall struct {
	bucket      string
	key         string
	data        []byte
	contentType string
}

type stubStorage struct {
	mu           sync.Mutex
	signedURL    string
	signErr      error
	presignCalls int
	uploads      []uploadCall
	uploadErr    error
}

func (s *stubStorage) PresignGet(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presignCalls++
	if s.signErr != nil {
		return "", s.signErr
	}
	return s.signedURL, nil
}

func (s *stubStorage) Upload(
	_ context.Context, bucket, key string, data []byte, contentType string,
) (*domain.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	s.uploads = append(s.uploads, uploadCall{bucket: bucket, key: key, data: data, contentType: contentType})
	return &domain.UploadResult{
		Bucket:      bucket,
		Path:        key,
		URL:         s.PublicURL(bucket, key),
		SizeInBytes: len(data),
	}, nil
}

func (s *stubStorage) PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://cdn.example.com/%s/%s", bucket, key)
}

type stubTranscoder struct {
	probeErr     error
	transcodeErr error
	inputPath    string
	outputPath   string
	calls        int
	output       []byte
}

func (tr *stubTranscoder) Probe(_ context.Context) error {
	return tr.probeErr
}

func (tr *stubTranscoder) Transcode(_ context.Context, inputPath, outputPath string) error {
	tr.calls++
	tr.inputPath = inputPath
	tr.outputPath = outputPath
	if tr.transcodeErr != nil {
		return tr.transcodeErr
	}

	output := tr.output
	if output == nil {
		output = []byte("transcoded preview bytes")
	}
	return os.WriteFile(outputPath, output, 0o644)
}

type stubNotifier struct {
	msgs []*domain.MessageContext
	err  error
}

func (n *stubNotifier) Notify(_ context.Context, msg *domain.MessageContext) error {
	if n.err != nil {
		return n.err
	}
	n.msgs = append(n.msgs, msg)
	return nil
}

func sourceServer(t *testing.T, status int, payload []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write(payload) //nolint:errcheck
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestPipeline(
	storage *stubStorage, transcoder *stubTranscoder, notifier *stubNotifier,
) *preview.Pipeline {
	return preview.New(
		llog, testPipelineConf(), testPreviewBucket, storage, transcoder, notifier,
		prometheus.NewRegistry(),
	)
}

func TestPipelineHappyPath(t *testing.T) {
	server := sourceServer(t, http.StatusOK, []byte("full length track"))

	storage := &stubStorage{signedURL: server.URL + "/signed"}
	transcoder := &stubTranscoder{}
	notifier := &stubNotifier{}

	pipeline := newTestPipeline(storage, transcoder, notifier)

	result, err := pipeline.Run(context.Background(), preview.Request{
		SourceBucket: "beats",
		SourcePath:   "beats/mp3/track1.wav",
	})
	require.NoError(t, err)

	require.Len(t, storage.uploads, 1)
	upload := storage.uploads[0]

	assert.Equal(t, testPreviewBucket, upload.bucket, "dest bucket should default to the preview bucket")
	assert.Regexp(t, regexp.MustCompile(`^previews/preview_\d+\.mp3$`), upload.key,
		"dest key should default to a timestamped previews key")
	assert.Equal(t, "audio/mpeg", upload.contentType)
	assert.Equal(t, []byte("transcoded preview bytes"), upload.data,
		"the published bytes must be the transcoder's output")

	assert.Equal(t, upload.key, result.Path)
	assert.Equal(t, storage.PublicURL(testPreviewBucket, upload.key), result.PublicURL)

	assert.Equal(t, "input.wav", filepath.Base(transcoder.inputPath),
		"input file should keep the source extension")
	assert.Equal(t, "preview.mp3", filepath.Base(transcoder.outputPath))

	require.Len(t, notifier.msgs, 1)
	assert.Equal(t, result.PublicURL, notifier.msgs[0].URL)
	assert.Equal(t, result.Path, notifier.msgs[0].Path)
}

func TestPipelineUsesExplicitDestination(t *testing.T) {
	server := sourceServer(t, http.StatusOK, []byte("full length track"))

	storage := &stubStorage{signedURL: server.URL}
	pipeline := newTestPipeline(storage, &stubTranscoder{}, &stubNotifier{})

	result, err := pipeline.Run(context.Background(), preview.Request{
		SourceBucket: "beats",
		SourcePath:   "beats/track.mp3",
		DestBucket:   "other-previews",
		DestPath:     "previews/track-preview.mp3",
	})
	require.NoError(t, err)

	require.Len(t, storage.uploads, 1)
	assert.Equal(t, "other-previews", storage.uploads[0].bucket)
	assert.Equal(t, "previews/track-preview.mp3", storage.uploads[0].key)
	assert.Equal(t, "previews/track-preview.mp3", result.Path)
}

func TestPipelineRejectsEmptyInputs(t *testing.T) {
	storage := &stubStorage{}
	pipeline := newTestPipeline(storage, &stubTranscoder{}, &stubNotifier{})

	_, err := pipeline.Run(context.Background(), preview.Request{SourcePath: "track.mp3"})
	assert.Equal(t, preview.KindConfig, preview.KindOf(err), "empty source bucket should be a config error")

	_, err = pipeline.Run(context.Background(), preview.Request{SourceBucket: "beats"})
	assert.Equal(t, preview.KindConfig, preview.KindOf(err), "empty source path should be a config error")

	assert.Zero(t, storage.presignCalls, "validation failures should never touch the store")
}

func TestPipelineFailsFastOnMissingTool(t *testing.T) {
	storage := &stubStorage{}
	transcoder := &stubTranscoder{probeErr: transcode.ErrBinaryNotFound}

	pipeline := newTestPipeline(storage, transcoder, &stubNotifier{})

	_, err := pipeline.Run(context.Background(), preview.Request{
		SourceBucket: "beats",
		SourcePath:   "track.mp3",
	})

	assert.Equal(t, preview.KindToolUnavailable, preview.KindOf(err))
	assert.Zero(t, storage.presignCalls,
		"an unprovisioned host must not make any network call to the source store")
}

func TestPipelineSourceAccessFailure(t *testing.T) {
	storage := &stubStorage{signErr: errors.New("object not found")}
	transcoder := &stubTranscoder{}

	pipeline := newTestPipeline(storage, transcoder, &stubNotifier{})

	_, err := pipeline.Run(context.Background(), preview.Request{
		SourceBucket: "beats",
		SourcePath:   "does-not-exist.mp3",
	})

	assert.Equal(t, preview.KindSourceAccess, preview.KindOf(err))
	assert.Zero(t, transcoder.calls, "nothing should be transcoded without a source")
	assert.Empty(t, storage.uploads, "no destination object should be created")
}

func TestPipelineFetchFailure(t *testing.T) {
	server := sourceServer(t, http.StatusForbidden, nil)

	storage := &stubStorage{signedURL: server.URL}
	transcoder := &stubTranscoder{}

	pipeline := newTestPipeline(storage, transcoder, &stubNotifier{})

	_, err := pipeline.Run(context.Background(), preview.Request{
		SourceBucket: "beats",
		SourcePath:   "track.mp3",
	})

	assert.Equal(t, preview.KindFetch, preview.KindOf(err))
	assert.Zero(t, transcoder.calls)
	assert.Empty(t, storage.uploads)
}

func TestPipelineTranscodeFailureCarriesExitCode(t *testing.T) {
	server := sourceServer(t, http.StatusOK, []byte("not really audio"))

	storage := &stubStorage{signedURL: server.URL}
	transcoder := &stubTranscoder{
		transcodeErr: &transcode.ExitError{ExitCode: 1, Stderr: "invalid data found"},
	}

	pipeline := newTestPipeline(storage, transcoder, &stubNotifier{})

	_, err := pipeline.Run(context.Background(), preview.Request{
		SourceBucket: "beats",
		SourcePath:   "track.mp3",
	})

	assert.Equal(t, preview.KindTranscode, preview.KindOf(err))

	var pErr *preview.Error
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, 1, pErr.ExitCode, "the encoder's exit status should survive for diagnostics")

	assert.Empty(t, storage.uploads, "a failed transcode must never publish anything")
}

func TestPipelinePublishFailure(t *testing.T) {
	server := sourceServer(t, http.StatusOK, []byte("full length track"))

	storage := &stubStorage{signedURL: server.URL, uploadErr: errors.New("bucket is on fire")}
	pipeline := newTestPipeline(storage, &stubTranscoder{}, &stubNotifier{})

	_, err := pipeline.Run(context.Background(), preview.Request{
		SourceBucket: "beats",
		SourcePath:   "track.mp3",
	})

	assert.Equal(t, preview.KindPublish, preview.KindOf(err))
}

func TestWorkspaceIsRemovedOnEveryOutcome(t *testing.T) {
	testCases := []struct {
		name    string
		storage func(serverURL string) *stubStorage
		encoder *stubTranscoder
	}{
		{
			name:    "success",
			storage: func(url string) *stubStorage { return &stubStorage{signedURL: url} },
			encoder: &stubTranscoder{},
		},
		{
			name: "transcode failure",
			storage: func(url string) *stubStorage {
				return &stubStorage{signedURL: url}
			},
			encoder: &stubTranscoder{transcodeErr: &transcode.ExitError{ExitCode: 1}},
		},
		{
			name: "publish failure",
			storage: func(url string) *stubStorage {
				return &stubStorage{signedURL: url, uploadErr: errors.New("upload refused")}
			},
			encoder: &stubTranscoder{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := sourceServer(t, http.StatusOK, []byte("full length track"))

			pipeline := newTestPipeline(tc.storage(server.URL), tc.encoder, &stubNotifier{})

			_, _ = pipeline.Run(context.Background(), preview.Request{
				SourceBucket: "beats",
				SourcePath:   "track.mp3",
			})

			require.NotEmpty(t, tc.encoder.inputPath, "transcoder should have been reached")
			workspaceDir := filepath.Dir(tc.encoder.inputPath)
			_, err := os.Stat(workspaceDir)
			assert.True(t, os.IsNotExist(err), "scratch workspace should be gone after the run")
		})
	}
}

func TestPipelineFetchTimeoutMapsToTimeoutKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	storage := &stubStorage{signedURL: server.URL}

	conf := testPipelineConf()
	conf.FetchTimeoutInSeconds = 1

	pipeline := preview.New(
		llog, conf, testPreviewBucket, storage, &stubTranscoder{}, &stubNotifier{},
		prometheus.NewRegistry(),
	)

	_, err := pipeline.Run(context.Background(), preview.Request{
		SourceBucket: "beats",
		SourcePath:   "track.mp3",
	})

	assert.Equal(t, preview.KindTimeout, preview.KindOf(err))
}

func TestNotifierFailureDoesNotFailTheRun(t *testing.T) {
	server := sourceServer(t, http.StatusOK, []byte("full length track"))

	storage := &stubStorage{signedURL: server.URL}
	notifier := &stubNotifier{err: errors.New("queue unreachable")}

	pipeline := newTestPipeline(storage, &stubTranscoder{}, notifier)

	result, err := pipeline.Run(context.Background(), preview.Request{
		SourceBucket: "beats",
		SourcePath:   "track.mp3",
	})

	require.NoError(t, err, "the artifact is already live, notification failures are not run failures")
	assert.NotEmpty(t, result.PublicURL)
}

func TestConcurrentRunsStayIsolated(t *testing.T) {
	server := sourceServer(t, http.StatusOK, []byte("full length track"))

	const runs = 8

	inputDirs := make([]string, runs)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			storage := &stubStorage{signedURL: server.URL}
			transcoder := &stubTranscoder{}
			pipeline := newTestPipeline(storage, transcoder, &stubNotifier{})

			_, err := pipeline.Run(context.Background(), preview.Request{
				SourceBucket: "beats",
				SourcePath:   fmt.Sprintf("track%d.mp3", idx),
				DestPath:     fmt.Sprintf("previews/track%d.mp3", idx),
			})
			assert.NoError(t, err)

			mu.Lock()
			inputDirs[idx] = filepath.Dir(transcoder.inputPath)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	for _, dir := range inputDirs {
		require.NotEmpty(t, dir)
		_, duplicated := seen[dir]
		assert.False(t, duplicated, "two runs shared the scratch dir %s", dir)
		seen[dir] = struct{}{}
	}
}
