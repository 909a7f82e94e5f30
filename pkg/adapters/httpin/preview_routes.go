package httpin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/trackforge/previewd/pkg/preview"
)

// PipelineRunner is the seam between the HTTP adapter and the pipeline core.
type PipelineRunner interface {
	Run(ctx context.Context, req preview.Request) (*preview.Result, error)
}

type previewRequestBody struct {
	SourceBucket string `json:"sourceBucket"`
	SourcePath   string `json:"sourcePath"`
	DestBucket   string `json:"destBucket"`
	DestPath     string `json:"destPath"`
}

type previewResponseBody struct {
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
}

type errorResponseBody struct {
	Error string `json:"error"`
}

// RegisterPreviewRoutes wires the preview generation endpoint. A nil runner
// means the server booted without its storage credentials; the route still
// exists but reports the misconfiguration, before touching the request body.
func RegisterPreviewRoutes(api *API, version string, runner PipelineRunner) {
	path := "/" + version + "/previews"
	api.mux.Post(path, generatePreview(api.log, runner))
}

func generatePreview(l *slog.Logger, runner PipelineRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			respondError(w, http.StatusInternalServerError, "server misconfigured: storage credentials missing")
			return
		}

		body := previewRequestBody{}
		err := json.NewDecoder(r.Body).Decode(&body)
		if err != nil {
			respondError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}

		if body.SourceBucket == "" || body.SourcePath == "" {
			respondError(w, http.StatusBadRequest, "sourceBucket and sourcePath are required")
			return
		}

		result, err := runner.Run(r.Context(), preview.Request{
			SourceBucket: body.SourceBucket,
			SourcePath:   body.SourcePath,
			DestBucket:   body.DestBucket,
			DestPath:     body.DestPath,
		})
		if err != nil {
			l.Warn("preview generation failed", "error", err)
			respondError(w, statusForError(err), err.Error())
			return
		}

		respondJSON(w, http.StatusOK, previewResponseBody{
			PublicURL: result.PublicURL,
			Path:      result.Path,
		})
	}
}

// statusForError maps the pipeline error taxonomy onto HTTP statuses: caller
// mistakes are 4xx, a missing encoder is a provisioning gap (503), upstream
// store trouble is 502, and everything else is a plain 500.
func statusForError(err error) int {
	switch preview.KindOf(err) {
	case preview.KindConfig:
		return http.StatusBadRequest
	case preview.KindToolUnavailable:
		return http.StatusServiceUnavailable
	case preview.KindSourceAccess, preview.KindFetch, preview.KindPublish, preview.KindTimeout:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponseBody{Error: message})
}
