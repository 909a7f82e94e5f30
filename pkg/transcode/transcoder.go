package transcode

import "context"

// Transcoder is the narrow seam around the external encoding capability, so
// the underlying tool (subprocess today, library binding some day) can be
// swapped without touching the pipeline.
type Transcoder interface {
	// Probe verifies the encoding tool is invocable on this host. It is run
	// before the pipeline does any network I/O, so an unprovisioned host is
	// reported as such instead of as a per-job failure.
	Probe(ctx context.Context) error

	// Transcode applies the fixed preview policy to inputPath, writing the
	// artifact to outputPath.
	Transcode(ctx context.Context, inputPath string, outputPath string) error
}
