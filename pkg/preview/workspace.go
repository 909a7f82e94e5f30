package preview

import (
	"fmt"
	"os"
	"path/filepath"
)

const outputFilename = "preview.mp3"

// Workspace is the scratch directory owned by a single pipeline run. It holds
// exactly two files: the fetched input and the produced output. The directory
// name is collision-resistant, so concurrent runs never see each other's
// files.
type Workspace struct {
	dir string
}

func NewWorkspace() (*Workspace, error) {
	dir, err := os.MkdirTemp("", "preview-")
	if err != nil {
		return nil, fmt.Errorf("error creating scratch workspace: %w", err)
	}

	return &Workspace{dir: dir}, nil
}

func (ws *Workspace) Dir() string {
	return ws.dir
}

// InputPath derives the input file path from the source key, preserving the
// original extension so the encoder can sniff the container. Keys without an
// extension default to .mp3.
func (ws *Workspace) InputPath(sourceKey string) string {
	ext := filepath.Ext(sourceKey)
	if ext == "" {
		ext = ".mp3"
	}

	return filepath.Join(ws.dir, "input"+ext)
}

func (ws *Workspace) OutputPath() string {
	return filepath.Join(ws.dir, outputFilename)
}

// Remove tears the whole workspace down. It runs on every exit path of a
// pipeline invocation, success and failure alike.
func (ws *Workspace) Remove() error {
	return os.RemoveAll(ws.dir)
}
