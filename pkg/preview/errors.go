package preview

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures. Every stage failure is fatal for
// the invocation, none of them is retried internally: each stage consumes a
// resource (a signed URL, a spawned process) that cannot be safely re-entered
// without regenerating it. Callers decide whether to re-run from scratch.
type ErrorKind string

const (
	KindConfig          ErrorKind = "config"
	KindToolUnavailable ErrorKind = "tool_unavailable"
	KindSourceAccess    ErrorKind = "source_access"
	KindFetch           ErrorKind = "fetch"
	KindTranscode       ErrorKind = "transcode"
	KindPublish         ErrorKind = "publish"
	KindTimeout         ErrorKind = "timeout"
)

type Error struct {
	Kind  ErrorKind
	Stage string
	// ExitCode is only meaningful for transcode failures, -1 otherwise.
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s error on stage %s: %v", e.Kind, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, ExitCode: -1, Err: err}
}

func configError(format string, args ...interface{}) *Error {
	return newError(KindConfig, "", fmt.Errorf(format, args...))
}

// KindOf extracts the pipeline error kind, or empty when err is not a
// pipeline error.
func KindOf(err error) ErrorKind {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Kind
	}
	return ""
}
