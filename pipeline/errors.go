package pipeline

import "fmt"

// Kind classifies job-level failures
type Kind string

const (
	MissingInput     Kind = "MissingInput"
	DownloadFailure  Kind = "DownloadFailure"
	SynthesisFailure Kind = "SynthesisFailure"
	NoValidClips     Kind = "NoValidClips"
	RenderFailure    Kind = "RenderFailure"
	UploadFailure    Kind = "UploadFailure"
)

// Error is a failed job. Msg is safe to show to callers; Err is the cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Public renders the error without its cause
func (e *Error) Public() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func fail(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}
