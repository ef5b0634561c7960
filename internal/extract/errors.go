package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/snarg/vidscribe/internal/transcribe"
	"github.com/snarg/vidscribe/internal/transcript"
	"github.com/snarg/vidscribe/internal/youtube"
)

// Kind classifies every way an extraction can fail. The set is closed.
type Kind string

const (
	InvalidConfiguration  Kind = "InvalidConfiguration"
	InvalidVideoReference Kind = "InvalidVideoReference"
	MissingCredential     Kind = "MissingCredential"
	MissingDependency     Kind = "MissingDependency"
	AuthenticationFailed  Kind = "AuthenticationFailed"
	AcquisitionFailed     Kind = "AcquisitionFailed"
	NoTranscriptAvailable Kind = "NoTranscriptAvailable"
	InternalError         Kind = "InternalError"
)

// Kinds lists every Kind in declaration order.
var Kinds = []Kind{
	InvalidConfiguration,
	InvalidVideoReference,
	MissingCredential,
	MissingDependency,
	AuthenticationFailed,
	AcquisitionFailed,
	NoTranscriptAvailable,
	InternalError,
}

// Error is a classified pipeline failure. Msg is safe to show to users;
// Err carries the underlying cause for logs.
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

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of err. Errors that were never classified are
// InternalError.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InternalError
}

// classify converts an error from a collaborator into an *Error. Already
// classified errors pass through unchanged.
func classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, youtube.ErrInvalidVideoID):
		return newError(InvalidVideoReference, err, "input does not identify a video")
	case errors.Is(err, transcript.ErrEmpty):
		return newError(NoTranscriptAvailable, err, "transcript contained no usable text")
	case errors.Is(err, transcript.ErrUnknownFormat):
		return newError(InvalidConfiguration, err, "unknown output format")
	case errors.Is(err, transcribe.ErrFFmpegNotFound):
		return newError(MissingDependency, err, "ffmpeg is required for speech transcription")
	case transcribe.IsAuthError(err):
		return newError(AuthenticationFailed, err, "speech model rejected the credential")
	case errors.Is(err, transcribe.ErrMalformedResponse):
		return newError(NoTranscriptAvailable, err, "speech model returned an unreadable transcript")
	case errors.Is(err, context.DeadlineExceeded):
		return newError(AcquisitionFailed, err, "timed out")
	case errors.Is(err, context.Canceled):
		return newError(AcquisitionFailed, err, "cancelled")
	case errors.Is(err, youtube.ErrUnavailable),
		errors.Is(err, youtube.ErrNoAudioStream):
		return newError(AcquisitionFailed, err, "video content is not retrievable")
	}
	return newError(InternalError, err, "unexpected failure")
}
