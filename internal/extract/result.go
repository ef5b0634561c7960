package extract

import (
	"encoding/json"

	"github.com/snarg/vidscribe/internal/transcript"
)

// Success is the payload of a completed extraction.
type Success struct {
	Metadata    transcript.Metadata     `json:"metadata"`
	Content     string                  `json:"content"`
	Format      transcript.Format       `json:"format"`
	Source      transcript.SourceMethod `json:"source"`
	CaptionKind transcript.CaptionKind  `json:"caption_kind,omitempty"`
}

// Failure is the user-visible part of a failed extraction.
type Failure struct {
	Kind    Kind   `json:"error_kind"`
	Message string `json:"message"`
}

// Result is either a Success or a Failure, never both. Build it with
// Succeeded or Failed.
type Result struct {
	success *Success
	failure *Failure
}

// Succeeded wraps a successful extraction.
func Succeeded(s Success) Result {
	return Result{success: &s}
}

// Failed wraps err as a failed extraction. Unclassified errors become
// InternalError.
func Failed(err error) Result {
	e := classify(err)
	msg := e.Msg
	if e.Kind == InternalError {
		msg = "internal error"
	}
	return Result{failure: &Failure{Kind: e.Kind, Message: msg}}
}

// OK reports whether the extraction succeeded.
func (r Result) OK() bool { return r.success != nil }

// Success returns the success branch.
func (r Result) Success() (Success, bool) {
	if r.success == nil {
		return Success{}, false
	}
	return *r.success, true
}

// Failure returns the failure branch. A zero Result reports an internal error.
func (r Result) Failure() (Failure, bool) {
	switch {
	case r.failure != nil:
		return *r.failure, true
	case r.success == nil:
		return Failure{Kind: InternalError, Message: "empty result"}, true
	}
	return Failure{}, false
}

// MarshalJSON encodes the active branch with an "ok" discriminator.
func (r Result) MarshalJSON() ([]byte, error) {
	if s, ok := r.Success(); ok {
		return json.Marshal(struct {
			OK bool `json:"ok"`
			Success
		}{true, s})
	}
	f, _ := r.Failure()
	return json.Marshal(struct {
		OK bool `json:"ok"`
		Failure
	}{false, f})
}
