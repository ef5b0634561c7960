package extract

import (
	"strings"

	"github.com/snarg/vidscribe/internal/transcript"
)

// Method is the acquisition strategy requested by the caller.
type Method string

const (
	// MethodTranscript uses the platform's published captions.
	MethodTranscript Method = "transcript"
	// MethodWhisper downloads audio and runs a speech model.
	MethodWhisper Method = "whisper"
)

// Methods lists the accepted methods.
var Methods = []Method{MethodTranscript, MethodWhisper}

// ParseMethod validates a user-supplied method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodTranscript, MethodWhisper:
		return m, nil
	}
	return "", newError(InvalidConfiguration, nil, "unknown method %q (want %s or %s)", s, MethodTranscript, MethodWhisper)
}

// parseFormat wraps transcript.ParseFormat with the pipeline's error kind.
func parseFormat(s string) (transcript.Format, error) {
	f, err := transcript.ParseFormat(s)
	if err != nil {
		return "", newError(InvalidConfiguration, err, "unknown format %q (want %s or %s)", s, transcript.FormatText, transcript.FormatMarkdown)
	}
	return f, nil
}
