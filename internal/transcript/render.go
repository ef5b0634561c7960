package transcript

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Format selects how a transcript body is rendered.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ErrUnknownFormat is returned for format values outside the closed set.
var ErrUnknownFormat = errors.New("unknown format")

// Formats lists the accepted format values.
var Formats = []Format{FormatText, FormatMarkdown}

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatMarkdown:
		return f, nil
	}
	return "", fmt.Errorf("%w %q: must be one of text, markdown", ErrUnknownFormat, s)
}

// Render serializes the transcript body. Metadata is accepted so callers can
// hand the full request context to one place, but it is never embedded in the
// output: it travels alongside the content in the result object.
func Render(t Transcript, _ Metadata, format Format) (string, error) {
	switch format {
	case FormatText:
		return renderText(t), nil
	case FormatMarkdown:
		return renderMarkdown(t), nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

func renderText(t Transcript) string {
	parts := make([]string, len(t.Segments))
	for i, seg := range t.Segments {
		parts[i] = seg.Text
	}
	return strings.Join(parts, " ")
}

func renderMarkdown(t Transcript) string {
	var sb strings.Builder
	for _, seg := range t.Segments {
		sb.WriteByte('[')
		sb.WriteString(Timestamp(seg.Start))
		sb.WriteString("] ")
		sb.WriteString(seg.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// Timestamp formats d as zero-padded HH:MM:SS, truncating sub-second precision.
// Hours keep accumulating past 24.
func Timestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
