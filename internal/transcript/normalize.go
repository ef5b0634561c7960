package transcript

import (
	"html"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// stripPolicy removes every tag and keeps only text content.
var stripPolicy = bluemonday.StrictPolicy()

// Normalize turns adapter output into a canonical Transcript.
//
// Text is unescaped, stripped of markup, forced to valid NFC UTF-8 and
// whitespace-collapsed. Segments with empty text are dropped. The rest are
// stable-sorted by Start, and segments sharing a Start are merged in input
// order with a single space. Returns ErrEmpty if nothing survives.
func Normalize(source SourceMethod, kind CaptionKind, raw []RawSegment) (Transcript, error) {
	cleaned := make([]Segment, 0, len(raw))
	for _, r := range raw {
		text := CleanText(r.Text)
		if text == "" {
			continue
		}
		start := r.Start
		if start < 0 {
			start = 0
		}
		cleaned = append(cleaned, Segment{Start: start, Text: text})
	}

	if len(cleaned) == 0 {
		return Transcript{}, ErrEmpty
	}

	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Start < cleaned[j].Start
	})

	merged := cleaned[:1]
	for _, seg := range cleaned[1:] {
		last := &merged[len(merged)-1]
		if seg.Start == last.Start {
			last.Text += " " + seg.Text
			continue
		}
		merged = append(merged, seg)
	}

	if source != SourceNativeCaption {
		kind = ""
	}
	return Transcript{Segments: merged, Source: source, CaptionKind: kind}, nil
}

// CleanText applies the per-segment text cleanup used by Normalize.
func CleanText(s string) string {
	s = strings.ToValidUTF8(s, "")
	// Entities first so encoded tags (&lt;i&gt;) are stripped as tags too.
	s = html.UnescapeString(s)
	// The policy escapes its output, so unescape once more.
	s = html.UnescapeString(stripPolicy.Sanitize(s))
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}
