package transcribe

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Phrase boundaries used when a provider only reports word timing.
const (
	// PhraseGap is the silence between words that starts a new phrase.
	PhraseGap = 1.5
	// MaxPhrase caps the length of a phrase in seconds.
	MaxPhrase = 15.0
)

// GroupWords builds phrase segments from word timestamps.
//
// A new phrase starts after a silence longer than PhraseGap, after a word that
// ends a sentence, or once the current phrase would exceed MaxPhrase seconds.
// When fullText is non-empty, phrase text is sliced from it to keep punctuation
// that individual word tokens may lack. Falls back to joining word tokens.
func GroupWords(words []Word, fullText string) []Segment {
	if len(words) == 0 {
		return nil
	}

	type group struct {
		start, end        float64
		firstIdx, lastIdx int
	}

	var groups []group
	g := group{start: words[0].Start, end: words[0].End}
	for i := 1; i < len(words); i++ {
		w := words[i]
		prev := words[i-1]
		if w.Start-prev.End > PhraseGap || endsSentence(prev.Word) || w.End-g.start > MaxPhrase {
			groups = append(groups, g)
			g = group{start: w.Start, end: w.End, firstIdx: i, lastIdx: i}
			continue
		}
		g.end = w.End
		g.lastIdx = i
	}
	groups = append(groups, g)

	var positions []int
	if strings.TrimSpace(fullText) != "" {
		positions = mapWordPositions(words, fullText)
	}

	segments := make([]Segment, 0, len(groups))
	for i, grp := range groups {
		text := ""
		if positions != nil {
			textStart := positions[grp.firstIdx]
			textEnd := len(fullText)
			if i+1 < len(groups) {
				textEnd = positions[groups[i+1].firstIdx]
			}
			if i == 0 {
				textStart = 0
			}
			text = strings.TrimSpace(fullText[textStart:textEnd])
		}
		if text == "" {
			text = joinTokens(words[grp.firstIdx : grp.lastIdx+1])
		}
		segments = append(segments, Segment{Start: grp.start, End: grp.end, Text: text})
	}
	return segments
}

func joinTokens(words []Word) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if t := strings.TrimSpace(w.Word); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// mapWordPositions maps each word token to its byte offset in fullText by
// scanning forward with case-insensitive rune matching. Offsets index fullText
// itself, never a case-mapped copy, so they stay valid for slicing. Each word
// is matched once, advancing past previous matches; an unmatched word takes
// the current scan position. The result is non-decreasing and within
// len(fullText); nil means no word aligned.
func mapWordPositions(words []Word, fullText string) []int {
	positions := make([]int, len(words))
	searchFrom, matched := 0, 0
	for i, w := range words {
		positions[i] = searchFrom
		token := strings.TrimSpace(w.Word)
		if token == "" {
			continue
		}
		if start, end, ok := indexFold(fullText, searchFrom, token); ok {
			positions[i] = start
			searchFrom = end
			matched++
		}
	}
	if matched == 0 {
		return nil
	}
	return positions
}

// indexFold finds the first case-insensitive occurrence of token in s at or
// after byte offset from, returning its byte span in s.
func indexFold(s string, from int, token string) (start, end int, ok bool) {
	for start = from; start < len(s); {
		if end, ok = matchFoldAt(s, start, token); ok {
			return start, end, true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		start += size
	}
	return 0, 0, false
}

// matchFoldAt reports whether token matches s at byte offset i under simple
// case folding, and where the match ends in s.
func matchFoldAt(s string, i int, token string) (int, bool) {
	for _, tr := range token {
		if i >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[i:])
		if !equalFoldRune(sr, tr) {
			return 0, false
		}
		i += size
	}
	return i, true
}

func equalFoldRune(a, b rune) bool {
	if a == b {
		return true
	}
	// SimpleFold walks the orbit of equivalent runes, e.g. k, K and the Kelvin sign.
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}

func endsSentence(word string) bool {
	word = strings.TrimSpace(word)
	if word == "" {
		return false
	}
	switch word[len(word)-1] {
	case '.', '?', '!':
		return true
	}
	return false
}
