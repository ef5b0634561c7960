package transcript

import (
	"errors"
	"time"
)

// SourceMethod identifies which acquisition strategy produced a transcript.
type SourceMethod string

const (
	SourceNativeCaption SourceMethod = "nativeCaption"
	SourceSpeechModel   SourceMethod = "speechModel"
)

// CaptionKind distinguishes human-authored caption tracks from platform ASR tracks.
// Only meaningful when SourceMethod is SourceNativeCaption.
type CaptionKind string

const (
	CaptionManual CaptionKind = "manual"
	CaptionAuto   CaptionKind = "auto"
)

// ErrEmpty is returned when no usable segments remain after normalization.
var ErrEmpty = errors.New("transcript has no usable segments")

// RawSegment is a timed span of text as returned by an adapter, before cleanup.
// Start is already expressed as a duration from the beginning of the video.
type RawSegment struct {
	Start time.Duration
	Text  string
}

// Segment is a normalized span: Start >= 0 and Text is non-empty.
type Segment struct {
	Start time.Duration `json:"start"`
	Text  string        `json:"text"`
}

// Transcript is the canonical, strategy-agnostic transcript. Segments are
// strictly ascending by Start.
type Transcript struct {
	Segments    []Segment    `json:"segments"`
	Source      SourceMethod `json:"source"`
	CaptionKind CaptionKind  `json:"caption_kind,omitempty"`
}

// Metadata holds descriptive attributes of a video.
type Metadata struct {
	VideoID       string        `json:"video_id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	ChannelName   string        `json:"channel_name"`
	ChannelID     string        `json:"channel_id,omitempty"`
	ChannelURL    string        `json:"channel_url,omitempty"`
	PublishedAt   time.Time     `json:"published_at"`
	Duration      time.Duration `json:"duration"`
	ViewCount     uint64        `json:"view_count"`
	Rating        *Rating       `json:"rating,omitempty"`
	Keywords      []string      `json:"keywords"`
	ThumbnailURL  string        `json:"thumbnail_url"`
	AgeRestricted bool          `json:"age_restricted"`
}

// Rating is only populated when the metadata source exposes engagement counts.
type Rating struct {
	Likes uint64 `json:"likes"`
}
