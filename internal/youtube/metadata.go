package youtube

import (
	"context"
	"fmt"
	"time"

	yt "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
	"github.com/snarg/vidscribe/internal/transcript"
	"github.com/sosodev/duration"
	"google.golang.org/api/option"
	ytdata "google.golang.org/api/youtube/v3"
)

// MetadataResolver looks up descriptive video attributes. With a Data API key
// it uses the YouTube Data API (which exposes keywords and like counts);
// otherwise it falls back to the player response.
type MetadataResolver struct {
	client *Client
	data   *ytdata.Service
	log    zerolog.Logger
}

// NewMetadataResolver creates a resolver. apiKey may be empty.
func NewMetadataResolver(ctx context.Context, client *Client, apiKey string, log zerolog.Logger) (*MetadataResolver, error) {
	r := &MetadataResolver{client: client, log: log}
	if apiKey == "" {
		return r, nil
	}
	svc, err := ytdata.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("youtube data api: %w", err)
	}
	r.data = svc
	return r, nil
}

// Resolve returns metadata for id. Nothing is cached between calls.
func (r *MetadataResolver) Resolve(ctx context.Context, id VideoID) (transcript.Metadata, error) {
	if r.data != nil {
		return r.fromDataAPI(ctx, id)
	}
	video, err := r.client.Video(ctx, id)
	if err != nil {
		return transcript.Metadata{}, err
	}
	return fromPlayer(video), nil
}

func (r *MetadataResolver) fromDataAPI(ctx context.Context, id VideoID) (transcript.Metadata, error) {
	part := []string{"snippet", "statistics", "contentDetails"}
	resp, err := r.data.Videos.List(part).Id(string(id)).Context(ctx).Do()
	if err != nil {
		return transcript.Metadata{}, fmt.Errorf("youtube data api videos.list: %w", err)
	}
	if len(resp.Items) == 0 {
		return transcript.Metadata{}, fmt.Errorf("%w: %s not found", ErrUnavailable, id)
	}
	return fromDataVideo(resp.Items[0], r.log), nil
}

func fromDataVideo(v *ytdata.Video, log zerolog.Logger) transcript.Metadata {
	md := transcript.Metadata{
		VideoID:  v.Id,
		Keywords: []string{},
	}

	if s := v.Snippet; s != nil {
		md.Title = s.Title
		md.Description = s.Description
		md.ChannelName = s.ChannelTitle
		md.ChannelID = s.ChannelId
		if s.ChannelId != "" {
			md.ChannelURL = "https://www.youtube.com/channel/" + s.ChannelId
		}
		if len(s.Tags) > 0 {
			md.Keywords = append(md.Keywords, s.Tags...)
		}
		if t, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			md.PublishedAt = t
		}
		md.ThumbnailURL = bestDataThumbnail(s.Thumbnails)
	}

	if st := v.Statistics; st != nil {
		md.ViewCount = st.ViewCount
		if st.LikeCount > 0 {
			md.Rating = &transcript.Rating{Likes: st.LikeCount}
		}
	}

	if cd := v.ContentDetails; cd != nil {
		if cd.Duration != "" {
			d, err := duration.Parse(cd.Duration)
			if err != nil {
				log.Debug().Err(err).Str("duration", cd.Duration).Msg("unparseable video duration")
			} else {
				md.Duration = d.ToTimeDuration()
			}
		}
		if cd.ContentRating != nil && cd.ContentRating.YtRating == "ytAgeRestricted" {
			md.AgeRestricted = true
		}
	}

	return md
}

func bestDataThumbnail(t *ytdata.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*ytdata.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func fromPlayer(v *yt.Video) transcript.Metadata {
	md := transcript.Metadata{
		VideoID:     v.ID,
		Title:       v.Title,
		Description: v.Description,
		ChannelName: v.Author,
		ChannelID:   v.ChannelID,
		PublishedAt: v.PublishDate,
		Duration:    v.Duration,
		Keywords:    []string{},
	}
	if v.Views > 0 {
		md.ViewCount = uint64(v.Views)
	}
	if v.ChannelID != "" {
		md.ChannelURL = "https://www.youtube.com/channel/" + v.ChannelID
	}

	var widest uint
	for _, th := range v.Thumbnails {
		if th.Width >= widest {
			widest = th.Width
			md.ThumbnailURL = th.URL
		}
	}
	return md
}
