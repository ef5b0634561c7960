package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxThumbnailBytes bounds a thumbnail download.
const maxThumbnailBytes = 10 << 20

// DownloadThumbnail copies the image at url into dst.
func (c *Client) DownloadThumbnail(ctx context.Context, url string, dst io.Writer) (int64, error) {
	if url == "" {
		return 0, fmt.Errorf("video has no thumbnail")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("thumbnail request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("thumbnail download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("thumbnail download: status %d", resp.StatusCode)
	}
	n, err := io.Copy(dst, io.LimitReader(resp.Body, maxThumbnailBytes))
	if err != nil {
		return n, fmt.Errorf("thumbnail download: %w", err)
	}
	return n, nil
}
