package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// formField is a non-file multipart field. Empty values are skipped.
type formField struct {
	name  string
	value string
}

// upload is one multipart POST of an audio file to a provider.
type upload struct {
	provider  string
	url       string
	header    http.Header
	fileField string
	fields    []formField
}

// do sends the audio file and returns the body of a 200 response. Any other
// status becomes a *StatusError.
func (u upload) do(ctx context.Context, client *http.Client, audioPath string) ([]byte, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(u.fileField, filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}
	for _, ff := range u.fields {
		if ff.value == "" {
			continue
		}
		if err := w.WriteField(ff.name, ff.value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", ff.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range u.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", u.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(u.provider, resp.StatusCode, body)
	}
	return body, nil
}

// bearer returns an Authorization header carrying key.
func bearer(key string) http.Header {
	return http.Header{"Authorization": {"Bearer " + key}}
}
