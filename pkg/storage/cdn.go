package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Uploader persists raw image bytes and returns a stable public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

type CDNUploader struct {
	uploadURL  string
	apiKey     string
	httpClient *http.Client
}

func NewCDNUploader(uploadURL, apiKey string) *CDNUploader {
	return &CDNUploader{
		uploadURL:  uploadURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *CDNUploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("cdn upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("X-File-Name", name)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cdn upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("cdn upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("cdn upload decode: %w", err)
	}

	if parsed.URL == "" {
		return "", fmt.Errorf("cdn upload returned no url")
	}
	return parsed.URL, nil
}
