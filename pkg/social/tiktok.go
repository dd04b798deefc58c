package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const tiktokPublishURL = "https://open.tiktokapis.com/v2/post/publish/video/init/"

type TikTokClient struct {
	httpClient *http.Client
}

func NewTikTokClient() *TikTokClient {
	return &TikTokClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// PostVideo asks TikTok to pull the video from a public URL and publish
// it on the user's behalf. Returns the publish id for status polling.
func (c *TikTokClient) PostVideo(ctx context.Context, accessToken, title, videoURL string) (string, error) {
	payload := map[string]any{
		"post_info": map[string]any{
			"title":         title,
			"privacy_level": "PUBLIC_TO_EVERYONE",
		},
		"source_info": map[string]any{
			"source":    "PULL_FROM_URL",
			"video_url": videoURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tiktokPublishURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tiktok request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("tiktok API error, status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("tiktok decode: %w", err)
	}

	if parsed.Error.Code != "" && parsed.Error.Code != "ok" {
		return "", fmt.Errorf("tiktok API error: %s", parsed.Error.Message)
	}
	if parsed.Data.PublishID == "" {
		return "", fmt.Errorf("tiktok returned no publish id")
	}
	return parsed.Data.PublishID, nil
}
