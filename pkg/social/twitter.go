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

const twitterPostURL = "https://api.x.com/2/tweets"

type TwitterClient struct {
	httpClient *http.Client
}

func NewTwitterClient() *TwitterClient {
	return &TwitterClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type tweetPayload struct {
	Text  string      `json:"text"`
	Reply *tweetReply `json:"reply,omitempty"`
}

type tweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

// PostThread publishes the texts as a reply chain on the user's behalf
// and returns the posted tweet ids in order.
func (c *TwitterClient) PostThread(ctx context.Context, accessToken string, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty thread")
	}

	var ids []string
	var previousID string
	for i, text := range texts {
		payload := tweetPayload{Text: text}
		if previousID != "" {
			payload.Reply = &tweetReply{InReplyToTweetID: previousID}
		}

		id, err := c.postTweet(ctx, accessToken, payload)
		if err != nil {
			return ids, fmt.Errorf("posting tweet %d of %d: %w", i+1, len(texts), err)
		}
		ids = append(ids, id)
		previousID = id
	}

	return ids, nil
}

func (c *TwitterClient) postTweet(ctx context.Context, accessToken string, payload tweetPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterPostURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("twitter request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("twitter API error, status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("twitter decode: %w", err)
	}

	if parsed.Data.ID == "" {
		return "", fmt.Errorf("twitter returned no tweet id")
	}
	return parsed.Data.ID, nil
}
