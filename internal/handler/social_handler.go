package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storywall/internal/auth"
	"storywall/internal/model"
	"storywall/pkg/social"
)

const maxTweetLength = 280

type SocialStore interface {
	SaveAccount(a *model.SocialAccount) error
	GetAccount(userID int64, platform string) (*model.SocialAccount, error)
	DeleteAccount(userID int64, platform string) error
}

type TokenExchanger interface {
	Endpoint(platform string) (social.OAuthEndpoint, bool)
	Exchange(ctx context.Context, platform, code string) (*social.Token, error)
}

type ThreadPoster interface {
	PostThread(ctx context.Context, accessToken string, texts []string) ([]string, error)
}

type VideoPoster interface {
	PostVideo(ctx context.Context, accessToken, title, videoURL string) (string, error)
}

type SocialHandler struct {
	accounts  SocialStore
	timelines TimelineStore
	events    EventStore
	exchanger TokenExchanger
	twitter   ThreadPoster
	tiktok    VideoPoster
}

func NewSocialHandler(
	accounts SocialStore,
	timelines TimelineStore,
	events EventStore,
	exchanger TokenExchanger,
	twitter ThreadPoster,
	tiktok VideoPoster,
) *SocialHandler {
	return &SocialHandler{
		accounts:  accounts,
		timelines: timelines,
		events:    events,
		exchanger: exchanger,
		twitter:   twitter,
		tiktok:    tiktok,
	}
}

// Connect returns the authorization URL the frontend redirects to.
func (h *SocialHandler) Connect(c *gin.Context) {
	platform := c.Param("platform")
	endpoint, ok := h.exchanger.Endpoint(platform)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown platform"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"platform": platform,
		"auth_url": endpoint.AuthorizeURL(uuid.NewString()),
	})
}

// Callback exchanges the authorization code and stores the tokens for
// the signed-in user.
func (h *SocialHandler) Callback(c *gin.Context) {
	user := auth.CurrentUser(c)
	platform := c.Param("platform")

	if errParam := c.Query("error"); errParam != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Authorization denied: %s", errParam)})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	token, err := h.exchanger.Exchange(c.Request.Context(), platform, code)
	if err != nil {
		slog.Error("token exchange failed", "error", err, "platform", platform)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Token exchange failed"})
		return
	}

	account := &model.SocialAccount{
		UserID:       user.ID,
		Platform:     platform,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}
	if err := h.accounts.SaveAccount(account); err != nil {
		slog.Error("error saving social account", "error", err, "platform", platform)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"platform": platform, "connected": true})
}

// Disconnect removes the stored tokens for a platform.
func (h *SocialHandler) Disconnect(c *gin.Context) {
	user := auth.CurrentUser(c)
	platform := c.Param("platform")

	if err := h.accounts.DeleteAccount(user.ID, platform); err != nil {
		slog.Error("error deleting social account", "error", err, "platform", platform)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"platform": platform, "connected": false})
}

type publishRequest struct {
	VideoURL string `json:"video_url"`
}

// Publish posts an owned timeline to the given platform using the
// user's stored tokens.
func (h *SocialHandler) Publish(c *gin.Context) {
	timeline, ok := requireOwnedTimeline(c, h.timelines)
	if !ok {
		return
	}
	user := auth.CurrentUser(c)
	platform := c.Param("platform")

	account, err := h.accounts.GetAccount(user.ID, platform)
	if err != nil {
		slog.Error("error loading social account", "error", err, "platform", platform)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if account == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Platform not connected"})
		return
	}

	switch platform {
	case model.PlatformTwitter:
		h.publishThread(c, timeline, account)
	case model.PlatformTikTok:
		h.publishVideo(c, timeline, account)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown platform"})
	}
}

func (h *SocialHandler) publishThread(c *gin.Context, timeline *model.Timeline, account *model.SocialAccount) {
	events, err := h.events.ListByTimeline(timeline.ID)
	if err != nil {
		slog.Error("error listing events", "error", err, "timeline_id", timeline.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if len(events) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Timeline has no events to publish"})
		return
	}

	texts := buildThread(timeline, events)
	ids, err := h.twitter.PostThread(c.Request.Context(), account.AccessToken, texts)
	if err != nil {
		slog.Error("thread publish failed", "error", err, "timeline_id", timeline.ID)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Publishing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"platform": model.PlatformTwitter, "post_ids": ids})
}

func (h *SocialHandler) publishVideo(c *gin.Context, timeline *model.Timeline, account *model.SocialAccount) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.VideoURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video_url is required"})
		return
	}

	publishID, err := h.tiktok.PostVideo(c.Request.Context(), account.AccessToken, timeline.Title, req.VideoURL)
	if err != nil {
		slog.Error("video publish failed", "error", err, "timeline_id", timeline.ID)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Publishing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"platform": model.PlatformTikTok, "publish_id": publishID})
}

// buildThread turns a timeline into tweet texts: a lead post with the
// title, then one post per event.
func buildThread(timeline *model.Timeline, events []model.Event) []string {
	texts := make([]string, 0, len(events)+1)
	texts = append(texts, truncateTweet(timeline.Title+"\n\n"+timeline.Description))
	for i, e := range events {
		text := fmt.Sprintf("%d/%d %s (%s)\n%s", i+1, len(events), e.Title, formatEventYear(e.Date.Year), e.Description)
		texts = append(texts, truncateTweet(text))
	}
	return texts
}

func truncateTweet(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTweetLength {
		return text
	}
	return string(runes[:maxTweetLength-1]) + "…"
}

func formatEventYear(year int) string {
	if year < 0 {
		return fmt.Sprintf("%d BC", -year)
	}
	return fmt.Sprintf("%d", year)
}
