package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"storywall/internal/auth"
	"storywall/internal/model"
	"storywall/pkg/social"
)

type fakeSocialStore struct {
	accounts map[string]*model.SocialAccount
	err      error
}

func newFakeSocialStore(accounts ...*model.SocialAccount) *fakeSocialStore {
	s := &fakeSocialStore{accounts: map[string]*model.SocialAccount{}}
	for _, a := range accounts {
		s.accounts[a.Platform] = a
	}
	return s
}

func (f *fakeSocialStore) SaveAccount(a *model.SocialAccount) error {
	if f.err != nil {
		return f.err
	}
	f.accounts[a.Platform] = a
	return nil
}

func (f *fakeSocialStore) GetAccount(userID int64, platform string) (*model.SocialAccount, error) {
	return f.accounts[platform], f.err
}

func (f *fakeSocialStore) DeleteAccount(userID int64, platform string) error {
	delete(f.accounts, platform)
	return f.err
}

type fakeExchanger struct {
	endpoints map[string]social.OAuthEndpoint
	token     *social.Token
	err       error
}

func (f *fakeExchanger) Endpoint(platform string) (social.OAuthEndpoint, bool) {
	e, ok := f.endpoints[platform]
	return e, ok
}

func (f *fakeExchanger) Exchange(ctx context.Context, platform, code string) (*social.Token, error) {
	return f.token, f.err
}

type fakeThreadPoster struct {
	texts []string
	err   error
}

func (f *fakeThreadPoster) PostThread(ctx context.Context, accessToken string, texts []string) ([]string, error) {
	f.texts = texts
	if f.err != nil {
		return nil, f.err
	}
	ids := make([]string, len(texts))
	for i := range texts {
		ids[i] = "id"
	}
	return ids, nil
}

type fakeVideoPoster struct {
	videoURL string
	err      error
}

func (f *fakeVideoPoster) PostVideo(ctx context.Context, accessToken, title, videoURL string) (string, error) {
	f.videoURL = videoURL
	if f.err != nil {
		return "", f.err
	}
	return "publish-1", nil
}

func newSocialRouter(accounts *fakeSocialStore, timelines *fakeTimelineStore, events *fakeEventStore, exchanger TokenExchanger, twitter *fakeThreadPoster, tiktok *fakeVideoPoster, user *model.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(asUser(user))
	h := NewSocialHandler(accounts, timelines, events, exchanger, twitter, tiktok)
	r.GET("/social/:platform/connect", auth.RequireUser, h.Connect)
	r.GET("/social/:platform/callback", auth.RequireUser, h.Callback)
	r.DELETE("/social/:platform", auth.RequireUser, h.Disconnect)
	r.POST("/timelines/:id/publish/:platform", auth.RequireUser, h.Publish)
	return r
}

func twitterEndpoints() map[string]social.OAuthEndpoint {
	return map[string]social.OAuthEndpoint{
		model.PlatformTwitter: {
			AuthURL:     "https://x.com/i/oauth2/authorize",
			ClientID:    "client-1",
			RedirectURL: "https://storywall.example/social/twitter/callback",
			Scopes:      "tweet.read tweet.write users.read",
		},
	}
}

func TestSocialConnect_ReturnsAuthURL(t *testing.T) {
	exchanger := &fakeExchanger{endpoints: twitterEndpoints()}
	r := newSocialRouter(newFakeSocialStore(), newFakeTimelineStore(), newFakeEventStore(), exchanger, nil, nil, &model.User{ID: 7})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/social/twitter/connect", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		AuthURL string `json:"auth_url"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.MatchRegex(t, res.AuthURL, `^https://x\.com/i/oauth2/authorize\?`)
	assert.Equal(t, true, strings.Contains(res.AuthURL, "client_id=client-1"))
}

func TestSocialConnect_UnknownPlatform(t *testing.T) {
	exchanger := &fakeExchanger{endpoints: twitterEndpoints()}
	r := newSocialRouter(newFakeSocialStore(), newFakeTimelineStore(), newFakeEventStore(), exchanger, nil, nil, &model.User{ID: 7})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/social/myspace/connect", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSocialCallback_StoresTokens(t *testing.T) {
	store := newFakeSocialStore()
	exchanger := &fakeExchanger{
		endpoints: twitterEndpoints(),
		token:     &social.Token{AccessToken: "acc", RefreshToken: "ref", ExpiresIn: 3600},
	}
	r := newSocialRouter(store, newFakeTimelineStore(), newFakeEventStore(), exchanger, nil, nil, &model.User{ID: 7})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/social/twitter/callback?code=abc", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	account := store.accounts[model.PlatformTwitter]
	assert.NotEqual(t, nil, account)
	assert.Equal(t, "acc", account.AccessToken)
	assert.Equal(t, int64(7), account.UserID)
}

func TestSocialCallback_MissingCode(t *testing.T) {
	exchanger := &fakeExchanger{endpoints: twitterEndpoints()}
	r := newSocialRouter(newFakeSocialStore(), newFakeTimelineStore(), newFakeEventStore(), exchanger, nil, nil, &model.User{ID: 7})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/social/twitter/callback", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishThread_PostsEventsInOrder(t *testing.T) {
	timelines := newFakeTimelineStore(&model.Timeline{ID: 1, OwnerID: 7, Title: "Moon Landings", Description: "Crewed lunar missions"})
	events := newFakeEventStore(
		&model.Event{ID: 501, TimelineID: 1, Title: "Apollo 11", Description: "First landing", Date: model.EventDate{Year: 1969}},
	)
	store := newFakeSocialStore(&model.SocialAccount{UserID: 7, Platform: model.PlatformTwitter, AccessToken: "acc"})
	twitter := &fakeThreadPoster{}
	r := newSocialRouter(store, timelines, events, &fakeExchanger{endpoints: twitterEndpoints()}, twitter, nil, &model.User{ID: 7})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timelines/1/publish/twitter", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, len(twitter.texts))
	assert.MatchRegex(t, twitter.texts[0], `^Moon Landings`)
	assert.MatchRegex(t, twitter.texts[1], `Apollo 11 \(1969\)`)
}

func TestPublishThread_NotConnected(t *testing.T) {
	timelines := newFakeTimelineStore(&model.Timeline{ID: 1, OwnerID: 7})
	r := newSocialRouter(newFakeSocialStore(), timelines, newFakeEventStore(), &fakeExchanger{endpoints: twitterEndpoints()}, &fakeThreadPoster{}, nil, &model.User{ID: 7})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timelines/1/publish/twitter", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishVideo_RequiresVideoURL(t *testing.T) {
	timelines := newFakeTimelineStore(&model.Timeline{ID: 1, OwnerID: 7, Title: "Moon Landings"})
	store := newFakeSocialStore(&model.SocialAccount{UserID: 7, Platform: model.PlatformTikTok, AccessToken: "acc"})
	r := newSocialRouter(store, timelines, newFakeEventStore(), &fakeExchanger{}, nil, &fakeVideoPoster{}, &model.User{ID: 7})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timelines/1/publish/tiktok", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishVideo_PublishesFromURL(t *testing.T) {
	timelines := newFakeTimelineStore(&model.Timeline{ID: 1, OwnerID: 7, Title: "Moon Landings"})
	store := newFakeSocialStore(&model.SocialAccount{UserID: 7, Platform: model.PlatformTikTok, AccessToken: "acc"})
	tiktok := &fakeVideoPoster{}
	r := newSocialRouter(store, timelines, newFakeEventStore(), &fakeExchanger{}, nil, tiktok, &model.User{ID: 7})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timelines/1/publish/tiktok", strings.NewReader(`{"video_url":"https://cdn.example/v.mp4"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://cdn.example/v.mp4", tiktok.videoURL)

	var res struct {
		PublishID string `json:"publish_id"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "publish-1", res.PublishID)
}

func TestTruncateTweet(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := truncateTweet(long)
	if len([]rune(got)) != maxTweetLength {
		t.Fatalf("truncated length = %d, want %d", len([]rune(got)), maxTweetLength)
	}
	assert.Equal(t, "…", string([]rune(got)[maxTweetLength-1]))

	short := "hello"
	assert.Equal(t, short, truncateTweet(short))
}
