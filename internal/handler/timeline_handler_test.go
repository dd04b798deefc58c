package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"storywall/internal/auth"
	"storywall/internal/model"
)

type fakeTimelineStore struct {
	timelines    map[int64]*model.Timeline
	explore      []model.Timeline
	exploreTotal int
	exploreCalls int
	err          error
	nextID       int64
}

func newFakeTimelineStore(timelines ...*model.Timeline) *fakeTimelineStore {
	s := &fakeTimelineStore{timelines: map[int64]*model.Timeline{}, nextID: 100}
	for _, t := range timelines {
		s.timelines[t.ID] = t
	}
	return s
}

func (f *fakeTimelineStore) Save(t *model.Timeline) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	t.ID = f.nextID
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
	f.timelines[t.ID] = t
	return nil
}

func (f *fakeTimelineStore) GetByID(id int64) (*model.Timeline, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.timelines[id], nil
}

func (f *fakeTimelineStore) GetByShareToken(token string) (*model.Timeline, error) {
	for _, t := range f.timelines {
		if t.ShareToken == token {
			return t, nil
		}
	}
	return nil, f.err
}

func (f *fakeTimelineStore) ListByOwner(ownerID int64, limit, offset int) ([]model.Timeline, error) {
	var out []model.Timeline
	for _, t := range f.timelines {
		if t.OwnerID == ownerID {
			out = append(out, *t)
		}
	}
	return out, f.err
}

func (f *fakeTimelineStore) GetExplore(limit, offset int) ([]model.Timeline, error) {
	f.exploreCalls++
	return f.explore, f.err
}

func (f *fakeTimelineStore) GetExploreTotal() (int, error) {
	return f.exploreTotal, f.err
}

func (f *fakeTimelineStore) Update(t *model.Timeline) error {
	f.timelines[t.ID] = t
	return f.err
}

func (f *fakeTimelineStore) Delete(id int64) error {
	delete(f.timelines, id)
	return f.err
}

type fakeEventStore struct {
	events map[int64]*model.Event
	err    error
	nextID int64
}

func newFakeEventStore(events ...*model.Event) *fakeEventStore {
	s := &fakeEventStore{events: map[int64]*model.Event{}, nextID: 500}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (f *fakeEventStore) Save(e *model.Event) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	e.ID = f.nextID
	f.events[e.ID] = e
	return nil
}

func (f *fakeEventStore) GetByID(id int64) (*model.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events[id], nil
}

func (f *fakeEventStore) ListByTimeline(timelineID int64) ([]model.Event, error) {
	var out []model.Event
	for _, e := range f.events {
		if e.TimelineID == timelineID {
			out = append(out, *e)
		}
	}
	return out, f.err
}

func (f *fakeEventStore) SaveBatch(events []model.Event) error {
	if f.err != nil {
		return f.err
	}
	for i := range events {
		f.Save(&events[i])
	}
	return nil
}

func (f *fakeEventStore) Update(e *model.Event) error {
	f.events[e.ID] = e
	return f.err
}

func (f *fakeEventStore) Delete(id int64) error {
	delete(f.events, id)
	return f.err
}

type fakeCache struct {
	values map[string]string
	gets   int
	sets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.gets++
	return f.values[key], nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.sets++
	f.values[key] = value
	return nil
}

// asUser injects an authenticated user the way the auth middleware
// would.
func asUser(user *model.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			auth.SetCurrentUser(c, user)
		}
		c.Next()
	}
}

func newTimelineRouter(store *fakeTimelineStore, events *fakeEventStore, cache Cache, user *model.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(asUser(user))
	h := NewTimelineHandler(store, events, cache)
	r.POST("/timelines", auth.RequireUser, h.Create)
	r.GET("/timelines/:id", h.Get)
	r.PUT("/timelines/:id", auth.RequireUser, h.Update)
	r.DELETE("/timelines/:id", auth.RequireUser, h.Delete)
	r.GET("/timelines/me", auth.RequireUser, h.ListMine)
	r.GET("/shared/:token", h.GetShared)
	r.GET("/explore", h.Explore)
	r.GET("/health", h.GetHealth)
	return r
}

func TestCreateTimeline_ReturnsShareToken(t *testing.T) {
	store := newFakeTimelineStore()
	r := newTimelineRouter(store, newFakeEventStore(), nil, &model.User{ID: 1})

	w := httptest.NewRecorder()
	body := `{"title":"Moon Landings","description":"Crewed lunar missions","public":true}`
	req := httptest.NewRequest("POST", "/timelines", strings.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var res TimelineResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "Moon Landings", res.Title)
	assert.Equal(t, model.ViewHorizontal, res.ViewMode)
	assert.NotEqual(t, "", res.ShareToken)
}

func TestCreateTimeline_RequiresAuth(t *testing.T) {
	r := newTimelineRouter(newFakeTimelineStore(), newFakeEventStore(), nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timelines", strings.NewReader(`{"title":"x"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateTimeline_RejectsMissingTitle(t *testing.T) {
	r := newTimelineRouter(newFakeTimelineStore(), newFakeEventStore(), nil, &model.User{ID: 1})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timelines", strings.NewReader(`{"description":"no title"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTimeline_PrivateHiddenFromOthers(t *testing.T) {
	store := newFakeTimelineStore(&model.Timeline{ID: 1, OwnerID: 7, Title: "Private", Public: false})
	r := newTimelineRouter(store, newFakeEventStore(), nil, &model.User{ID: 8})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/timelines/1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetTimeline_PublicHidesShareTokenFromOthers(t *testing.T) {
	store := newFakeTimelineStore(&model.Timeline{
		ID: 1, OwnerID: 7, Title: "Public", Public: true, ShareToken: "secret-token",
	})
	r := newTimelineRouter(store, newFakeEventStore(), nil, &model.User{ID: 8})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/timelines/1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Timeline TimelineResponse `json:"timeline"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "", res.Timeline.ShareToken)
}

func TestGetTimeline_NotFound(t *testing.T) {
	r := newTimelineRouter(newFakeTimelineStore(), newFakeEventStore(), nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/timelines/99", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetShared_ResolvesByToken(t *testing.T) {
	store := newFakeTimelineStore(&model.Timeline{
		ID: 1, OwnerID: 7, Title: "Shared", Public: false, ShareToken: "abc-123",
	})
	r := newTimelineRouter(store, newFakeEventStore(), nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/shared/abc-123", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Timeline TimelineResponse `json:"timeline"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "Shared", res.Timeline.Title)
}

func TestUpdateTimeline_OwnerOnly(t *testing.T) {
	store := newFakeTimelineStore(&model.Timeline{ID: 1, OwnerID: 7, Title: "Mine"})
	r := newTimelineRouter(store, newFakeEventStore(), nil, &model.User{ID: 8})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/timelines/1", strings.NewReader(`{"title":"Stolen"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Mine", store.timelines[1].Title)
}

func TestDeleteTimeline_Owner(t *testing.T) {
	store := newFakeTimelineStore(&model.Timeline{ID: 1, OwnerID: 7})
	r := newTimelineRouter(store, newFakeEventStore(), nil, &model.User{ID: 7})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/timelines/1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, len(store.timelines))
}

func TestExplore_SecondRequestServedFromCache(t *testing.T) {
	store := newFakeTimelineStore()
	store.explore = []model.Timeline{{ID: 1, Title: "Public one", Public: true}}
	store.exploreTotal = 1
	cache := newFakeCache()
	r := newTimelineRouter(store, newFakeEventStore(), cache, nil)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/explore?limit=10&offset=0", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		var res ExploreResponse
		json.Unmarshal(w.Body.Bytes(), &res)
		assert.Equal(t, 1, res.Total)
	}

	assert.Equal(t, 1, store.exploreCalls)
	assert.Equal(t, 1, cache.sets)
}

func TestGetHealth(t *testing.T) {
	r := newTimelineRouter(newFakeTimelineStore(), newFakeEventStore(), nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetHealth_DatabaseDown(t *testing.T) {
	store := newFakeTimelineStore()
	store.err = errors.New("connection refused")
	r := newTimelineRouter(store, newFakeEventStore(), nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
