package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"storywall/internal/auth"
	"storywall/internal/model"
	"storywall/pkg/generate"
	"storywall/pkg/llm"
	"storywall/pkg/prompt"
)

// fakeLLM replays scripted responses in call order.
type fakeLLM struct {
	responses []string
	requests  []llm.ChatRequest
}

func (f *fakeLLM) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return &llm.ChatResponse{Content: f.responses[i], ModelUsed: "fake"}, nil
}

type fakeCreditStore struct {
	balance int
	err     error
	debits  []int
}

func (f *fakeCreditStore) DebitCredits(userID int64, amount int) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.debits = append(f.debits, amount)
	if f.balance < amount {
		return false, nil
	}
	f.balance -= amount
	return true, nil
}

type fakeJobStore struct {
	statuses map[string]string
	history  []string
	err      error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{statuses: map[string]string{}}
}

func (f *fakeJobStore) SetStatus(ctx context.Context, jobID, status string) error {
	if f.err != nil {
		return f.err
	}
	f.statuses[jobID] = status
	f.history = append(f.history, status)
	return nil
}

func (f *fakeJobStore) GetStatus(ctx context.Context, jobID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.statuses[jobID], nil
}

func newGenerateRouter(client llm.Client, timelines *fakeTimelineStore, events *fakeEventStore, credits *fakeCreditStore, jobs JobStore, user *model.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	prompts := prompt.NewStore(nil)
	discovery := generate.NewDiscovery(client, prompts)
	verifier := generate.NewVerifier(client, prompts)
	corrector := generate.NewCorrector(client, prompts)
	describer := generate.NewDescriber(client, prompts)
	pipeline := generate.NewPipeline(discovery, verifier, corrector, describer, nil)
	people := generate.NewPeopleExtractor(client, prompts)

	r := gin.New()
	r.Use(asUser(user))
	h := NewGenerateHandler(timelines, events, credits, pipeline, discovery, verifier, describer, people, jobs)
	r.POST("/timelines/:id/generate", auth.RequireUser, h.GenerateTimeline)
	r.POST("/generate/events", auth.RequireUser, h.GenerateEvents)
	r.POST("/generate/verify", h.VerifyEvents)
	r.POST("/generate/describe", h.DescribeEvents)
	r.GET("/generate/jobs/:id", h.JobStatus)
	r.POST("/debug/extract-people", h.ExtractPeople)
	return r
}

func TestGenerateTimeline_PersistsPipelineOutput(t *testing.T) {
	timelines := newFakeTimelineStore(&model.Timeline{ID: 1, OwnerID: 7, Title: "Moon Landings"})
	events := newFakeEventStore()
	credits := &fakeCreditStore{balance: 10}
	client := &fakeLLM{responses: []string{
		`{"events":[
			{"title":"Apollo 11","year":1969,"month":7,"day":20,"description":"First crewed landing"},
			{"title":"Apollo 12","year":1969,"month":11,"day":19,"description":"Second crewed landing"}
		]}`,
		`{"results":[
			{"index":0,"verified":true,"confidence":"high","issues":[]},
			{"index":1,"verified":true,"confidence":"high","issues":[]}
		]}`,
		`{"items":[
			{"index":0,"description":"Armstrong and Aldrin land at Tranquility Base.","image_prompt":"Lunar module on the Sea of Tranquility"},
			{"index":1,"description":"Conrad and Bean make a pinpoint landing.","image_prompt":"Lunar module near Surveyor 3"}
		]}`,
	}}
	r := newGenerateRouter(client, timelines, events, credits, nil, &model.User{ID: 7})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timelines/1/generate", strings.NewReader(`{"max_events":5}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10-generationCost, credits.balance)
	assert.Equal(t, 2, len(events.events))

	var res struct {
		Events  []VerifiedEventResponse     `json:"events"`
		Summary VerificationSummaryResponse `json:"summary"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 2, len(res.Events))
	assert.Equal(t, 2, res.Summary.VerifiedCount)
	assert.Equal(t, "Apollo 11", res.Events[0].Title)
}

// moonPipelineResponses scripts one full successful pipeline run:
// discovery, verification, description.
func moonPipelineResponses() []string {
	return []string{
		`{"events":[{"title":"Apollo 11","year":1969,"month":7,"day":20,"description":"First crewed landing"}]}`,
		`{"results":[{"index":0,"verified":true,"confidence":"high","issues":[]}]}`,
		`{"items":[{"index":0,"description":"Armstrong and Aldrin land at Tranquility Base.","image_prompt":"Lunar module on the Sea of Tranquility"}]}`,
	}
}

func TestGenerateTimeline_RecordsJobStatus(t *testing.T) {
	timelines := newFakeTimelineStore(&model.Timeline{ID: 1, OwnerID: 7, Title: "Moon Landings"})
	jobs := newFakeJobStore()
	client := &fakeLLM{responses: moonPipelineResponses()}
	r := newGenerateRouter(client, timelines, newFakeEventStore(), &fakeCreditStore{balance: 10}, jobs, &model.User{ID: 7})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timelines/1/generate", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		JobID string `json:"job_id"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.NotEqual(t, "", res.JobID)
	assert.Equal(t, []string{JobStatusRunning, JobStatusComplete}, jobs.history)
	assert.Equal(t, JobStatusComplete, jobs.statuses[res.JobID])

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/generate/jobs/"+res.JobID, nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	json.Unmarshal(w.Body.Bytes(), &status)
	assert.Equal(t, res.JobID, status.JobID)
	assert.Equal(t, JobStatusComplete, status.Status)
}

func TestGenerateTimeline_PersistFailureMarksJobFailed(t *testing.T) {
	timelines := newFakeTimelineStore(&model.Timeline{ID: 1, OwnerID: 7, Title: "Moon Landings"})
	events := newFakeEventStore()
	events.err = errors.New("connection reset")
	jobs := newFakeJobStore()
	client := &fakeLLM{responses: moonPipelineResponses()}
	r := newGenerateRouter(client, timelines, events, &fakeCreditStore{balance: 10}, jobs, &model.User{ID: 7})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timelines/1/generate", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, []string{JobStatusRunning, JobStatusFailed}, jobs.history)
}

func TestJobStatus_UnknownJob(t *testing.T) {
	r := newGenerateRouter(&fakeLLM{responses: []string{`{}`}}, newFakeTimelineStore(), newFakeEventStore(), &fakeCreditStore{}, newFakeJobStore(), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/generate/jobs/nope", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobStatus_TrackingDisabled(t *testing.T) {
	r := newGenerateRouter(&fakeLLM{responses: []string{`{}`}}, newFakeTimelineStore(), newFakeEventStore(), &fakeCreditStore{}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/generate/jobs/nope", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGenerateTimeline_InsufficientCredits(t *testing.T) {
	timelines := newFakeTimelineStore(&model.Timeline{ID: 1, OwnerID: 7})
	credits := &fakeCreditStore{balance: 1}
	client := &fakeLLM{responses: []string{`{}`}}
	r := newGenerateRouter(client, timelines, newFakeEventStore(), credits, nil, &model.User{ID: 7})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timelines/1/generate", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	// The pipeline never ran.
	assert.Equal(t, 0, len(client.requests))
}

func TestGenerateTimeline_NonOwnerForbidden(t *testing.T) {
	timelines := newFakeTimelineStore(&model.Timeline{ID: 1, OwnerID: 7})
	credits := &fakeCreditStore{balance: 10}
	client := &fakeLLM{responses: []string{`{}`}}
	r := newGenerateRouter(client, timelines, newFakeEventStore(), credits, nil, &model.User{ID: 8})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/timelines/1/generate", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, len(credits.debits))
}

func TestGenerateEvents_ReturnsDiscoveredEvents(t *testing.T) {
	credits := &fakeCreditStore{balance: 10}
	client := &fakeLLM{responses: []string{
		`{"events":[{"title":"Battle of Hastings","year":1066,"description":"Norman conquest"}]}`,
	}}
	r := newGenerateRouter(client, newFakeTimelineStore(), newFakeEventStore(), credits, nil, &model.User{ID: 7})

	w := httptest.NewRecorder()
	body := `{"title":"Medieval England","max_events":5}`
	req := httptest.NewRequest("POST", "/generate/events", strings.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res GeneratedEventsResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 1, len(res.Events))
	assert.Equal(t, "Battle of Hastings", res.Events[0].Title)
	assert.Equal(t, 1066, res.Events[0].Year)
	assert.Equal(t, false, res.ParseFailed)
}

func TestGenerateEvents_ParseFailureFlagged(t *testing.T) {
	credits := &fakeCreditStore{balance: 10}
	client := &fakeLLM{responses: []string{"I cannot answer that."}}
	r := newGenerateRouter(client, newFakeTimelineStore(), newFakeEventStore(), credits, nil, &model.User{ID: 7})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/generate/events", strings.NewReader(`{"title":"Anything"}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res GeneratedEventsResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 0, len(res.Events))
	assert.Equal(t, true, res.ParseFailed)
}

func TestVerifyEvents_PreservesOrderAndLength(t *testing.T) {
	client := &fakeLLM{responses: []string{
		`{"results":[
			{"index":0,"verified":true,"confidence":"high","issues":[]},
			{"index":1,"verified":false,"confidence":"low","issues":["date is wrong"]}
		]}`,
	}}
	r := newGenerateRouter(client, newFakeTimelineStore(), newFakeEventStore(), &fakeCreditStore{}, nil, nil)

	w := httptest.NewRecorder()
	body := `{"title":"Test","events":[
		{"title":"First","year":1900},
		{"title":"Second","year":1950}
	]}`
	req := httptest.NewRequest("POST", "/generate/verify", strings.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		VerifiedEvents []VerifiedEventResponse     `json:"verifiedEvents"`
		Summary        VerificationSummaryResponse `json:"summary"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 2, len(res.VerifiedEvents))
	assert.Equal(t, "First", res.VerifiedEvents[0].Title)
	assert.Equal(t, "Second", res.VerifiedEvents[1].Title)
	assert.Equal(t, true, res.VerifiedEvents[0].Verification.Verified)
	assert.Equal(t, false, res.VerifiedEvents[1].Verification.Verified)
	assert.Equal(t, 2, res.Summary.Total)
}

func TestVerifyEvents_EmptyRejected(t *testing.T) {
	r := newGenerateRouter(&fakeLLM{responses: []string{`{}`}}, newFakeTimelineStore(), newFakeEventStore(), &fakeCreditStore{}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/generate/verify", strings.NewReader(`{"title":"Test","events":[]}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDescribeEvents_SharesAnchorStyle(t *testing.T) {
	client := &fakeLLM{responses: []string{
		`{"items":[
			{"index":0,"description":"Armstrong steps onto the surface.","image_prompt":"Bootprint in lunar dust"}
		]}`,
	}}
	r := newGenerateRouter(client, newFakeTimelineStore(), newFakeEventStore(), &fakeCreditStore{}, nil, nil)

	w := httptest.NewRecorder()
	body := `{"title":"Moon Landings","theme_color":"deep blue","events":[{"title":"Apollo 11","year":1969}]}`
	req := httptest.NewRequest("POST", "/generate/describe", strings.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Events      []GeneratedEventResponse `json:"events"`
		AnchorStyle string                   `json:"anchor_style"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 1, len(res.Events))
	assert.Equal(t, true, strings.Contains(res.Events[0].ImagePrompt, "Bootprint in lunar dust"))
	assert.Equal(t, true, strings.Contains(res.Events[0].ImagePrompt, res.AnchorStyle))
	assert.Equal(t, true, strings.Contains(res.AnchorStyle, "deep blue"))
}

func TestExtractPeople(t *testing.T) {
	client := &fakeLLM{responses: []string{`{"people":["Neil Armstrong","Buzz Aldrin"]}`}}
	r := newGenerateRouter(client, newFakeTimelineStore(), newFakeEventStore(), &fakeCreditStore{}, nil, nil)

	w := httptest.NewRecorder()
	body := `{"title":"Moon Landings","events":[{"title":"Apollo 11","description":"First landing"}]}`
	req := httptest.NewRequest("POST", "/debug/extract-people", strings.NewReader(body))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		People     []string `json:"people"`
		RealPeople bool     `json:"real_people"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 2, len(res.People))
	assert.Equal(t, true, res.RealPeople)
}
