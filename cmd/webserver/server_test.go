package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lessonplanner"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planJSON = `{
	"title": "春节包饺子",
	"rationale": "Task-based learning",
	"teaching_goals": ["Name ingredients"],
	"key_points": ["先……然后……"],
	"grammar_points": [{"point": "先……然后……", "structure": "先 V1，然后 V2", "usage": "Sequencing", "examples": ["先和面，然后包饺子。"]}],
	"props": ["flour"],
	"steps": ["Warm-up"],
	"simulation": "Kitchen",
	"simulation_dialogue": "A: 你好",
	"image_prompt_description": "Students folding dumplings"
}`

type testServer struct {
	t       *testing.T
	server  *Server
	router  *gin.Engine
	cookies []*http.Cookie
}

func newTestServer(t *testing.T, backend *lessonplanner.Backend) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := lessonplanner.OpenSQLiteStore(filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	library, err := lessonplanner.OpenLibrary(context.Background(), store)
	require.NoError(t, err)

	server := NewServer(backend, library, sessions.NewCookieStore([]byte("test-secret")))
	return &testServer{t: t, server: server, router: server.Router()}
}

func disabledBackend() *lessonplanner.Backend {
	return lessonplanner.NewDisabledBackend(lessonplanner.ErrMissingAPIKey)
}

// fakeChatBackend answers every chat completion with the given tool call arguments
func fakeChatBackend(t *testing.T, arguments string) *lessonplanner.Backend {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ToolChoice struct {
				Function struct {
					Name string `json:"name"`
				} `json:"function"`
			} `json:"tool_choice"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "chatcmpl-1",
			"choices": []interface{}{map[string]interface{}{
				"index": 0,
				"message": map[string]interface{}{
					"role": "assistant",
					"tool_calls": []interface{}{map[string]interface{}{
						"id":       "call_1",
						"type":     "function",
						"function": map[string]interface{}{"name": body.ToolChoice.Function.Name, "arguments": arguments},
					}},
				},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	backend, err := lessonplanner.NewBackend(lessonplanner.BackendConfig{APIKey: "test", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)
	return backend
}

// do sends a request carrying the session cookies of earlier responses
func (ts *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range ts.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		ts.cookies = cookies
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func samplePlan(t *testing.T) lessonplanner.ActivityPlan {
	var plan lessonplanner.ActivityPlan
	require.NoError(t, json.Unmarshal([]byte(planJSON), &plan))
	plan.Theme = "春节"
	return plan
}

func TestStatusReportsDisabledBackend(t *testing.T) {
	ts := newTestServer(t, disabledBackend())

	rec := ts.do(http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]interface{}
	decode(t, rec, &status)
	assert.Equal(t, false, status["ready"])
	assert.Contains(t, status["warning"], "OPENAI_API_KEY")
}

func TestGenerateWithoutBackend(t *testing.T) {
	ts := newTestServer(t, disabledBackend())

	rec := ts.do(http.MethodPost, "/api/plans/generate", map[string]interface{}{
		"mode":  "GENERATE",
		"input": map[string]string{"theme": "春节", "level": "HSK 2"},
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = ts.do(http.MethodGet, "/api/notifications", nil)
	var notes []Notification
	decode(t, rec, &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, "error", notes[0].Level)

	rec = ts.do(http.MethodGet, "/api/notifications", nil)
	decode(t, rec, &notes)
	assert.Empty(t, notes, "notifications are shown once")
}

func TestGenerateRecordNeedsIdea(t *testing.T) {
	ts := newTestServer(t, fakeChatBackend(t, planJSON))

	rec := ts.do(http.MethodPost, "/api/plans/generate", map[string]interface{}{
		"mode":  "RECORD",
		"input": map[string]string{"theme": "春节"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateAndSavePlan(t *testing.T) {
	ts := newTestServer(t, fakeChatBackend(t, planJSON))

	rec := ts.do(http.MethodPost, "/api/plans/generate", map[string]interface{}{
		"mode":       "RECORD",
		"with_image": false,
		"input":      map[string]string{"theme": "春节", "level": "HSK 2", "activity_idea": "make dumplings"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var plan lessonplanner.ActivityPlan
	decode(t, rec, &plan)
	assert.Equal(t, "春节包饺子", plan.Title)
	assert.Empty(t, plan.ID)

	rec = ts.do(http.MethodPost, "/api/plans", plan)
	require.Equal(t, http.StatusOK, rec.Code)
	var saved planView
	decode(t, rec, &saved)
	assert.Regexp(t, `^\d+$`, saved.ID)
	assert.Equal(t, "Uncategorized", saved.CollectionName)

	rec = ts.do(http.MethodGet, "/api/plans/"+saved.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/notifications", nil)
	var notes []Notification
	decode(t, rec, &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, "success", notes[0].Level)
}

func TestPlanLifecycle(t *testing.T) {
	ts := newTestServer(t, disabledBackend())

	rec := ts.do(http.MethodPost, "/api/plans", samplePlan(t))
	require.Equal(t, http.StatusOK, rec.Code)
	var saved planView
	decode(t, rec, &saved)

	rec = ts.do(http.MethodPost, "/api/collections", map[string]string{"name": "Festivals"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var coll lessonplanner.Collection
	decode(t, rec, &coll)

	rec = ts.do(http.MethodPost, "/api/plans/"+saved.ID+"/collection", map[string]string{"collection_id": coll.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var moved planView
	decode(t, rec, &moved)
	assert.Equal(t, "Festivals", moved.CollectionName)

	rec = ts.do(http.MethodPut, "/api/plans/"+saved.ID, map[string]interface{}{"steps": []string{"A", "B"}})
	require.Equal(t, http.StatusOK, rec.Code)
	var edited planView
	decode(t, rec, &edited)
	assert.Equal(t, []string{"A", "B"}, edited.Steps)
	assert.Equal(t, saved.Title, edited.Title)

	rec = ts.do(http.MethodGet, "/api/library", nil)
	var groups []lessonplanner.CollectionGroup
	decode(t, rec, &groups)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Plans, 1)
	assert.Empty(t, groups[1].Plans)

	rec = ts.do(http.MethodDelete, "/api/plans/"+saved.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(http.MethodDelete, "/api/plans/"+saved.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(http.MethodGet, "/api/plans/"+saved.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlanImageAttach(t *testing.T) {
	ts := newTestServer(t, disabledBackend())
	rec := ts.do(http.MethodPost, "/api/plans", samplePlan(t))
	var saved planView
	decode(t, rec, &saved)

	uri := "data:image/png;base64,iVBORw0KGgo="
	rec = ts.do(http.MethodPost, "/api/plans/"+saved.ID+"/image", map[string]string{"image_url": uri})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated planView
	decode(t, rec, &updated)
	assert.Equal(t, uri, updated.ImageURL)

	rec = ts.do(http.MethodPost, "/api/plans/"+saved.ID+"/image", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code, "the disabled backend cannot draw")
}

func TestWorksheetDownload(t *testing.T) {
	ts := newTestServer(t, disabledBackend())

	rec := ts.do(http.MethodPost, "/api/exercises/worksheet", map[string]interface{}{
		"schema": map[string]interface{}{
			"title": "春节练习",
			"exercises": []map[string]string{
				{"type": "TRANSLATION", "question": "Translate: Happy New Year", "answer": "新年快乐"},
			},
		},
		"config": map[string]interface{}{"include_answer_key": true},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, lessonplanner.WorksheetMimeType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename*=UTF-8''"+
		"%E6%98%A5%E8%8A%82%E7%BB%83%E4%B9%A0.doc", rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.Contains(rec.Body.String(), "新年快乐"))

	rec = ts.do(http.MethodPost, "/api/exercises/worksheet", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeckNeedsPlan(t *testing.T) {
	ts := newTestServer(t, disabledBackend())

	rec := ts.do(http.MethodPost, "/api/slides/deck", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/slides/deck", map[string]interface{}{"plan_id": "404"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeckDownload(t *testing.T) {
	slides := `{"slides":[{"title":"封面","bullet_points":["春节"],"speaker_notes":""}]}`
	ts := newTestServer(t, fakeChatBackend(t, slides))

	rec := ts.do(http.MethodPost, "/api/slides/deck", map[string]interface{}{
		"plan": samplePlan(t),
		"config": map[string]interface{}{
			"style":   "FESTIVE_RED",
			"outline": []map[string]string{{"title": "封面", "note": "cover"}},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, lessonplanner.DeckMimeType, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestBatchNotFound(t *testing.T) {
	ts := newTestServer(t, disabledBackend())
	for _, path := range []string{"/api/batches/nope", "/api/batches/nope/archive"} {
		rec := ts.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestBatchLifecycle(t *testing.T) {
	scenes := `{"scenarios":[{"description":"market","dialogue":"多少钱？"},{"description":"station","dialogue":"几点？"}]}`
	ts := newTestServer(t, fakeChatBackend(t, scenes))

	rec := ts.do(http.MethodPost, "/api/batches", map[string]interface{}{
		"plan":   samplePlan(t),
		"config": map[string]interface{}{"focus_point": "多少钱", "count": 2},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view batchView
	decode(t, rec, &view)
	require.Len(t, view.Items, 2)
	assert.Equal(t, lessonplanner.StatusPending, view.Items[0].Status)

	rec = ts.do(http.MethodPut, fmt.Sprintf("/api/batches/%s/items/1", view.ID), map[string]string{"description": "platform", "dialogue": "车几点到？"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &view)
	assert.Equal(t, "platform", view.Items[1].Description)

	rec = ts.do(http.MethodPut, fmt.Sprintf("/api/batches/%s/items/9", view.ID), map[string]string{"description": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, fmt.Sprintf("/api/batches/%s/archive", view.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, lessonplanner.ArchiveMimeType, rec.Header().Get("Content-Type"))
}

func TestIdleBatchesAreDropped(t *testing.T) {
	scenes := `{"scenarios":[{"description":"market","dialogue":"多少钱？"}]}`
	ts := newTestServer(t, fakeChatBackend(t, scenes))
	create := func() batchView {
		rec := ts.do(http.MethodPost, "/api/batches", map[string]interface{}{
			"plan":   samplePlan(t),
			"config": map[string]interface{}{"focus_point": "多少钱", "count": 1},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var view batchView
		decode(t, rec, &view)
		return view
	}

	start := time.Now()
	ts.server.now = func() time.Time { return start }
	old := create()

	ts.server.now = func() time.Time { return start.Add(batchLifetime / 2) }
	rec := ts.do(http.MethodGet, "/api/batches/"+old.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, "a lookup keeps the batch alive")

	ts.server.now = func() time.Time { return start.Add(batchLifetime + time.Minute) }
	kept := create()
	rec = ts.do(http.MethodGet, "/api/batches/"+old.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	ts.server.now = func() time.Time { return start.Add(3 * batchLifetime) }
	fresh := create()
	for _, id := range []string{old.ID, kept.ID} {
		rec = ts.do(http.MethodGet, "/api/batches/"+id, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
	}
	rec = ts.do(http.MethodGet, "/api/batches/"+fresh.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlanImageAcceptsChunkedEmptyBody(t *testing.T) {
	ts := newTestServer(t, disabledBackend())
	rec := ts.do(http.MethodPost, "/api/plans", samplePlan(t))
	require.Equal(t, http.StatusOK, rec.Code)
	var saved planView
	decode(t, rec, &saved)

	req := httptest.NewRequest(http.MethodPost, "/api/plans/"+saved.ID+"/image", strings.NewReader(""))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	out := httptest.NewRecorder()
	ts.router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadGateway, out.Code, "an empty body asks for generation, which the disabled backend cannot do")

	req = httptest.NewRequest(http.MethodPost, "/api/plans/"+saved.ID+"/image", strings.NewReader("{broken"))
	req.ContentLength = -1
	out = httptest.NewRecorder()
	ts.router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}
