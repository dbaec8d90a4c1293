package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"haru/internal/model"
	"haru/internal/storage"
	"haru/internal/weather"
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	opts = append([]Option{WithLogger(log.New(io.Discard, "", 0))}, opts...)
	srv := httptest.NewServer(New(storage.NewMemory(), opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestCreateTrimsTitle(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/todos",
		map[string]any{"title": "  Buy milk  "})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)

	var created model.Todo
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "Buy milk", created.Title)
	assert.False(t, created.Completed)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestCreateRejectsBlankTitle(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/todos",
		map[string]any{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.NotEmpty(t, payload["error"])
}

func TestCreatePreservesClientCreatedAt(t *testing.T) {
	srv := newTestServer(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/todos",
		map[string]any{"title": "Imported", "createdAt": created})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var todo model.Todo
	require.NoError(t, json.Unmarshal(body, &todo))
	assert.True(t, todo.CreatedAt.Equal(created), "createdAt = %v", todo.CreatedAt)
}

func TestListNewestFirst(t *testing.T) {
	srv := newTestServer(t)
	for _, title := range []string{"first", "second", "third"} {
		resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/todos",
			map[string]any{"title": title})
		require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)
		time.Sleep(2 * time.Millisecond)
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/todos", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var todos []model.Todo
	require.NoError(t, json.Unmarshal(body, &todos))
	require.Len(t, todos, 3)
	assert.Equal(t, "third", todos[0].Title)
	assert.Equal(t, "first", todos[2].Title)
}

func TestListEmptyIsArray(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/todos", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestUpdateCompletedOnlyPreservesTitle(t *testing.T) {
	clock := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	srv := newTestServer(t, WithClock(func() time.Time { return clock }))

	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/todos",
		map[string]any{"title": "Buy milk"})
	var created model.Todo
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/api/todos/"+created.ID,
		map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)

	var merged model.Todo
	require.NoError(t, json.Unmarshal(body, &merged))
	assert.Equal(t, "Buy milk", merged.Title)
	assert.True(t, merged.Completed)
	assert.True(t, merged.CreatedAt.Equal(created.CreatedAt))
	// The clock is frozen, yet updatedAt still has to move forward.
	assert.True(t, merged.UpdatedAt.After(created.UpdatedAt),
		"updatedAt %v not after %v", merged.UpdatedAt, created.UpdatedAt)
}

func TestUpdateMissingRecord(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodPut, srv.URL+"/api/todos/nope",
		map[string]any{"completed": true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"todo not found"}`, string(body))
}

func TestDeleteIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	_, body := doJSON(t, http.MethodPost, srv.URL+"/api/todos",
		map[string]any{"title": "Doomed"})
	var created model.Todo
	require.NoError(t, json.Unmarshal(body, &created))

	for i := 0; i < 2; i++ {
		resp, body := doJSON(t, http.MethodDelete, srv.URL+"/api/todos/"+created.ID, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"success":true}`, string(body))
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/todos", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestContextFromHeaders(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/context", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.8")
	req.Header.Set("X-Timezone", "Asia/Seoul")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"locale":"ko-KR","timezone":"Asia/Seoul"}`, string(data))
}

func TestContextDefaults(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/context", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"locale":"en-US","timezone":"UTC"}`, string(body))
}

func TestForecastProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/forecast", r.URL.Path)
		assert.Equal(t, "37.5665", r.URL.Query().Get("latitude"))
		fmt.Fprint(w, `{"latitude":37.5665,"longitude":126.978,"timezone":"Asia/Seoul",
			"current":{"time":"2026-08-24T12:00","temperature_2m":28.5,"weather_code":1}}`)
	}))
	defer upstream.Close()

	srv := newTestServer(t, WithWeather(weather.New(weather.WithBaseURL(upstream.URL))))
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/forecast?lat=37.5665&lon=126.978", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)

	var fc weather.Forecast
	require.NoError(t, json.Unmarshal(body, &fc))
	assert.Equal(t, "Asia/Seoul", fc.Timezone)
	assert.InDelta(t, 28.5, fc.Current.Temperature, 0.001)
}

func TestForecastRequiresCoordinates(t *testing.T) {
	srv := newTestServer(t, WithWeather(weather.New()))
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/forecast", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestForecastUnconfigured(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/forecast?lat=1&lon=1", nil)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}
