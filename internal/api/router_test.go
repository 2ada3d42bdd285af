package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/scry-kanji/internal/api/shared"
	"github.com/phrazzld/scry-kanji/internal/app"
	"github.com/phrazzld/scry-kanji/internal/catalog"
	"github.com/phrazzld/scry-kanji/internal/config"
	"github.com/phrazzld/scry-kanji/internal/domain"
	"github.com/phrazzld/scry-kanji/internal/mocks"
	"github.com/phrazzld/scry-kanji/internal/platform/logger"
	"github.com/phrazzld/scry-kanji/internal/platform/memory"
	"github.com/phrazzld/scry-kanji/internal/session"
	"github.com/phrazzld/scry-kanji/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type testServer struct {
	handler http.Handler
	sc      *app.SchedulerContext
	blobs   *memory.BlobStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log, _ := logger.GetTestLogger(t)
	blobs := memory.NewBlobStore()

	cat := catalog.New([]domain.Item{
		{ID: "日", FrequencyRank: domain.IntPtr(1), Grade: domain.IntPtr(1), JLPTLevel: domain.IntPtr(5), StrokeCount: domain.IntPtr(4)},
		{ID: "一", FrequencyRank: domain.IntPtr(2), Grade: domain.IntPtr(1), JLPTLevel: domain.IntPtr(5), StrokeCount: domain.IntPtr(1)},
		{ID: "国", FrequencyRank: domain.IntPtr(5), Grade: domain.IntPtr(2), JLPTLevel: domain.IntPtr(4), StrokeCount: domain.IntPtr(8)},
		{ID: "議", FrequencyRank: domain.IntPtr(3), Grade: domain.IntPtr(4), JLPTLevel: domain.IntPtr(2), StrokeCount: domain.IntPtr(20)},
	})

	sc, err := app.New(context.Background(), config.Default(), log, app.Options{
		Blobs:    blobs,
		Catalog:  cat,
		Provider: &mocks.MockDetailProvider{},
		Clock:    func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	t.Cleanup(sc.Close)

	return &testServer{handler: NewRouter(sc), sc: sc, blobs: blobs}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) session.View {
	t.Helper()
	var v struct {
		State    string         `json:"state"`
		Position int            `json:"position"`
		Length   int            `json:"length"`
		Queue    []string       `json:"queue"`
		ItemID   string         `json:"itemId"`
		Counter  string         `json:"counter"`
		Detail   *domain.Detail `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	view := session.View{
		Position: v.Position,
		Length:   v.Length,
		Queue:    v.Queue,
		ItemID:   v.ItemID,
		Counter:  v.Counter,
		Detail:   v.Detail,
	}
	switch v.State {
	case "active":
		view.State = session.StateActive
	case "complete":
		view.State = session.StateComplete
	default:
		view.State = session.StateIdle
	}
	return view
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var body shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.StateIdle, decodeView(t, rec).State)

	rec = s.do(t, http.MethodPost, "/api/session", `{"sort":"frequency"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v := decodeView(t, rec)
	assert.Equal(t, []string{"日", "一", "議", "国"}, v.Queue)
	assert.Equal(t, "日", v.ItemID)
	assert.Equal(t, "1 / 4", v.Counter)
	require.NotNil(t, v.Detail)
	assert.Equal(t, "日", v.Detail.ItemID)

	rec = s.do(t, http.MethodPost, "/api/session/rate", `{"rating":0}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v = decodeView(t, rec)
	assert.Equal(t, []string{"一", "議", "国", "日"}, v.Queue)
	assert.Equal(t, 0, v.Position)
	assert.Equal(t, "一", v.ItemID)

	rec = s.do(t, http.MethodPost, "/api/session/skip", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "議", decodeView(t, rec).ItemID)

	rec = s.do(t, http.MethodPost, "/api/session/previous", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "一", decodeView(t, rec).ItemID)

	rec = s.do(t, http.MethodPost, "/api/session/next", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "議", decodeView(t, rec).ItemID)

	rec = s.do(t, http.MethodPost, "/api/session/leave", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err := s.blobs.Get(context.Background(), store.KeySavedSession)
	assert.NoError(t, err)

	rec = s.do(t, http.MethodGet, "/api/session", "")
	v = decodeView(t, rec)
	assert.Equal(t, "議", v.ItemID)
	assert.Equal(t, session.StateActive, v.State)
}

func TestStartWithEmptyBodyUsesCatalogOrder(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/session", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"日", "一", "国", "議"}, decodeView(t, rec).Queue)
}

func TestStartWithFilters(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/session", `{"jlpt":5,"strokes":"1-5","limit":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"日"}, decodeView(t, rec).Queue)
}

func TestStartErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"no match", `{"strokes":"21+"}`, http.StatusUnprocessableEntity, "No items match the selected filters"},
		{"unknown sort", `{"sort":"alphabetical"}`, http.StatusBadRequest, "Invalid filter or sort"},
		{"jlpt out of range", `{"jlpt":7}`, http.StatusBadRequest, "Invalid jlpt: too large"},
		{"negative limit", `{"limit":-1}`, http.StatusBadRequest, "Invalid limit: too small"},
		{"unknown field", `{"colour":"red"}`, http.StatusBadRequest, "Request body is not valid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestServer(t)

			rec := s.do(t, http.MethodPost, "/api/session", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.message, body.Error)
			assert.NotEmpty(t, body.TraceID)

			rec = s.do(t, http.MethodGet, "/api/session", "")
			assert.Equal(t, session.StateIdle, decodeView(t, rec).State)
		})
	}
}

func TestRateValidation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/session/rate", `{"rating":2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "No active session", decodeError(t, rec).Error)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/session", "").Code)

	rec = s.do(t, http.MethodPost, "/api/session/rate", `{"rating":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/session/rate", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid rating: required field", decodeError(t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/session/rate", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Request body is required", decodeError(t, rec).Error)

	rec = s.do(t, http.MethodGet, "/api/session", "")
	assert.Equal(t, 0, decodeView(t, rec).Position)
}

func TestCompletedSessionRefusesTransitions(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/items/"+url.PathEscape("国")+"/study", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	v := decodeView(t, rec)
	assert.Equal(t, []string{"国"}, v.Queue)

	rec = s.do(t, http.MethodPost, "/api/session/rate", `{"rating":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.StateComplete, decodeView(t, rec).State)

	rec = s.do(t, http.MethodPost, "/api/session/skip", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Session is complete", decodeError(t, rec).Error)

	_, err := s.blobs.Get(context.Background(), store.KeySavedSession)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStudyUnknownItem(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/items/"+url.PathEscape("猫")+"/study", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Item not found", decodeError(t, rec).Error)
}

func TestResumeOrStart(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/session/resume", `{"sort":"frequency","limit":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"日", "一"}, decodeView(t, rec).Queue)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/session/skip", "").Code)

	rec = s.do(t, http.MethodPost, "/api/session/resume", `{"sort":"level"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeView(t, rec)
	assert.Equal(t, []string{"日", "一"}, v.Queue, "saved session wins over the request")
	assert.Equal(t, 1, v.Position)
}

func TestStatsAndGrid(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/items/"+url.PathEscape("議")+"/study", "").Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/session/rate", `{"rating":1}`).Code)

	rec := s.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.Levels.Total)
	assert.Equal(t, 3, stats.Levels.Unknown)
	assert.Equal(t, 1, stats.Levels.Learning)
	assert.Equal(t, 4, stats.Filters.All)

	rec = s.do(t, http.MethodGet, "/api/items?sort=strokes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var grid struct {
		Sort  string `json:"sort"`
		Items []struct {
			Item  struct{ ID string } `json:"item"`
			Level int                 `json:"level"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	assert.Equal(t, "strokes", grid.Sort)
	ids := make([]string, 0, len(grid.Items))
	for _, c := range grid.Items {
		ids = append(ids, c.Item.ID)
	}
	assert.Equal(t, []string{"一", "日", "国", "議"}, ids)
	assert.Equal(t, 1, grid.Items[3].Level)

	rec = s.do(t, http.MethodGet, "/api/items?sort=colour", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/items/"+url.PathEscape("日")+"/study", "").Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/session/rate", `{"rating":3}`).Code)

	rec := s.do(t, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "kanji-progress-2024-06-01.json")
	exported := rec.Body.Bytes()

	var snap domain.ExportSnapshot
	require.NoError(t, json.Unmarshal(exported, &snap))
	assert.Equal(t, domain.LevelKnown, snap.ItemProgress["日"].Level)
	assert.Equal(t, domain.ExportFormatVersion, snap.FormatVersion)

	other := newTestServer(t)
	rec = other.do(t, http.MethodPost, "/api/import", string(exported))
	assert.Equal(t, http.StatusConflict, rec.Code, "import needs confirmation")
	assert.Equal(t, domain.LevelUnknown, other.sc.Items.Get("日").Level)

	rec = other.do(t, http.MethodPost, "/api/import?confirm=true", string(exported))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Records)
	assert.Equal(t, domain.LevelKnown, other.sc.Items.Get("日").Level)
}

func TestImportRejectsEmptyObject(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	before, err := s.blobs.Get(context.Background(), store.KeyItemProgress)
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/api/import?confirm=true", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Not a progress export", decodeError(t, rec).Error)

	after, err := s.blobs.Get(context.Background(), store.KeyItemProgress)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(before, after))
}

func TestPreferences(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/preferences", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var prefs domain.Preferences
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	assert.Equal(t, domain.DefaultPreferences(), prefs)

	rec = s.do(t, http.MethodPut, "/api/preferences", `{"showExamples":true,"gridSort":"jlpt"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/preferences", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	assert.True(t, prefs.ShowExamples)
	assert.True(t, prefs.ShowKun, "missing fields keep defaults")
	assert.Equal(t, "jlpt", prefs.GridSort)

	rec = s.do(t, http.MethodPut, "/api/preferences", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/session", "").Code)

	rec := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scry_detail_cache_misses_total")
}
