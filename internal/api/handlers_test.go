package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealposter/internal/config"
	"github.com/dealposter/internal/middleware"
	"github.com/dealposter/internal/model"
	"github.com/dealposter/internal/report"
	"github.com/dealposter/internal/storage"
)

const testAPIKey = "test-key"

type stubRunner struct {
	targets     []string
	replies     []report.Reply
	runErr      error
	triggeredBy string
}

func (s *stubRunner) Run(ctx context.Context, triggeredBy string) (*model.Run, error) {
	s.triggeredBy = triggeredBy
	status := model.RunStatusCompleted
	if s.runErr != nil {
		status = model.RunStatusFailed
	}
	return &model.Run{ID: "run-1", TriggeredBy: triggeredBy, Status: status}, s.runErr
}

func (s *stubRunner) Command(ctx context.Context) []report.Reply { return s.replies }
func (s *stubRunner) Targets() []string { return s.targets }

type stubJobs struct{}

func (stubJobs) Jobs() []model.ScheduledJob {
	next := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)
	return []model.ScheduledJob{{ID: "fastfood_deals_daily_default", Hour: 8, Next: &next}}
}

func (stubJobs) IsRunning() bool { return true }

type testServer struct {
	handler http.Handler
	runner  *stubRunner
	store   *storage.MemoryRunStore
	dir     string
	auth    *middleware.AuthMiddleware
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	admins, err := storage.NewAdminStore(config.AdminConfig{Email: "ops@example.com", Password: "hunter22"})
	require.NoError(t, err)

	auth := middleware.NewAuthMiddleware(config.JWTConfig{Secret: "secret", ExpirationHours: 1}, testAPIKey)
	runner := &stubRunner{targets: []string{"g1"}}
	store := storage.NewMemoryRunStore(10)
	dir := t.TempDir()

	h := NewHandler(runner, store, stubJobs{}, admins, auth, dir, "快餐早报")
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("dealposter_runs_total 1\n"))
	})

	return &testServer{
		handler: NewRouter(h, auth, metrics),
		runner:  runner,
		store:   store,
		dir:     dir,
		auth:    auth,
	}
}

func (s *testServer) do(method, path string, body []byte, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if authed {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/v1/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(model.LoginRequest{Email: "ops@example.com", Password: "hunter22"})
	rec := s.do(http.MethodPost, "/api/v1/auth/login", body, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	claims, err := s.auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, model.UserRoleAdmin, claims.Role)

	body, _ = json.Marshal(model.LoginRequest{Email: "ops@example.com", Password: "wrong"})
	rec = s.do(http.MethodPost, "/api/v1/auth/login", body, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/auth/login", []byte(`{"email":"not-an-email"}`), false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/status", "/api/v1/reports/runs", "/api/v1/posters/x.png"} {
		rec := s.do(http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRunCommand(t *testing.T) {
	s := newTestServer(t)
	s.runner.replies = []report.Reply{
		{Text: "为您奉上 肯德基 今日快餐优惠货比三家早报，请查阅。"},
		{ImagePath: filepath.Join(s.dir, "fastfood_20261015_肯德基.png")},
	}

	rec := s.do(http.MethodPost, "/api/v1/reports/run", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Command string         `json:"command"`
		Replies []ReplyMessage `json:"replies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "快餐早报", resp.Command)
	require.Len(t, resp.Replies, 2)
	assert.Equal(t, "/api/v1/posters/fastfood_20261015_肯德基.png", resp.Replies[1].ImageURL)
}

func TestRunCommand_MatchesConfiguredCommandName(t *testing.T) {
	s := newTestServer(t)
	s.runner.replies = []report.Reply{{Text: "今日暂无快餐优惠数据。"}}

	rec := s.do(http.MethodPost, "/api/v1/reports/run", []byte(`{"message": " 快餐早报 "}`), true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["replies"], 1)

	rec = s.do(http.MethodPost, "/api/v1/reports/run", []byte(`{"message": "天气预报"}`), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "快餐早报")

	rec = s.do(http.MethodPost, "/api/v1/reports/run", []byte(`{"message":`), true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBroadcast(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(http.MethodPost, "/api/v1/reports/broadcast", nil, true)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "api-key", s.runner.triggeredBy)
	})

	t.Run("fetch failure", func(t *testing.T) {
		s := newTestServer(t)
		s.runner.runErr = errors.New("deal fetch failed")
		rec := s.do(http.MethodPost, "/api/v1/reports/broadcast", nil, true)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "failed", decode(t, rec)["status"])
	})

	t.Run("no targets", func(t *testing.T) {
		s := newTestServer(t)
		s.runner.targets = nil
		rec := s.do(http.MethodPost, "/api/v1/reports/broadcast", nil, true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRuns(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	run := &model.Run{ID: "r1", Status: model.RunStatusCompleted, StartedAt: time.Now()}
	require.NoError(t, s.store.Create(ctx, run))
	require.NoError(t, s.store.AddDelivery(ctx, model.DeliveryRecord{ID: "d1", RunID: "r1", Destination: "g1", Status: "sent"}))

	rec := s.do(http.MethodGet, "/api/v1/reports/runs?limit=5", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["runs"], 1)

	rec = s.do(http.MethodGet, "/api/v1/reports/runs/r1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["deliveries"], 1)

	rec = s.do(http.MethodGet, "/api/v1/reports/runs/missing", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/v1/status", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["scheduler_running"])
	assert.Len(t, body["jobs"], 1)
	assert.EqualValues(t, 1, body["target_groups"])
}

func TestGetPoster(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "fastfood_20261015_kfc.png"), []byte("\x89PNG"), 0o644))

	rec := s.do(http.MethodGet, "/api/v1/posters/fastfood_20261015_kfc.png", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = s.do(http.MethodGet, "/api/v1/posters/missing.png", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/posters/notes.txt", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidPosterName(t *testing.T) {
	tests := map[string]bool{
		"fastfood_20261015_kfc.png": true,
		"A.PNG":                     true,
		"":                          false,
		"../secret.png":             false,
		".hidden.png":               false,
		`..\x.png`:                  false,
		"poster.jpg":                false,
	}
	for name, want := range tests {
		assert.Equal(t, want, validPosterName(name), name)
	}
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/metrics", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dealposter_runs_total")
}
