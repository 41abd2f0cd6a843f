package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/adwizard/internal/auth"
	"github.com/lehigh-university-libraries/adwizard/internal/contract"
	"github.com/lehigh-university-libraries/adwizard/internal/models"
	"github.com/lehigh-university-libraries/adwizard/internal/session"
	"github.com/lehigh-university-libraries/adwizard/internal/storage"
	"github.com/lehigh-university-libraries/adwizard/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	lastContent  string
	lastFilename string
}

func (s *stubGenerator) Extract(_ context.Context, content, filename string, _ models.AIModel) (contract.ExtractedInfo, error) {
	s.lastContent, s.lastFilename = content, filename
	return contract.ExtractedInfo{ProductDescription: "Цветы", TargetAudience: "Все", USP: []string{"Быстро"}}, nil
}

func (s *stubGenerator) ExtractURL(context.Context, string) (contract.ExtractedInfo, error) {
	return contract.ExtractedInfo{}, fmt.Errorf("%w: %w", contract.ErrExtraction, contract.ErrURLUnsupported)
}

func (s *stubGenerator) Generate(_ context.Context, form models.FormSnapshot) ([]models.AdCreative, error) {
	out := make([]models.AdCreative, form.VariantCount)
	for i := range out {
		out[i] = models.AdCreative{Headline1: fmt.Sprintf("H%d", i+1), Headline2: "h2", AdText: "t", DisplayLink: "d"}
		if form.Goal == models.GoalImageAd {
			out[i].ImageURL = base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("jpeg-%d", i+1)))
		}
	}
	return out, nil
}

func (s *stubGenerator) Refine(_ context.Context, current []models.AdCreative, _ string, _ models.FormSnapshot) ([]models.AdCreative, error) {
	return current, nil
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Status  int             `json:"status"`
}

type testServer struct {
	t     *testing.T
	srv   *httptest.Server
	store *session.Store
	gen   *stubGenerator
}

func newTestServer(t *testing.T, pinHash string, opts ...Option) *testServer {
	t.Helper()
	ctx := context.Background()
	store := session.New(storage.NewMemory())
	require.NoError(t, store.SaveCredential(ctx, "key"))

	gen := &stubGenerator{}
	w, err := wizard.New(ctx, store, gen, auth.NewGate(pinHash))
	require.NoError(t, err)

	srv := httptest.NewServer(New(w, opts...).Routes())
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv, store: store, gen: gen}
}

func (ts *testServer) do(method, path string, body any) (int, envelope) {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(ts.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return ts.send(req)
}

func (ts *testServer) send(req *http.Request) (int, envelope) {
	ts.t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (ts *testServer) state() wizard.State {
	ts.t.Helper()
	status, env := ts.do(http.MethodGet, "/api/state", nil)
	require.Equal(ts.t, http.StatusOK, status)
	var s wizard.State
	require.NoError(ts.t, json.Unmarshal(env.Data, &s))
	return s
}

func (ts *testServer) login() {
	ts.t.Helper()
	status, _ := ts.do(http.MethodPost, "/api/auth/login", map[string]string{"pin": ""})
	require.Equal(ts.t, http.StatusOK, status)
}

func (ts *testServer) toStyle(goal models.Goal) {
	ts.t.Helper()
	status, _ := ts.do(http.MethodPost, "/api/wizard/goal", map[string]string{"goal": string(goal)})
	require.Equal(ts.t, http.StatusOK, status)
	status, env := ts.do(http.MethodPost, "/api/wizard/info", wizard.InfoUpdate{
		ProductDescription: "Цветы",
		TargetAudience:     "Все",
		USP:                []string{"Быстро"},
	})
	require.Equal(ts.t, http.StatusOK, status, env.Message)
}

func (ts *testServer) awaitPhase(phase wizard.Phase) wizard.State {
	ts.t.Helper()
	var s wizard.State
	require.Eventually(ts.t, func() bool {
		s = ts.state()
		return s.Phase == phase
	}, 5*time.Second, 10*time.Millisecond)
	return s
}

func TestHealthcheck(t *testing.T) {
	ts := newTestServer(t, "")
	resp, err := http.Get(ts.srv.URL + "/healthcheck")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestAuthGate(t *testing.T) {
	hash, err := auth.HashPIN("1357")
	require.NoError(t, err)
	ts := newTestServer(t, hash)

	status, env := ts.do(http.MethodPost, "/api/wizard/next", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Success)
	assert.False(t, *env.Success)
	assert.Equal(t, http.StatusUnauthorized, env.Status)

	status, _ = ts.do(http.MethodGet, "/api/history", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ts.do(http.MethodPost, "/api/auth/login", map[string]string{"pin": "0000"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = ts.do(http.MethodPost, "/api/auth/login", map[string]string{"pin": "1357"})
	require.Equal(t, http.StatusOK, status)
	var s wizard.State
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.True(t, s.Authenticated)

	ts.toStyle(models.GoalTextAd)
	status, _ = ts.do(http.MethodPost, "/api/wizard/generate", nil)
	require.Equal(t, http.StatusAccepted, status)
	require.Len(t, ts.awaitPhase(wizard.PhaseReady).History, 1)

	status, env = ts.do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"authenticated":false,"hasCredential":true}`, string(env.Data))

	status, env = ts.do(http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"authenticated":false,"hasCredential":true}`, string(env.Data))
	s = ts.state()
	assert.False(t, s.Authenticated)
	assert.True(t, s.HasCredential)
	assert.Empty(t, s.History)
	assert.Empty(t, s.Creatives)
	assert.Empty(t, s.Form.ProductDescription)
}

func TestGenerateFlow(t *testing.T) {
	ts := newTestServer(t, "")
	ts.login()
	ts.toStyle(models.GoalImageAd)

	count := 2
	status, _ := ts.do(http.MethodPatch, "/api/wizard/style", wizard.StylePatch{VariantCount: &count})
	require.Equal(t, http.StatusOK, status)

	status, env := ts.do(http.MethodPost, "/api/wizard/generate", nil)
	require.Equal(t, http.StatusAccepted, status)
	var accepted wizard.State
	require.NoError(t, json.Unmarshal(env.Data, &accepted))
	assert.Equal(t, wizard.StepResult, accepted.Step)

	s := ts.awaitPhase(wizard.PhaseReady)
	assert.Len(t, s.Creatives, 2)
	assert.Len(t, s.History, 1)

	resp, err := http.Get(ts.srv.URL + "/api/creatives/1/image")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "jpeg-2", string(body))

	status, _ = ts.do(http.MethodGet, "/api/creatives/7/image", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(http.MethodPost, "/api/wizard/refine", map[string]string{"instruction": "короче"})
	assert.Equal(t, http.StatusAccepted, status)
	ts.awaitPhase(wizard.PhaseReady)
}

func TestGenerateWithoutCredential(t *testing.T) {
	ts := newTestServer(t, "")
	ts.login()
	ts.toStyle(models.GoalTextAd)

	status, _ := ts.do(http.MethodDelete, "/api/credential", nil)
	require.Equal(t, http.StatusOK, status)

	status, env := ts.do(http.MethodPost, "/api/wizard/generate", nil)
	assert.Equal(t, http.StatusPreconditionFailed, status)
	assert.Equal(t, contract.UserMessage(contract.ErrMissingCredential), env.Message)
	assert.Equal(t, wizard.StepStyle, ts.state().Step)

	status, _ = ts.do(http.MethodPut, "/api/credential", map[string]string{"apiKey": "new-key"})
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.do(http.MethodPost, "/api/wizard/generate", nil)
	assert.Equal(t, http.StatusAccepted, status)
}

func TestWizardErrors(t *testing.T) {
	ts := newTestServer(t, "")
	ts.login()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{name: "goal required", method: http.MethodPost, path: "/api/wizard/next", status: http.StatusUnprocessableEntity},
		{name: "unknown goal", method: http.MethodPost, path: "/api/wizard/goal", body: map[string]string{"goal": "video"}, status: http.StatusUnprocessableEntity},
		{name: "wrong step", method: http.MethodPatch, path: "/api/wizard/style", body: map[string]int{"variantCount": 2}, status: http.StatusConflict},
		{name: "unknown field", method: http.MethodPost, path: "/api/wizard/goal", body: map[string]string{"target": "x"}, status: http.StatusBadRequest},
		{name: "missing history entry", method: http.MethodPost, path: "/api/history/nope/load", status: http.StatusNotFound},
		{name: "refine without result", method: http.MethodPost, path: "/api/wizard/refine", body: map[string]string{"instruction": "x"}, status: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := ts.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status, env.Message)
		})
	}
}

func TestExtract(t *testing.T) {
	ts := newTestServer(t, "")
	ts.login()
	status, _ := ts.do(http.MethodPost, "/api/wizard/goal", map[string]string{"goal": "text_ad"})
	require.Equal(t, http.StatusOK, status)

	t.Run("json body", func(t *testing.T) {
		status, env := ts.do(http.MethodPost, "/api/wizard/extract", map[string]string{"content": "Лендинг"})
		require.Equal(t, http.StatusOK, status)
		var info contract.ExtractedInfo
		require.NoError(t, json.Unmarshal(env.Data, &info))
		assert.Equal(t, "Цветы", info.ProductDescription)
	})

	t.Run("multipart upload", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "landing.html")
		require.NoError(t, err)
		_, _ = part.Write([]byte("<html><body>Цветы</body></html>"))
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/wizard/extract", &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		status, _ := ts.send(req)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "landing.html", ts.gen.lastFilename)
		assert.Contains(t, ts.gen.lastContent, "<body>")
	})

	t.Run("rejects other file types", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "landing.pdf")
		require.NoError(t, err)
		_, _ = part.Write([]byte("%PDF"))
		require.NoError(t, mw.Close())

		req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/wizard/extract", &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		status, _ := ts.send(req)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("url only", func(t *testing.T) {
		status, env := ts.do(http.MethodPost, "/api/wizard/extract", map[string]string{"url": "https://example.ru"})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, contract.UserMessage(contract.ErrURLUnsupported), env.Message)
	})

	t.Run("empty", func(t *testing.T) {
		status, _ := ts.do(http.MethodPost, "/api/wizard/extract", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestHistoryRoutes(t *testing.T) {
	ts := newTestServer(t, "")
	ts.login()
	ts.toStyle(models.GoalTextAd)
	status, _ := ts.do(http.MethodPost, "/api/wizard/generate", nil)
	require.Equal(t, http.StatusAccepted, status)
	ts.awaitPhase(wizard.PhaseReady)

	status, _ = ts.do(http.MethodPost, "/api/wizard/restart", nil)
	require.Equal(t, http.StatusOK, status)

	status, env := ts.do(http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, status)
	var history []models.HistoryEntry
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)

	status, _ = ts.do(http.MethodPost, "/api/history/"+history[0].ID+"/load", nil)
	require.Equal(t, http.StatusOK, status)
	s := ts.state()
	assert.Equal(t, wizard.StepResult, s.Step)
	assert.Equal(t, wizard.PhaseReady, s.Phase)

	status, _ = ts.do(http.MethodDelete, "/api/history", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, ts.state().History)
}

func TestStatic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>adwizard</h1>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0644))
	ts := newTestServer(t, "", WithStaticDir(dir))

	resp, err := http.Get(ts.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
	assert.Equal(t, "<h1>adwizard</h1>", string(body))

	resp2, err := http.Get(ts.srv.URL + "/app.js")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "application/javascript", resp2.Header.Get("Content-Type"))
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, "", WithAllowedOrigins([]string{"http://localhost:5173"}))

	req, err := http.NewRequest(http.MethodOptions, ts.srv.URL+"/api/state", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}
