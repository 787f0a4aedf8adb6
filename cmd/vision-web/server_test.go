package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fpang/ai-vision-studio/internal/chat"
	"github.com/fpang/ai-vision-studio/internal/cli"
	"github.com/fpang/ai-vision-studio/internal/config"
	"github.com/fpang/ai-vision-studio/internal/metrics"
	"github.com/fpang/ai-vision-studio/internal/store"
	"github.com/fpang/ai-vision-studio/internal/studio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// stubOrchestrator answers every call with canned data. When gate is set,
// GenerateImage signals entered and blocks until gate is closed.
type stubOrchestrator struct {
	mu    sync.Mutex
	calls int

	err     error
	entered chan struct{}
	gate    chan struct{}
}

func (s *stubOrchestrator) hit() error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.err
}

func (s *stubOrchestrator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubOrchestrator) GenerateImage(_ context.Context, _ string) (chat.Image, error) {
	if s.gate != nil {
		s.entered <- struct{}{}
		<-s.gate
	}
	if err := s.hit(); err != nil {
		return chat.Image{}, err
	}
	return chat.Image{Data: []byte("generated"), MIMEType: chat.GeneratedImageMIMEType}, nil
}

func (s *stubOrchestrator) DescribeImage(_ context.Context, _ chat.Image) (string, error) {
	return "A red square.", s.hit()
}

func (s *stubOrchestrator) SuggestEdits(_ context.Context, _ chat.Image) ([]chat.EditSuggestion, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return []chat.EditSuggestion{{Title: "Blue", Description: "Make it blue."}}, nil
}

func (s *stubOrchestrator) GenerateStory(_ context.Context, _ chat.Image) (string, error) {
	return "Once upon a time.", s.hit()
}

func (s *stubOrchestrator) EditImage(_ context.Context, _ chat.Image, _ string) (chat.Image, error) {
	if err := s.hit(); err != nil {
		return chat.Image{}, err
	}
	return chat.Image{Data: []byte("edited"), MIMEType: chat.EditedImageMIMEType}, nil
}

type testEnv struct {
	handler http.Handler
	orch    *stubOrchestrator
}

func newTestEnv(t *testing.T, cfg *config.Config, pick filePicker) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	orch := &stubOrchestrator{}
	sessions := store.NewMemoryStore(time.Hour, controllerFactory(orch, cfg))
	return &testEnv{handler: newServer(sessions, cfg, pick).routes(), orch: orch}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	return decode(t, rec)["id"].(string)
}

func (e *testEnv) upload(t *testing.T, id string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "square.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))))
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	rec := env.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestCreateAndGetSession(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.createSession(t)

	rec := env.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, id, body["id"])
	assert.Equal(t, "idle", body["phase"])
	assert.Nil(t, body["image"])
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	rec := env.do(t, http.MethodGet, "/api/sessions/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sessions/does-not-exist/reset", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.createSession(t)

	rec := env.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerate(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/generate", generateRequest{Prompt: "a red square"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "idle", body["phase"])
	img := body["image"].(map[string]interface{})
	assert.Equal(t, "image/jpeg", img["mediaType"])
	assert.True(t, strings.HasPrefix(img["dataUrl"].(string), "data:image/jpeg;base64,"))

	raw := env.do(t, http.MethodGet, "/api/sessions/"+id+"/image", nil)
	assert.Equal(t, http.StatusOK, raw.Code)
	assert.Equal(t, "image/jpeg", raw.Header().Get("Content-Type"))
	assert.Equal(t, "generated", raw.Body.String())
}

func TestGenerate_FailureIsReportedInState(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.orch.err = errors.New("boom")
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/generate", generateRequest{Prompt: "x"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "idle", body["phase"])
	assert.NotEmpty(t, body["error"])

	rec = env.do(t, http.MethodPost, "/api/sessions/"+id+"/dismiss-error", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["error"])
}

func TestGenerate_BlankPrompt(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/generate", generateRequest{Prompt: "   "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, studio.MsgEmptyPrompt, decode(t, rec)["error"])
	assert.Zero(t, env.orch.callCount())
}

func TestGenerate_RejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/generate", map[string]string{"text": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze_WithoutImage(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/analyze", analyzeRequest{Kind: "describe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, env.orch.callCount())
}

func TestAnalyze_UnknownKind(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/analyze", analyzeRequest{Kind: "poem"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadThenAnalyze(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.createSession(t)

	rec := env.upload(t, id, pngBytes(t))
	require.Equal(t, http.StatusOK, rec.Code)
	img := decode(t, rec)["image"].(map[string]interface{})
	assert.Equal(t, "square.png", img["name"])
	assert.Equal(t, "image/png", img["mediaType"])

	rec = env.do(t, http.MethodPost, "/api/sessions/"+id+"/analyze", analyzeRequest{Kind: "describe"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "describe", body["analysisKind"])
	assert.Equal(t, "A red square.", body["analysisResult"])
	assert.Equal(t, "Image Description", body["analysisTitle"])

	rec = env.do(t, http.MethodPost, "/api/sessions/"+id+"/analyze", analyzeRequest{Kind: "suggest"})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Nil(t, body["analysisResult"])
	suggestions := body["suggestions"].([]interface{})
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Blue", suggestions[0].(map[string]interface{})["title"])

	rec = env.do(t, http.MethodPost, "/api/sessions/"+id+"/clear-analysis", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Nil(t, body["suggestions"])
	assert.NotNil(t, body["image"])
}

func TestUpload_InvalidFile(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.createSession(t)

	rec := env.upload(t, id, []byte("not an image"))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, studio.MsgUploadFailed, body["error"])
	assert.Nil(t, body["image"])
}

func TestUpload_TooLarge(t *testing.T) {
	env := newTestEnv(t, &config.Config{MaxUploadBytes: 1024}, nil)
	id := env.createSession(t)

	rec := env.upload(t, id, make([]byte, 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUpload_MissingFile(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/upload", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEdit(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.createSession(t)
	require.Equal(t, http.StatusOK, env.upload(t, id, pngBytes(t)).Code)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/edit", editRequest{Instruction: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sessions/"+id+"/edit", editRequest{Instruction: "make it blue"})
	require.Equal(t, http.StatusOK, rec.Code)
	img := decode(t, rec)["image"].(map[string]interface{})
	assert.Equal(t, "image/png", img["mediaType"])

	raw := env.do(t, http.MethodGet, "/api/sessions/"+id+"/image", nil)
	assert.Equal(t, "edited", raw.Body.String())
}

func TestReset(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.createSession(t)
	require.Equal(t, http.StatusOK, env.upload(t, id, pngBytes(t)).Code)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["image"])

	rec = env.do(t, http.MethodGet, "/api/sessions/"+id+"/image", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBusySessionRejectsCommands(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.orch.entered = make(chan struct{}, 1)
	env.orch.gate = make(chan struct{})
	id := env.createSession(t)

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- env.do(t, http.MethodPost, "/api/sessions/"+id+"/generate", generateRequest{Prompt: "slow"})
	}()
	<-env.orch.entered

	rec := env.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, "generating", decode(t, rec)["phase"])

	rec = env.do(t, http.MethodPost, "/api/sessions/"+id+"/generate", generateRequest{Prompt: "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sessions/"+id+"/reset", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(env.orch.gate)
	first := <-done
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, 1, env.orch.callCount())
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, &config.Config{RateLimitPerMinute: 1}, nil)
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/generate", generateRequest{Prompt: "one"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sessions/"+id+"/generate", generateRequest{Prompt: "two"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, env.orch.callCount())

	rec = env.do(t, http.MethodGet, "/api/sessions/"+id, nil)
	assert.Equal(t, "idle", decode(t, rec)["phase"])
}

func TestRateLimit_RejectedCommandsKeepToken(t *testing.T) {
	env := newTestEnv(t, &config.Config{RateLimitPerMinute: 1}, nil)
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/generate", generateRequest{Prompt: "  "})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/sessions/"+id+"/analyze", analyzeRequest{Kind: "describe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/sessions/"+id+"/edit", editRequest{Instruction: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sessions/"+id+"/generate", generateRequest{Prompt: "one"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.orch.callCount())
}

func TestRateLimit_BusyRejectionKeepsToken(t *testing.T) {
	env := newTestEnv(t, &config.Config{RateLimitPerMinute: 2}, nil)
	env.orch.entered = make(chan struct{}, 1)
	env.orch.gate = make(chan struct{})
	id := env.createSession(t)

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- env.do(t, http.MethodPost, "/api/sessions/"+id+"/generate", generateRequest{Prompt: "slow"})
	}()
	<-env.orch.entered

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/generate", generateRequest{Prompt: "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(env.orch.gate)
	assert.Equal(t, http.StatusOK, (<-done).Code)
	env.orch.gate = nil

	rec = env.do(t, http.MethodPost, "/api/sessions/"+id+"/generate", generateRequest{Prompt: "second"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/api/sessions/"+id+"/generate", generateRequest{Prompt: "third"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestPick(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picked.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t), 0o600))

	env := newTestEnv(t, nil, func() (string, error) { return path, nil })
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/pick", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	img := decode(t, rec)["image"].(map[string]interface{})
	assert.Equal(t, "picked.png", img["name"])
}

func TestPick_Canceled(t *testing.T) {
	env := newTestEnv(t, nil, func() (string, error) { return "", cli.ErrPickCanceled })
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/pick", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Nil(t, body["image"])
	assert.Nil(t, body["error"])
}

func TestPick_Disabled(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.createSession(t)

	rec := env.do(t, http.MethodPost, "/api/sessions/"+id+"/pick", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	id := env.createSession(t)

	rec := env.do(t, http.MethodGet, "/api/sessions/"+id+"/generate", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/sessions", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestFrontendFallback(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.do(t, http.MethodGet, "/some/client/route", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "AI Vision Studio")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/health", "/api/health"},
		{"/api/sessions", "/api/sessions"},
		{"/api/sessions/0b1c2d3e-aaaa-bbbb-cccc-1234567890ab", "/api/sessions/*"},
		{"/api/sessions/0b1c2d3e-aaaa-bbbb-cccc-1234567890ab/edit", "/api/sessions/*/edit"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeEndpoint(tt.path))
		})
	}
}
