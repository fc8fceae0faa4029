package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chatd/internal/engine"
	"chatd/internal/manager"
	"chatd/pkg/types"
)

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestModelsHandler(t *testing.T) {
	svc := newTestService(t, &stubEngine{}, nil)
	r := NewMux(svc)
	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Models) != 3 {
		t.Fatalf("models len=%d", len(body.Models))
	}
}

func TestStatusHandler(t *testing.T) {
	svc := newTestService(t, &stubEngine{}, nil)
	loadModel(t, svc, "small")
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.State != "ready" || body.ActiveModel != "small" || body.ReservedMB != 500 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHealthEndpoints(t *testing.T) {
	svc := newTestService(t, &stubEngine{}, nil)
	r := NewMux(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Fatalf("health: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before load: %d", w.Code)
	}

	loadModel(t, svc, "small")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("readyz after load: %d", w.Code)
	}
}

func TestChatHandler(t *testing.T) {
	eng := &stubEngine{
		tokens: []string{"hello", " there"},
		final:  engine.Result{FinishReason: "stop", Usage: types.Usage{TotalTokens: 2}},
	}
	svc := newTestService(t, eng, nil)
	loadModel(t, svc, "small")
	r := NewMux(svc)

	w := postJSON(t, r, "/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp types.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Content != "hello there" || resp.Model != "small" {
		t.Fatalf("resp: %+v", resp)
	}
}

func TestChatValidation(t *testing.T) {
	svc := newTestService(t, &stubEngine{}, nil)
	loadModel(t, svc, "small")
	r := NewMux(svc)

	if w := postJSON(t, r, "/chat", "not-json"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", w.Code)
	}
	if w := postJSON(t, r, "/chat", `{"messages":[]}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty messages: %d", w.Code)
	}
	if w := postJSON(t, r, "/chat", `{"messages":[{"role":"user","content":"hi"}],"stream":true}`); w.Code != http.StatusBadRequest {
		t.Fatalf("stream on /chat: %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("wrong content type: %d", w.Code)
	}
}

func TestChatBodyTooLarge(t *testing.T) {
	svc := newTestService(t, &stubEngine{}, nil)
	loadModel(t, svc, "small")
	r := NewMux(svc)
	big := make([]byte, (1<<20)+10)
	for i := range big {
		big[i] = 'a'
	}
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too-large body, got %d", w.Code)
	}
}

func TestChatUnavailableMaps503(t *testing.T) {
	svc := newTestService(t, &stubEngine{}, nil)
	r := NewMux(svc)
	w := postJSON(t, r, "/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != http.StatusServiceUnavailable || er.Error == "" {
		t.Fatalf("error payload: %+v", er)
	}
}

func TestChatOverloadedMaps429(t *testing.T) {
	eng := &stubEngine{gate: make(chan struct{})}
	svc := newTestService(t, eng, func(c *manager.ManagerConfig) {
		c.MaxConcurrency = 1
		c.QueueDepth = -1
	})
	loadModel(t, svc, "small")
	r := NewMux(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess, err := svc.ChatStream(ctx, types.ChatRequest{Messages: []types.ChatMessage{{Role: "user", Content: "hold"}}})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer sess.Cancel()
	deadline := time.Now().Add(time.Second)
	for svc.Snapshot().InFlight != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("in-flight request never started")
		}
		time.Sleep(2 * time.Millisecond)
	}

	w := postJSON(t, r, "/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

// A forced drain during a swap cancels in-flight work; the cancelled
// /chat request must surface as 503, not as an internal error.
func TestChatCancelledByDrainMaps503(t *testing.T) {
	eng := &stubEngine{gate: make(chan struct{})}
	svc := newTestService(t, eng, nil)
	loadModel(t, svc, "small")
	r := NewMux(svc)

	codeCh := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"messages":[{"role":"user","content":"hold"}]}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codeCh <- w.Code
	}()
	deadline := time.Now().Add(time.Second)
	for svc.Snapshot().InFlight != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("in-flight request never started")
		}
		time.Sleep(2 * time.Millisecond)
	}

	if err := svc.Swap(context.Background(), "tiny", 0); err != nil {
		t.Fatalf("swap: %v", err)
	}
	select {
	case code := <-codeCh:
		if code != http.StatusServiceUnavailable {
			t.Fatalf("status=%d, want 503", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("cancelled request never returned")
	}
}

func TestConfigModelSwap(t *testing.T) {
	svc := newTestService(t, &stubEngine{}, nil)
	loadModel(t, svc, "small")
	r := NewMux(svc)

	w := postJSON(t, r, "/config/model", `{"model":"small"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("same-alias swap: %d body=%s", w.Code, w.Body.String())
	}
	var resp types.ModelConfigResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Status != "success" || resp.Model != "small" {
		t.Fatalf("resp: %+v", resp)
	}

	if w := postJSON(t, r, "/config/model", `{"model":"missing"}`); w.Code != http.StatusNotFound {
		t.Fatalf("unknown alias: %d", w.Code)
	}
	if w := postJSON(t, r, "/config/model", `{"model":"huge"}`); w.Code != http.StatusInsufficientStorage {
		t.Fatalf("over budget: %d", w.Code)
	}
	if w := postJSON(t, r, "/config/model", `{"model":""}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty model: %d", w.Code)
	}
}

func TestConfigModelLoadFailureMaps502(t *testing.T) {
	eng := &stubEngine{loadErr: errors.New("corrupt weights")}
	svc := newTestService(t, eng, nil)
	r := NewMux(svc)
	if w := postJSON(t, r, "/config/model", `{"model":"small"}`); w.Code != http.StatusBadGateway {
		t.Fatalf("load failure: %d", w.Code)
	}
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func TestStatusForError(t *testing.T) {
	if got := statusForError(context.DeadlineExceeded); got != http.StatusGatewayTimeout {
		t.Fatalf("deadline: %d", got)
	}
	if got := statusForError(context.Canceled); got != http.StatusServiceUnavailable {
		t.Fatalf("cancelled: %d", got)
	}
	if got := statusForError(manager.ErrUnavailable("down")); got != http.StatusServiceUnavailable {
		t.Fatalf("unavailable: %d", got)
	}
	if got := statusForError(mockHTTPError{msg: "teapot", code: http.StatusTeapot}); got != http.StatusTeapot {
		t.Fatalf("http error: %d", got)
	}
	if got := statusForError(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("generic: %d", got)
	}
}
