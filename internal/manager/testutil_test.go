package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/catalog"
	"chatd/internal/engine"
	"chatd/pkg/types"
)

// fakeEngine is a lightweight in-memory engine used for tests.
type fakeEngine struct {
	mu      sync.Mutex
	loadErr error
	failID  string // model id whose load fails with loadErr
	genErr  error
	tokens  []string
	final   engine.Result
	// when non-nil, Generate blocks until the channel is closed or the
	// request context is cancelled
	gate chan struct{}

	loads   int
	unloads int
	prompts []string
}

func (f *fakeEngine) Load(ctx context.Context, spec engine.LoadSpec) (engine.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil && (f.failID == "" || f.failID == spec.ModelID) {
		return nil, f.loadErr
	}
	f.loads++
	return &fakeModel{eng: f}, nil
}

func (f *fakeEngine) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func (f *fakeEngine) unloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unloads
}

func (f *fakeEngine) promptOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts))
	copy(out, f.prompts)
	return out
}

type fakeModel struct{ eng *fakeEngine }

func (m *fakeModel) Generate(ctx context.Context, prompt string, params engine.Params, onToken func(string) error) (engine.Result, error) {
	f := m.eng
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	genErr := f.genErr
	tokens := f.tokens
	final := f.final
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return engine.Result{}, ctx.Err()
		}
	}
	if genErr != nil {
		return engine.Result{}, genErr
	}
	for _, tok := range tokens {
		select {
		case <-ctx.Done():
			return engine.Result{}, ctx.Err()
		default:
		}
		if err := onToken(tok); err != nil {
			return engine.Result{}, err
		}
	}
	return final, nil
}

func (m *fakeModel) Unload() error {
	m.eng.mu.Lock()
	m.eng.unloads++
	m.eng.mu.Unlock()
	return nil
}

// testCatalog builds a catalog with three models against a 10000MB budget:
// small (500MB), mid (2000MB) and large (9000MB).
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]types.ModelDescriptor{
		{Alias: "small", ModelID: "small.gguf", EstMemoryMB: 500},
		{Alias: "mid", ModelID: "mid.gguf", EstMemoryMB: 2000},
		{Alias: "large", ModelID: "large.gguf", EstMemoryMB: 9000},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

// testManager wires a Manager around eng with short timeouts suitable for
// tests; mut tweaks the config before construction.
func testManager(t *testing.T, eng *fakeEngine, mut func(*ManagerConfig)) *Manager {
	t.Helper()
	cfg := ManagerConfig{
		Catalog:      testCatalog(t),
		Engine:       eng,
		Logger:       zerolog.Nop(),
		BudgetMB:     10000,
		QueueWait:    200 * time.Millisecond,
		DrainTimeout: 100 * time.Millisecond,
	}
	if mut != nil {
		mut(&cfg)
	}
	return New(cfg)
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// drainFrames consumes a session until its channel closes.
func drainFrames(t *testing.T, sess *Session) []types.StreamFrame {
	t.Helper()
	var out []types.StreamFrame
	deadline := time.After(5 * time.Second)
	for {
		select {
		case f, ok := <-sess.Events():
			if !ok {
				return out
			}
			out = append(out, f)
		case <-deadline:
			t.Fatalf("timed out draining session frames (got %d)", len(out))
		}
	}
}

func chatReq(text string) types.ChatRequest {
	return types.ChatRequest{Messages: []types.ChatMessage{{Role: "user", Content: text}}}
}
