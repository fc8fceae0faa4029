package httpapi

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/catalog"
	"chatd/internal/engine"
	"chatd/internal/manager"
	"chatd/pkg/types"
)

// stubEngine is an in-memory engine for handler tests.
type stubEngine struct {
	mu      sync.Mutex
	loadErr error
	tokens  []string
	final   engine.Result
	// when non-nil, Generate blocks until closed or the context ends
	gate chan struct{}
}

func (s *stubEngine) Load(ctx context.Context, spec engine.LoadSpec) (engine.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return stubModel{eng: s}, nil
}

type stubModel struct{ eng *stubEngine }

func (m stubModel) Generate(ctx context.Context, prompt string, params engine.Params, onToken func(string) error) (engine.Result, error) {
	m.eng.mu.Lock()
	tokens := m.eng.tokens
	final := m.eng.final
	gate := m.eng.gate
	m.eng.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return engine.Result{}, ctx.Err()
		}
	}
	for _, tok := range tokens {
		if err := onToken(tok); err != nil {
			return engine.Result{}, err
		}
	}
	return final, nil
}

func (m stubModel) Unload() error { return nil }

// newTestService builds a manager over stub catalog and engine; budget is
// 4000MB with a 500MB and a 9000MB model so over-budget paths are reachable.
func newTestService(t *testing.T, eng *stubEngine, mut func(*manager.ManagerConfig)) *manager.Manager {
	t.Helper()
	cat, err := catalog.New([]types.ModelDescriptor{
		{Alias: "small", ModelID: "small.gguf", EstMemoryMB: 500},
		{Alias: "tiny", ModelID: "tiny.gguf", EstMemoryMB: 100},
		{Alias: "huge", ModelID: "huge.gguf", EstMemoryMB: 9000},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	cfg := manager.ManagerConfig{
		Catalog:      cat,
		Engine:       eng,
		Logger:       zerolog.Nop(),
		BudgetMB:     4000,
		QueueWait:    100 * time.Millisecond,
		DrainTimeout: 100 * time.Millisecond,
	}
	if mut != nil {
		mut(&cfg)
	}
	return manager.New(cfg)
}

func loadModel(t *testing.T, m *manager.Manager, alias string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Load(ctx, alias); err != nil {
		t.Fatalf("load %s: %v", alias, err)
	}
}
