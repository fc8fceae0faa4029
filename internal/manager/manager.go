package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/catalog"
	"chatd/internal/engine"
	"chatd/pkg/types"
)

// Manager owns the resident model instance and coordinates requests
// against it. See the package documentation for the file layout.
type Manager struct {
	mu  sync.RWMutex
	cur *Instance

	// Reserved memory for the resident instance; updated only on
	// ready/unloaded transitions.
	reservedMB int
	lastErr    string

	// In-progress swap, nil when idle. Guarded by mu; see lifecycle.go.
	swap *swapOp

	cat *catalog.Catalog
	eng engine.Engine
	log zerolog.Logger

	budgetMB       int
	defaultDevice  types.DevicePreference
	maxConcurrency int
	queueDepth     int
	queueWait      time.Duration
	drainTimeout   time.Duration
	loadTimeout    time.Duration
	genTimeout     time.Duration
	streamBuffer   int
	ctxSize        int
	threads        int

	publisher  EventPublisher
	startTime  time.Time
	loadsTotal uint64
	swapsTotal uint64
}

// SetPublisher installs an event publisher. Intended for tests and
// optional observers; the default drops events.
func (m *Manager) SetPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

func (m *Manager) publish(e Event) {
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	p.Publish(e)
}

// Ready reports whether a ready instance exists.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur != nil && m.cur.State == StateReady
}

// Models lists the catalog.
func (m *Manager) Models() []types.ModelDescriptor {
	return m.cat.List()
}

// DrainTimeout returns the configured default drain timeout for swaps.
func (m *Manager) DrainTimeout() time.Duration {
	return m.drainTimeout
}
