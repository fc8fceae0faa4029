package manager

import (
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/catalog"
	"chatd/internal/engine"
	"chatd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxConcurrency = 1
	defaultQueueDepth     = 32
	defaultQueueWait      = 30 * time.Second
	defaultDrainTimeout   = 10 * time.Second
	defaultLoadTimeout    = 5 * time.Minute
	defaultStreamBuffer   = 256
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Catalog *catalog.Catalog
	Engine  engine.Engine
	Logger  zerolog.Logger

	// Memory ceiling in MB for the resident model; 0 disables the check.
	BudgetMB int
	// Maximum concurrent in-flight generations against the instance.
	MaxConcurrency int
	// Maximum requests waiting for a generation slot. 0 means the
	// package default; negative disables queueing entirely, so requests
	// beyond MaxConcurrency are rejected immediately.
	QueueDepth int
	// How long a queued request may wait before Overloaded.
	QueueWait time.Duration
	// Default drain timeout for swaps that do not specify one.
	DrainTimeout time.Duration
	// Ceiling on a single engine load.
	LoadTimeout time.Duration
	// Per-request generation timeout; 0 disables.
	GenTimeout time.Duration
	// Token buffer ceiling per streaming session before overflow.
	StreamBuffer int

	// Engine tunables passed through on load.
	CtxSize int
	Threads int
	// Device used when a catalog entry leaves the preference on auto.
	DefaultDevice types.DevicePreference
}

// New constructs a Manager from ManagerConfig, applying package defaults
// for unset fields.
func New(cfg ManagerConfig) *Manager {
	m := &Manager{
		cat:           cfg.Catalog,
		eng:           cfg.Engine,
		log:           cfg.Logger,
		budgetMB:      cfg.BudgetMB,
		ctxSize:       cfg.CtxSize,
		threads:       cfg.Threads,
		defaultDevice: cfg.DefaultDevice,
		publisher:     noopPublisher{},
		startTime:     time.Now(),
	}
	m.maxConcurrency = cfg.MaxConcurrency
	if m.maxConcurrency <= 0 {
		m.maxConcurrency = defaultMaxConcurrency
	}
	switch {
	case cfg.QueueDepth == 0:
		m.queueDepth = defaultQueueDepth
	case cfg.QueueDepth < 0:
		m.queueDepth = 0
	default:
		m.queueDepth = cfg.QueueDepth
	}
	m.queueWait = cfg.QueueWait
	if m.queueWait <= 0 {
		m.queueWait = defaultQueueWait
	}
	m.drainTimeout = cfg.DrainTimeout
	if m.drainTimeout < 0 {
		m.drainTimeout = defaultDrainTimeout
	}
	m.loadTimeout = cfg.LoadTimeout
	if m.loadTimeout <= 0 {
		m.loadTimeout = defaultLoadTimeout
	}
	m.genTimeout = cfg.GenTimeout
	m.streamBuffer = cfg.StreamBuffer
	if m.streamBuffer <= 0 {
		m.streamBuffer = defaultStreamBuffer
	}
	return m
}
