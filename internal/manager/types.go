package manager

import (
	"context"
	"time"

	"chatd/internal/engine"
	"chatd/pkg/types"
)

// State represents the lifecycle state of the resident instance.
type State string

const (
	StateUnloaded  State = "unloaded"
	StateLoading   State = "loading"
	StateReady     State = "ready"
	StateDraining  State = "draining"
	StateUnloading State = "unloading"
	StateFailed    State = "failed"
)

// Instance is one loaded, resident copy of a model. The Manager owns it
// exclusively; at most one instance is in a non-unloaded state and at most
// one is ready at any instant.
type Instance struct {
	Desc     types.ModelDescriptor
	State    State
	LoadedAt time.Time

	model engine.Model

	// Admission primitives. genCh slots are in-flight generations
	// (cap = max concurrency); queueCh slots are waiting requests
	// (cap = queue depth). A request holds a queue slot only while
	// waiting, and exactly one gen slot while executing.
	genCh   chan struct{}
	queueCh chan struct{}

	// Cancel funcs of admitted requests, keyed by admission id, used for
	// forced cancellation on drain timeout.
	cancels map[uint64]context.CancelFunc
	nextID  uint64
}

// Snapshot is a read-only projection of manager/coordinator state.
type Snapshot struct {
	State       State
	ActiveAlias string
	InFlight    int
	QueueDepth  int
	ReservedMB  int
	LastError   string
}
