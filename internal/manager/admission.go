package manager

import (
	"context"
	"sync"
	"time"
)

// acquire admits one request against the current instance. On success it
// returns the instance, a per-request context whose cancellation is also
// reachable by forced drain, and a release func that must be called
// exactly when the request settles; release is idempotent so the in-flight
// count is decremented exactly once on every outcome.
func (m *Manager) acquire(parent context.Context) (*Instance, context.Context, func(), error) {
	m.mu.RLock()
	inst := m.cur
	st := StateUnloaded
	if inst != nil {
		st = inst.State
	}
	m.mu.RUnlock()
	if inst == nil || st != StateReady {
		return nil, nil, nil, ErrUnavailable("no ready model (state " + string(st) + ")")
	}
	if err := parent.Err(); err != nil {
		return nil, nil, nil, err
	}

	// Fast path: an in-flight slot is free.
	select {
	case inst.genCh <- struct{}{}:
		return m.admitReady(parent, inst)
	default:
	}

	// Reserve a queue slot or reject immediately when the queue is full
	// (or configured with depth zero).
	select {
	case inst.queueCh <- struct{}{}:
	default:
		return nil, nil, nil, overloadedError{alias: inst.Desc.Alias}
	}
	defer func() { <-inst.queueCh }()

	timer := time.NewTimer(m.queueWait)
	defer timer.Stop()
	select {
	case inst.genCh <- struct{}{}:
		return m.admitReady(parent, inst)
	case <-parent.Done():
		return nil, nil, nil, parent.Err()
	case <-timer.C:
		return nil, nil, nil, overloadedError{alias: inst.Desc.Alias}
	}
}

// admitReady confirms inst is still admittable after a gen slot was taken.
// A swap may have drained, unloaded or replaced the instance between the
// unsynchronized state read and the slot take; admitting then would hand
// the request a dead model. On any non-ready state the slot is returned
// and the request fails unavailable.
func (m *Manager) admitReady(parent context.Context, inst *Instance) (*Instance, context.Context, func(), error) {
	m.mu.RLock()
	st := inst.State
	m.mu.RUnlock()
	if st != StateReady {
		<-inst.genCh
		return nil, nil, nil, ErrUnavailable("model " + inst.Desc.Alias + " is " + string(st))
	}
	return m.admitted(parent, inst)
}

// admitted registers the request's cancel token for forced drain and
// builds the once-only release.
func (m *Manager) admitted(parent context.Context, inst *Instance) (*Instance, context.Context, func(), error) {
	ctx, cancel := context.WithCancel(parent)
	m.mu.Lock()
	id := inst.nextID
	inst.nextID++
	inst.cancels[id] = cancel
	m.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(inst.cancels, id)
			m.mu.Unlock()
			<-inst.genCh
			cancel()
		})
	}
	return inst, ctx, release, nil
}
