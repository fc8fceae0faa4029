package manager

import (
	"context"
	"time"

	"chatd/internal/engine"
	"chatd/pkg/types"
)

// drainPollInterval is how often Swap re-checks in-flight counts while
// draining. Drain completion is a poll, not a notification, so a leaked
// in-flight slot would show up here as a hung swap.
const drainPollInterval = 5 * time.Millisecond

// swapOp tracks the single in-progress swap. A later Swap preempts the
// current one during its drain phase; the loser returns a conflict error
// and the instance takes the draining -> ready abort path.
type swapOp struct {
	target    string
	preempted bool   // guarded by Manager.mu
	winner    string // guarded by Manager.mu; alias of the preempting swap
	done      chan struct{}
}

// Load resolves alias and brings it up as the resident instance.
// The memory budget is checked before any device allocation; on
// insufficient budget the manager state is left untouched. A load issued
// while a different model is resident fails; swapping is explicit.
func (m *Manager) Load(ctx context.Context, alias string) error {
	desc, ok := m.cat.Resolve(alias)
	if !ok {
		return modelNotFoundError{alias: alias}
	}
	m.mu.Lock()
	if m.cur != nil && m.cur.State == StateReady && m.cur.Desc.Alias == alias {
		m.mu.Unlock()
		return nil
	}
	inst, err := m.startLoadLocked(desc)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.runLoad(ctx, inst)
}

// startLoadLocked checks the budget and residency invariant, then installs
// a loading instance as current. Caller holds m.mu.
func (m *Manager) startLoadLocked(desc types.ModelDescriptor) (*Instance, error) {
	if m.budgetMB > 0 && m.reservedMB+desc.EstMemoryMB > m.budgetMB {
		err := budgetExceededError{
			alias:       desc.Alias,
			requiredMB:  desc.EstMemoryMB,
			remainingMB: m.budgetMB - m.reservedMB,
		}
		m.lastErr = err.Error()
		return nil, err
	}
	if m.cur != nil {
		if m.cur.State == StateReady {
			return nil, alreadyResidentError{resident: m.cur.Desc.Alias}
		}
		return nil, ErrUnavailable("model " + m.cur.Desc.Alias + " is " + string(m.cur.State))
	}
	inst := &Instance{
		Desc:    desc,
		State:   StateLoading,
		genCh:   make(chan struct{}, m.maxConcurrency),
		queueCh: make(chan struct{}, m.queueDepth),
		cancels: make(map[uint64]context.CancelFunc),
	}
	m.cur = inst
	return inst, nil
}

// runLoad drives the engine load for an installed loading instance and
// commits the ready or failed transition.
func (m *Manager) runLoad(ctx context.Context, inst *Instance) error {
	alias := inst.Desc.Alias
	start := time.Now()
	m.log.Info().Str("model", alias).Msg("load start")
	m.publish(Event{Name: "load_start", Alias: alias})

	device := inst.Desc.Device
	if m.defaultDevice != "" && (device == "" || device == types.DeviceAuto) {
		device = m.defaultDevice
	}
	lctx, cancel := context.WithTimeout(ctx, m.loadTimeout)
	defer cancel()
	mdl, err := m.eng.Load(lctx, engine.LoadSpec{
		ModelID: inst.Desc.ModelID,
		Device:  device,
		CtxSize: m.ctxSize,
		Threads: m.threads,
	})
	if err != nil {
		if engine.IsUnavailable(err) {
			err = ErrUnavailable(err.Error())
		} else {
			err = loadFailureError{alias: alias, cause: err}
		}
		m.mu.Lock()
		inst.State = StateFailed
		m.lastErr = err.Error()
		// Free the slot so a retry with the same or another alias works.
		m.cur = nil
		m.mu.Unlock()
		loadFailuresTotal.Inc()
		m.log.Error().Err(err).Str("model", alias).Msg("load failed")
		m.publish(Event{Name: "load_failed", Alias: alias, Fields: map[string]any{"error": err.Error()}})
		return err
	}

	m.mu.Lock()
	inst.model = mdl
	inst.State = StateReady
	inst.LoadedAt = time.Now()
	m.reservedMB += inst.Desc.EstMemoryMB
	m.loadsTotal++
	m.lastErr = ""
	m.mu.Unlock()
	loadsTotal.Inc()
	m.log.Info().Str("model", alias).Dur("dur", time.Since(start)).Msg("load ready")
	m.publish(Event{Name: "load_ready", Alias: alias, Fields: map[string]any{"dur_ms": int(time.Since(start) / time.Millisecond)}})
	return nil
}

// Swap replaces the resident model with alias. The old instance is drained
// (no new admissions; in-flight work finishes) until drainTimeout elapses,
// at which point in-flight requests are forcibly cancelled. The old model
// is unloaded before the new one loads, so two models are never resident
// at once; if the new load fails the system is left with no ready model.
// A negative drainTimeout selects the configured default.
func (m *Manager) Swap(ctx context.Context, alias string, drainTimeout time.Duration) error {
	desc, ok := m.cat.Resolve(alias)
	if !ok {
		return modelNotFoundError{alias: alias}
	}
	if drainTimeout < 0 {
		drainTimeout = m.drainTimeout
	}

	op := &swapOp{target: alias, done: make(chan struct{})}
	m.mu.Lock()
	for m.swap != nil {
		prev := m.swap
		prev.preempted = true
		prev.winner = alias
		m.mu.Unlock()
		<-prev.done
		m.mu.Lock()
	}
	m.swap = op
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		if m.swap == op {
			m.swap = nil
		}
		m.mu.Unlock()
		close(op.done)
	}()

	m.publish(Event{Name: "swap_start", Alias: alias})

	m.mu.Lock()
	old := m.cur
	if old != nil && old.State == StateReady && old.Desc.Alias == alias {
		m.mu.Unlock()
		return nil
	}
	if old == nil || old.State != StateReady {
		// No ready instance: behave like a plain load.
		inst, err := m.startLoadLocked(desc)
		m.mu.Unlock()
		if err != nil {
			return err
		}
		return m.runLoad(ctx, inst)
	}
	old.State = StateDraining
	m.mu.Unlock()
	m.log.Info().Str("old", old.Desc.Alias).Str("new", alias).Dur("drain_timeout", drainTimeout).Msg("swap draining")
	m.publish(Event{Name: "drain_start", Alias: old.Desc.Alias})

	deadline := time.Now().Add(drainTimeout)
	forced := false
	for {
		m.mu.Lock()
		inflight := len(old.genCh)
		queued := len(old.queueCh)
		preempted := op.preempted
		winner := op.winner
		m.mu.Unlock()

		if preempted || ctx.Err() != nil {
			// Abort path: draining -> ready, the instance stays up.
			m.mu.Lock()
			if m.cur == old && old.State == StateDraining {
				old.State = StateReady
			}
			m.mu.Unlock()
			m.publish(Event{Name: "swap_aborted", Alias: alias})
			if preempted {
				return swapConflictError{winner: winner}
			}
			return ctx.Err()
		}
		if inflight == 0 && queued == 0 {
			break
		}
		if !forced && !time.Now().Before(deadline) {
			forced = true
			n := m.forceCancel(old)
			m.log.Warn().Str("model", old.Desc.Alias).Int("cancelled", n).Msg("drain timeout, cancelling in-flight requests")
			m.publish(Event{Name: "drain_forced", Alias: old.Desc.Alias, Fields: map[string]any{"cancelled": n}})
		}
		time.Sleep(drainPollInterval)
	}

	m.mu.Lock()
	old.State = StateUnloading
	m.mu.Unlock()
	m.publish(Event{Name: "unload_start", Alias: old.Desc.Alias})
	if old.model != nil {
		if err := old.model.Unload(); err != nil {
			m.log.Warn().Err(err).Str("model", old.Desc.Alias).Msg("unload error")
		}
	}
	m.mu.Lock()
	m.reservedMB -= old.Desc.EstMemoryMB
	if m.reservedMB < 0 {
		m.reservedMB = 0
	}
	old.State = StateUnloaded
	old.model = nil
	m.cur = nil
	inst, err := m.startLoadLocked(desc)
	m.mu.Unlock()
	m.publish(Event{Name: "unload_done", Alias: old.Desc.Alias})
	if err != nil {
		return err
	}
	if err := m.runLoad(ctx, inst); err != nil {
		// Fail-closed: the old model is already gone, callers must retry.
		return err
	}
	m.mu.Lock()
	m.swapsTotal++
	m.mu.Unlock()
	swapsTotal.Inc()
	return nil
}

// forceCancel triggers the cancel tokens of every admitted request on
// inst and returns how many were cancelled. Cancellation is cooperative:
// generation stops within one token step, after which the in-flight count
// drains to zero.
func (m *Manager) forceCancel(inst *Instance) int {
	m.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(inst.cancels))
	for _, c := range inst.cancels {
		cancels = append(cancels, c)
	}
	m.mu.Unlock()
	for _, c := range cancels {
		c()
	}
	forcedCancelsTotal.Add(float64(len(cancels)))
	return len(cancels)
}
