package manager

import (
	"time"

	"github.com/shirou/gopsutil/mem"

	"chatd/pkg/types"
)

// Snapshot returns a read-only view of lifecycle and admission state. It
// never blocks on model work and never mutates.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		State:      StateUnloaded,
		ReservedMB: m.reservedMB,
		LastError:  m.lastErr,
	}
	if m.cur != nil {
		s.State = m.cur.State
		s.ActiveAlias = m.cur.Desc.Alias
		s.InFlight = len(m.cur.genCh)
		s.QueueDepth = len(m.cur.queueCh)
	}
	return s
}

// Status builds the detailed response for GET /status.
func (m *Manager) Status() types.StatusResponse {
	snap := m.Snapshot()
	m.mu.RLock()
	resp := types.StatusResponse{
		State:          string(snap.State),
		ActiveModel:    snap.ActiveAlias,
		InFlight:       snap.InFlight,
		QueueDepth:     snap.QueueDepth,
		BudgetMB:       m.budgetMB,
		ReservedMB:     snap.ReservedMB,
		LastError:      snap.LastError,
		UptimeSeconds:  int64(time.Since(m.startTime) / time.Second),
		ServerTimeUnix: time.Now().Unix(),
		LoadsTotal:     m.loadsTotal,
		SwapsTotal:     m.swapsTotal,
	}
	m.mu.RUnlock()
	// Host figures are best effort; zeros when the probe fails.
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		resp.HostMemTotalMB = vm.Total / (1024 * 1024)
		resp.HostMemAvailableMB = vm.Available / (1024 * 1024)
	}
	return resp
}
