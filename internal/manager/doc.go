// Package manager owns the single resident model and everything that
// touches it: the load/swap/unload state machine, request admission, and
// ordered token delivery. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig and package defaults; New applies defaults.
//   - types.go: internal state types (State, Instance).
//   - errors.go: error types and predicate helpers (IsOverloaded, ...).
//   - lifecycle.go: Load/Swap state machine, drain and forced cancel.
//   - admission.go: bounded FIFO queue and in-flight slot accounting.
//   - chat.go: Chat/ChatStream dispatch over the engine.
//   - session.go: Session, ordered events, backpressure, cancellation.
//   - status.go: Snapshot/Status read-only projections.
//   - events.go, eventpub_memory.go: lifecycle event publishing.
//   - metrics.go: prometheus counters for loads, swaps and tokens.
//
// Shared mutable state is the current *Instance plus its admission
// channels; all of it is guarded by Manager.mu. Swap holds ownership of
// the current-instance pointer for the whole drain-then-replace sequence
// so no request is ever admitted against an instance being unloaded.
//
// External packages should treat this package as the orchestration layer
// and use public methods only (New, Load, Swap, Chat, ChatStream, Ready,
// Models, Snapshot, Status). Internal types are subject to change.
package manager
