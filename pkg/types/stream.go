package types

// Stream frame types emitted over the streaming transport. A stream is zero
// or more token frames followed by exactly one done or error frame.
const (
	FrameToken = "token"
	FrameDone  = "done"
	FrameError = "error"
)

// StreamFrame is one JSON frame of a streaming response. Sequence starts at
// 0 and increases by exactly 1 per token; the terminal frame carries the
// next sequence number so consumers can verify there are no gaps.
type StreamFrame struct {
	// token, done or error.
	// example: token
	Type string `json:"type" example:"token"`
	// Dense per-stream sequence number.
	// example: 7
	Sequence uint64 `json:"sequence" example:"7"`
	// Token text on token frames; human-readable detail on error frames.
	Text string `json:"text,omitempty"`
	// Why generation stopped (done frames only).
	// example: stop
	FinishReason string `json:"finish_reason,omitempty" example:"stop"`
	// Error kind (error frames only): cancelled, backpressure_overflow,
	// generation_error or timeout.
	Kind string `json:"kind,omitempty"`
}
