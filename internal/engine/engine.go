// Package engine defines the capability interface over an opaque
// model-loading/generation backend. The lifecycle manager depends only on
// this interface; concrete adapters (llama.cpp in-process, test fakes)
// live behind it.
package engine

import (
	"context"

	"chatd/pkg/types"
)

// LoadSpec tells the engine what to materialize and where.
type LoadSpec struct {
	// Opaque model identifier from the catalog (path or hub id).
	ModelID string
	// Device preference: cpu, gpu or auto.
	Device types.DevicePreference
	// Context window size; 0 lets the adapter choose.
	CtxSize int
	// CPU threads for generation; 0 lets the adapter choose.
	Threads int
}

// Params captures generation parameters for one request.
type Params struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
	Stop        []string
	Seed        int
}

// Result summarizes the generation after streaming.
type Result struct {
	Content      string
	FinishReason string
	Usage        types.Usage
}

// Engine loads models. Load may block for seconds to minutes; it must
// return promptly when ctx is cancelled.
type Engine interface {
	Load(ctx context.Context, spec LoadSpec) (Model, error)
}

// Model is one loaded, resident copy of a model. Generate invokes onToken
// for each produced token and must stop within one generation step of ctx
// cancellation. Unload releases device memory; the Model must not be used
// afterwards.
type Model interface {
	Generate(ctx context.Context, prompt string, params Params, onToken func(string) error) (Result, error)
	Unload() error
}

// unavailableError signals that no usable backend is compiled in or its
// runtime dependency is missing, so callers can degrade to 503.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing/failed backend.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}
