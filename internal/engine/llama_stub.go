//go:build !llama

package engine

import "context"

// This file provides a no-CGO stub for the llama engine. It is compiled
// when the 'llama' build tag is NOT set, keeping default builds and CI
// CGO-free. The real adapter lives in llama.go (tagged 'llama').

type llamaEngine struct {
	ctxSize int
	threads int
}

// NewLlamaEngine returns a stub that satisfies Engine but refuses to load
// models without the 'llama' build tag. This avoids any mocked behavior in
// binaries built without CGO support.
func NewLlamaEngine(ctxSize, threads int) Engine {
	return &llamaEngine{ctxSize: ctxSize, threads: threads}
}

func (e *llamaEngine) Load(ctx context.Context, spec LoadSpec) (Model, error) {
	return nil, ErrUnavailable("llama support not built (missing 'llama' build tag)")
}
