//go:build llama

package engine

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"chatd/pkg/types"
)

// llamaEngine loads gguf models in-process via go-llama.cpp.
type llamaEngine struct {
	ctxSize int
	threads int
}

// NewLlamaEngine returns the in-process llama.cpp engine.
func NewLlamaEngine(ctxSize, threads int) Engine {
	return &llamaEngine{ctxSize: ctxSize, threads: threads}
}

type llamaModel struct {
	model   *llama.LLama
	threads int
}

func (e *llamaEngine) Load(ctx context.Context, spec LoadSpec) (Model, error) {
	if strings.TrimSpace(spec.ModelID) == "" {
		return nil, errors.New("model id is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctxSize := spec.CtxSize
	if ctxSize <= 0 {
		ctxSize = e.ctxSize
	}
	mo := []llama.ModelOption{llama.SetContext(ctxSize)}
	if spec.Device == types.DeviceGPU || spec.Device == types.DeviceAuto {
		// Offload everything the backend can take; llama.cpp clamps to
		// the real layer count.
		mo = append(mo, llama.SetGPULayers(999))
	}
	m, err := llama.New(spec.ModelID, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaModel{model: m, threads: e.threads}, nil
}

func (m *llamaModel) Generate(ctx context.Context, prompt string, params Params, onToken func(string) error) (Result, error) {
	if m.model == nil {
		return Result{}, errors.New("llama model not initialized")
	}
	completion := 0
	m.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if err := onToken(tok); err != nil {
			return false
		}
		completion++
		return true
	})
	po := predictOptions(params, m.threads)
	text, err := m.model.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, err
	}
	reason := "stop"
	if params.MaxTokens > 0 && completion >= params.MaxTokens {
		reason = "length"
	}
	return Result{
		Content:      text,
		FinishReason: reason,
		Usage:        types.Usage{CompletionTokens: completion, TotalTokens: completion},
	}, nil
}

func (m *llamaModel) Unload() error {
	if m.model != nil {
		m.model.Free()
		m.model = nil
	}
	return nil
}

func predictOptions(params Params, threads int) []llama.PredictOption {
	if threads < 1 {
		threads = 1
	}
	tokens := params.MaxTokens
	if tokens < 1 {
		tokens = 1
	}
	po := []llama.PredictOption{
		llama.SetTokens(tokens),
		llama.SetThreads(threads),
	}
	if params.Temperature > 0 {
		po = append(po, llama.SetTemperature(params.Temperature))
	}
	if params.TopP > 0 {
		po = append(po, llama.SetTopP(params.TopP))
	}
	if params.Seed != 0 {
		po = append(po, llama.SetSeed(params.Seed))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}
