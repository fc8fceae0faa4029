package manager

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"chatd/internal/engine"
	"chatd/pkg/types"
)

// Generation parameter defaults, matching the public API contract.
const (
	defaultMaxTokens   = 2048
	defaultTemperature = 0.7
	defaultTopP        = 0.9
)

func genParams(req types.ChatRequest) engine.Params {
	p := engine.Params{
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = defaultMaxTokens
	}
	if p.Temperature <= 0 {
		p.Temperature = defaultTemperature
	}
	if p.TopP <= 0 {
		p.TopP = defaultTopP
	}
	return p
}

func correlationID(req types.ChatRequest) string {
	if req.CorrelationID != "" {
		return req.CorrelationID
	}
	return uuid.NewString()
}

// Chat runs a blocking (non-streaming) generation and returns the full
// text with token usage. Per-request failures never change instance state.
func (m *Manager) Chat(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error) {
	inst, rctx, release, err := m.acquire(ctx)
	if err != nil {
		return types.ChatResponse{}, err
	}
	defer release()

	gctx := rctx
	if m.genTimeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(rctx, m.genTimeout)
		defer cancel()
	}

	var b strings.Builder
	res, err := inst.model.Generate(gctx, engine.BuildPrompt(req.Messages), genParams(req), func(tok string) error {
		b.WriteString(tok)
		tokensTotal.Inc()
		return nil
	})
	if err != nil {
		if gctx.Err() != nil {
			return types.ChatResponse{}, gctx.Err()
		}
		return types.ChatResponse{}, generationError{cause: err}
	}
	content := res.Content
	if content == "" {
		content = b.String()
	}
	return types.ChatResponse{
		ID:           correlationID(req),
		Model:        inst.Desc.Alias,
		Content:      strings.TrimSpace(content),
		FinishReason: res.FinishReason,
		Usage:        res.Usage,
	}, nil
}

// ChatStream admits the request, starts generation in the background and
// returns the session handle immediately. The in-flight slot is released
// exactly once when generation settles, on every outcome.
func (m *Manager) ChatStream(ctx context.Context, req types.ChatRequest) (*Session, error) {
	inst, rctx, release, err := m.acquire(ctx)
	if err != nil {
		return nil, err
	}

	gctx := rctx
	gcancel := context.CancelFunc(func() {})
	if m.genTimeout > 0 {
		gctx, gcancel = context.WithTimeout(rctx, m.genTimeout)
	}
	// The session's cancel token layers on the admission context so both
	// client cancellation and forced drain stop the same generation.
	sctx, scancel := context.WithCancel(gctx)
	sess := newSession(correlationID(req), m.streamBuffer, scancel)

	go func() {
		defer release()
		defer gcancel()
		defer scancel()
		res, err := inst.model.Generate(sctx, engine.BuildPrompt(req.Messages), genParams(req), func(tok string) error {
			tokensTotal.Inc()
			return sess.push(tok)
		})
		if err != nil {
			switch {
			case errors.Is(gctx.Err(), context.DeadlineExceeded):
				sess.fail(KindTimeout)
			case sctx.Err() != nil:
				sess.fail(KindCancelled)
			default:
				sess.fail(KindGeneration)
			}
			return
		}
		sess.finish(res.FinishReason)
	}()
	return sess, nil
}
