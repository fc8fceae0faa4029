package types

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	// Role of the author: system, user or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: Write a haiku about the ocean.
	Content string `json:"content" example:"Write a haiku about the ocean."`
}

// ChatRequest is the payload accepted by POST /chat and by the streaming
// transport. On /chat the stream flag must be false.
type ChatRequest struct {
	// Ordered conversation so far. Must be non-empty.
	Messages []ChatMessage `json:"messages"`
	// If true, tokens are delivered as ordered frames over the streaming transport.
	// example: true
	Stream bool `json:"stream,omitempty" example:"true"`
	// Maximum number of new tokens to generate.
	// example: 2048
	MaxTokens int `json:"max_tokens,omitempty" example:"2048"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Caller-supplied correlation id; generated by the server when absent.
	// example: 6d1f3b2a-9c0e-4b5d-8f7a-2e1c0d9b8a76
	CorrelationID string `json:"correlation_id,omitempty" example:"6d1f3b2a-9c0e-4b5d-8f7a-2e1c0d9b8a76"`
}

// Usage contains token accounting for one completed request.
type Usage struct {
	// example: 24
	PromptTokens int `json:"prompt_tokens" example:"24"`
	// example: 96
	CompletionTokens int `json:"completion_tokens" example:"96"`
	// example: 120
	TotalTokens int `json:"total_tokens" example:"120"`
}

// ChatResponse is the non-streaming answer returned by POST /chat.
type ChatResponse struct {
	// Correlation id of the request (server-generated when absent).
	ID string `json:"id"`
	// Alias of the model that served the request.
	// example: qwen2.5-3b
	Model string `json:"model" example:"qwen2.5-3b"`
	// Full generated text.
	Content string `json:"content"`
	// Why generation stopped (stop, length, ...).
	// example: stop
	FinishReason string `json:"finish_reason" example:"stop"`
	// Token accounting.
	Usage Usage `json:"usage"`
}

// ModelConfigRequest selects a new active model via POST /config/model.
type ModelConfigRequest struct {
	// Catalog alias of the model to swap to.
	// example: qwen2.5-7b
	Model string `json:"model" example:"qwen2.5-7b"`
}

// ModelConfigResponse reports the outcome of a swap request.
type ModelConfigResponse struct {
	// "success" or "error".
	// example: success
	Status string `json:"status" example:"success"`
	// Human-readable outcome detail.
	Detail string `json:"detail,omitempty"`
	// Alias of the active model after the operation, if any.
	Model string `json:"model,omitempty"`
}

// ModelsResponse wraps the catalog listing returned by GET /models.
type ModelsResponse struct {
	Models []ModelDescriptor `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found: missing
	Error string `json:"error" example:"model not found: missing"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// StatusResponse is returned by GET /status. It is a pure read of the
// lifecycle and admission state; producing it never blocks on model work.
type StatusResponse struct {
	// Lifecycle state of the resident instance (unloaded when none).
	// example: ready
	State string `json:"state" example:"ready"`
	// Alias of the resident model, empty when none.
	// example: qwen2.5-3b
	ActiveModel string `json:"active_model,omitempty" example:"qwen2.5-3b"`
	// Requests currently executing against the instance.
	// example: 1
	InFlight int `json:"in_flight" example:"1"`
	// Requests waiting in the admission queue.
	// example: 0
	QueueDepth int `json:"queue_depth" example:"0"`
	// Memory ceiling in MB.
	// example: 12288
	BudgetMB int `json:"budget_mb" example:"12288"`
	// Memory currently reserved by the resident instance in MB.
	// example: 6500
	ReservedMB int `json:"reserved_mb" example:"6500"`
	// Last load/swap error observed, if any.
	LastError string `json:"last_error,omitempty"`
	// Uptime of the process in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total successful model loads since start.
	// example: 3
	LoadsTotal uint64 `json:"loads_total" example:"3"`
	// Total completed swaps since start.
	// example: 2
	SwapsTotal uint64 `json:"swaps_total" example:"2"`
	// Host memory figures in MB (0 when unavailable).
	HostMemTotalMB     uint64 `json:"host_mem_total_mb,omitempty"`
	HostMemAvailableMB uint64 `json:"host_mem_available_mb,omitempty"`
}
