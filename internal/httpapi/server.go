package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatd/internal/manager"
	"chatd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Models() []types.ModelDescriptor
	Status() types.StatusResponse
	Chat(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error)
	ChatStream(ctx context.Context, req types.ChatRequest) (*manager.Session, error)
	Swap(ctx context.Context, alias string, drainTimeout time.Duration) error
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		opts := cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}
		if len(opts.AllowedOrigins) == 0 {
			opts.AllowedOrigins = []string{"*"}
		}
		if len(opts.AllowedMethods) == 0 {
			opts.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
		}
		if len(opts.AllowedHeaders) == 0 {
			opts.AllowedHeaders = []string{"Accept", "Content-Type", "X-Log-Level"}
		}
		r.Use(cors.Handler(opts))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/models", handleModels(svc))
	r.Get("/status", handleStatus(svc))
	r.Post("/chat", handleChat(svc))
	r.Post("/config/model", handleConfigModel(svc))
	r.Get("/ws", handleWS(svc))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handleModels serves the catalog listing.
//
// @Summary      List catalog models
// @Produce      json
// @Success      200 {object} types.ModelsResponse
// @Router       /models [get]
func handleModels(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ModelsResponse{Models: svc.Models()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	}
}

// handleStatus serves the lifecycle and admission snapshot.
//
// @Summary      Service status
// @Produce      json
// @Success      200 {object} types.StatusResponse
// @Router       /status [get]
func handleStatus(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	}
}

// decodeJSONBody enforces content type and the body size ceiling, then
// decodes into dst. It writes the error response itself on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// handleChat runs a blocking generation against the resident model.
//
// @Summary      Chat completion (non-streaming)
// @Accept       json
// @Produce      json
// @Param        request body types.ChatRequest true "conversation"
// @Success      200 {object} types.ChatResponse
// @Failure      400 {object} types.ErrorResponse
// @Failure      429 {object} types.ErrorResponse
// @Failure      503 {object} types.ErrorResponse
// @Router       /chat [post]
func handleChat(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ChatRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		if len(req.Messages) == 0 {
			writeJSONError(w, http.StatusBadRequest, "messages is required")
			return
		}
		if req.Stream {
			writeJSONError(w, http.StatusBadRequest, "streaming requests must use the /ws endpoint")
			return
		}

		lvl := requestLogLevel(r)
		rid := middleware.GetReqID(r.Context())
		start := time.Now()
		if lvl >= LevelInfo {
			logEvent(r, rid, "chat start", 0, nil)
		}
		// Join server base context with request context so shutdown cancels
		// work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.Chat(ctx, req)
		if err != nil {
			// Client disconnects and shutdowns produce no response.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := writeMappedError(w, err)
			if lvl >= LevelInfo {
				logEvent(r, rid, "chat end", status, map[string]string{"dur": time.Since(start).String(), "error": err.Error()})
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
		if lvl >= LevelInfo {
			logEvent(r, rid, "chat end", http.StatusOK, map[string]string{"dur": time.Since(start).String()})
		}
	}
}

// handleConfigModel swaps the resident model.
//
// @Summary      Select the active model
// @Accept       json
// @Produce      json
// @Param        request body types.ModelConfigRequest true "target model"
// @Success      200 {object} types.ModelConfigResponse
// @Failure      404 {object} types.ErrorResponse
// @Failure      409 {object} types.ErrorResponse
// @Failure      507 {object} types.ErrorResponse
// @Router       /config/model [post]
func handleConfigModel(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ModelConfigRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Model) == "" {
			writeJSONError(w, http.StatusBadRequest, "model is required")
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.Swap(ctx, req.Model, swapDrainTimeout); err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeMappedError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(types.ModelConfigResponse{
			Status: "success",
			Detail: "model " + req.Model + " is active",
			Model:  req.Model,
		})
	}
}
