package httpapi

import (
	"log"
	"net/http"
	"os"

	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("CHATD_HTTP_LOG_LEVEL"))

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logEvent emits one structured (or fallback) log line for a handler event.
func logEvent(r *http.Request, requestID, msg string, status int, fields map[string]string) {
	if zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path)
		if status > 0 {
			z = z.Int("status", status)
		}
		if requestID != "" {
			z = z.Str("request_id", requestID)
		}
		for k, v := range fields {
			z = z.Str(k, v)
		}
		z.Msg(msg)
		return
	}
	log.Printf("%s path=%s status=%d", msg, r.URL.Path, status)
}
