package httpapi

import (
	"context"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"chatd/internal/manager"
	"chatd/pkg/types"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The service fronts a local model; cross-origin browser clients are
	// governed by the CORS settings, not the upgrade handshake.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS upgrades the connection and serves streaming chat requests.
// Each text message is one ChatRequest; the response is a run of token
// frames followed by exactly one done or error frame. Any client message
// received while a stream is active cancels that stream.
//
// @Summary      Streaming chat over websocket
// @Router       /ws [get]
func handleWS(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error.
			return
		}
		wsConnections.Inc()
		defer wsConnections.Dec()
		defer conn.Close()

		ctx, cancel := context.WithCancel(serverBaseCtx)
		defer cancel()
		serveConn(ctx, svc, conn)
	}
}

// serveConn runs the per-connection request loop. The reader goroutine owns
// all reads; it feeds payloads to the loop and unblocks it on disconnect.
func serveConn(ctx context.Context, svc Service, conn *websocket.Conn) {
	msgs := make(chan []byte)
	go func() {
		defer close(msgs)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case msgs <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgs:
			if !ok {
				return
			}
			var req types.ChatRequest
			if err := json.Unmarshal(data, &req); err != nil {
				if writeFrame(conn, errorFrame("bad_request", "invalid JSON payload")) != nil {
					return
				}
				continue
			}
			if len(req.Messages) == 0 {
				if writeFrame(conn, errorFrame("bad_request", "messages is required")) != nil {
					return
				}
				continue
			}
			sess, err := svc.ChatStream(ctx, req)
			if err != nil {
				if statusForError(err) == http.StatusTooManyRequests {
					IncrementBackpressure("ws")
				}
				if writeFrame(conn, errorFrame(kindForError(err), err.Error())) != nil {
					return
				}
				continue
			}
			if err := streamSession(ctx, conn, sess, msgs); err != nil {
				return
			}
		}
	}
}

// streamSession forwards session frames to the socket until the terminal
// frame. A client message or disconnect mid-stream cancels the session; the
// remaining frames (ending in the cancelled terminal) are still delivered
// when the socket is alive.
func streamSession(ctx context.Context, conn *websocket.Conn, sess *manager.Session, msgs <-chan []byte) error {
	var sockErr error
	in := msgs
	done := ctx.Done()
	for {
		select {
		case f, ok := <-sess.Events():
			if !ok {
				return sockErr
			}
			if sockErr != nil {
				continue
			}
			if err := writeFrame(conn, f); err != nil {
				sockErr = err
				sess.Cancel()
			}
		case _, ok := <-in:
			sess.Cancel()
			if !ok {
				sockErr = context.Canceled
				in = nil
			}
		case <-done:
			sess.Cancel()
			sockErr = ctx.Err()
			done = nil
		}
	}
}

func writeFrame(conn *websocket.Conn, f types.StreamFrame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}

func errorFrame(kind, detail string) types.StreamFrame {
	return types.StreamFrame{Type: types.FrameError, Kind: kind, Text: detail}
}

// kindForError condenses the manager error taxonomy into frame kinds.
func kindForError(err error) string {
	switch {
	case manager.IsModelNotFound(err):
		return "model_not_found"
	case manager.IsOverloaded(err):
		return "overloaded"
	case manager.IsUnavailable(err):
		return "unavailable"
	default:
		return "internal"
	}
}
