package ws

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"ordercast/pkg/logging"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512 * 1024
)

type WebSocket struct {
	*websocket.Conn
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWebSocket(parent context.Context, log *slog.Logger, conn *websocket.Conn) *WebSocket {
	ctx, cancel := context.WithCancel(parent)
	return &WebSocket{Conn: conn, log: log, ctx: ctx, cancel: cancel}
}

// WriteMessage must only be called from one goroutine at a time.
func (w *WebSocket) WriteMessage(data []byte) error {
	_ = w.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.Conn.WriteMessage(websocket.TextMessage, data)
}

// ReadLoop hands every non-empty text frame to onMsg, in arrival order,
// until the peer goes away.
func (w *WebSocket) ReadLoop(onMsg func([]byte)) {
	defer w.Close()

	// Protects against memory exhaustion
	w.Conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := w.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				w.log.Warn("ws - read loop - unexpected close", logging.Err(err))
			}
			return
		}
		if w.ctx.Err() != nil {
			return
		}
		if len(data) > 0 {
			onMsg(data)
		}
	}
}

func (w *WebSocket) Close() {
	w.cancel()
	_ = w.Conn.Close()
}
