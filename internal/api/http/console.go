package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/flashfile/internal/script"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Console upgrades to a websocket and runs each script frame against the
// shared runtime, so state such as the open file carries across frames.
func (h *Handlers) Console(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("console upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	h.send(conn, ConsoleReply{Type: "system", Message: "connected to flashfile " + Version})

	for {
		var msg ConsoleMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("console read failed", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "script":
			h.handleScript(ctx, conn, msg)
		case "ping":
			h.send(conn, ConsoleReply{Type: "pong"})
		default:
			h.send(conn, ConsoleReply{Type: "error", Error: "unknown message type"})
		}
	}
}

func (h *Handlers) handleScript(ctx context.Context, conn *websocket.Conn, msg ConsoleMessage) {
	if msg.TimeoutMs < 0 {
		h.send(conn, ConsoleReply{Type: "error", Error: "timeout_ms must not be negative"})
		return
	}

	res, _, err := h.execute(ctx, ScriptRequest{Script: msg.Script, TimeoutMs: msg.TimeoutMs})
	var console []script.LogEntry
	if res != nil {
		console = res.Console
	}
	if err != nil {
		h.send(conn, ConsoleReply{
			Type:    "error",
			Error:   err.Error(),
			Advice:  advice(err),
			Console: console,
		})
		return
	}

	h.send(conn, ConsoleResult{
		Type: "result",
		ScriptResponse: ScriptResponse{
			ID:         res.ID,
			Value:      res.Value,
			Console:    console,
			DurationMs: float64(res.Duration) / float64(time.Millisecond),
		},
	})
}

func (h *Handlers) send(conn *websocket.Conn, reply interface{}) {
	if err := conn.WriteJSON(reply); err != nil {
		h.logger.Debug("console write failed", zap.Error(err))
	}
}
