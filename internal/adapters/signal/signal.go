// Package signal is the Connection Lifecycle Manager: it authenticates and
// upgrades WebSocket requests, then feeds each connection's frames to the
// relay and drains its outbox.
package signal

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Sketch/internal/app/orch"
	"github.com/dkeye/Sketch/internal/auth"
	"github.com/dkeye/Sketch/internal/config"
	"github.com/dkeye/Sketch/internal/core"
)

// WsSignalConn is the connection handle sessions are keyed by.
type WsSignalConn struct {
	conn *websocket.Conn
	out  *outbox
}

func newWsSignalConn(conn *websocket.Conn, limit int) *WsSignalConn {
	return &WsSignalConn{conn: conn, out: newOutbox(limit)}
}

// TrySend queues f for the writer goroutine and never blocks.
func (c *WsSignalConn) TrySend(f core.Frame) error {
	return c.out.push(f)
}

func (c *WsSignalConn) Close() {
	if c.out.close() {
		_ = c.conn.Close()
	}
}

type SignalWSController struct {
	Orch *orch.Orchestrator
	Auth *auth.Authenticator
	Cfg  *config.Config

	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, a *auth.Authenticator, cfg *config.Config) *SignalWSController {
	policy := newOriginPolicy(cfg.AllowedOrigins)
	return &SignalWSController{
		Orch: o,
		Auth: a,
		Cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     policy.check,
		},
	}
}

// HandleSignal authenticates the ?token= query value before any frame is
// read. A refused connection is upgraded and closed with 1008.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	user, authErr := ctl.Auth.Authenticate(c.Query("token"))

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	if authErr != nil {
		log.Warn().Err(authErr).Str("module", "signal").Str("remote", c.ClientIP()).Msg("connection refused")
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(ctl.Cfg.WriteWait))
		_ = ws.Close()
		return
	}

	conn := newWsSignalConn(ws, ctl.Cfg.OutboxLimit)
	sess := core.NewSession(core.SessionID(uuid.NewString()), user, conn)
	if err := ctl.Orch.Connect(sess); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("session not registered")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Str("user", string(user.ID)).Msg("new WS connection")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(sess, conn)
}
