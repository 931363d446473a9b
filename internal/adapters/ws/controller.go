// Package ws binds authenticated identities to WebSocket connections and
// dispatches client events to the relay components.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bokoth/chatrelay/internal/app"
	"github.com/bokoth/chatrelay/internal/config"
	"github.com/bokoth/chatrelay/internal/core"
	"github.com/bokoth/chatrelay/internal/domain"
)

type Controller struct {
	Relay *app.Relay

	validate     *validator.Validate
	limiter      *SendRateLimiter
	readLimit    int64
	sendBuffer   int
	writeTimeout time.Duration
}

func NewController(relay *app.Relay, cfg *config.Config) *Controller {
	return &Controller{
		Relay:        relay,
		validate:     validator.New(),
		limiter:      NewSendRateLimiter(cfg.RateLimit, cfg.RateWindow),
		readLimit:    cfg.ReadLimit,
		sendBuffer:   cfg.SendBuffer,
		writeTimeout: cfg.WriteTimeout,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleChat upgrades the request and runs the connection's lifetime.
// The identity comes from the session middleware; an empty identity is
// still accepted so the client can be told it is unauthenticated, but it
// is never registered. Teardown always unregisters before readPump
// returns, so a closed connection is never resolvable.
func (ctl *Controller) HandleChat(ctx context.Context, c *gin.Context) {
	uid := domain.UserID(c.GetString("user_id"))

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}
	ws.SetReadLimit(ctl.readLimit)

	conn := newChatConn(core.ConnID(uuid.NewString()), ws, ctl.sendBuffer)
	log.Info().Str("module", "ws").Str("user", string(uid)).Str("conn", string(conn.ID())).Msg("new connection")

	if uid != "" {
		ctl.Relay.Connect(uid, conn)
	}

	connCtx, cancel := context.WithCancel(ctx)
	go ctl.writePump(connCtx, conn)
	go ctl.readPump(connCtx, cancel, uid, conn)
}

func (ctl *Controller) writePump(ctx context.Context, c *chatConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.writeTimeout)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, uid domain.UserID, c *chatConn) {
	defer func() {
		// Unregister before anything else: no window where a dead
		// connection still resolves.
		if uid != "" {
			ctl.Relay.Disconnect(uid, c.ID())
		}
		c.Close()
		cancel()
		log.Info().Str("module", "ws").Str("user", string(uid)).Str("conn", string(c.ID())).Msg("connection closed")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.dispatch(ctx, uid, c, data)
		}
	}
}
