package http

import (
	"context"
	"errors"
	"io"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/auth"
	"github.com/roomcast/roomcast-server/internal/config"
	"github.com/roomcast/roomcast-server/internal/core"
	"github.com/roomcast/roomcast-server/internal/store"
)

// WSHandler upgrades HTTP connections and bridges them to core.Session.
type WSHandler struct {
	registry    *core.Registry
	broadcaster *core.Broadcaster
	auth        *auth.Service
	store       store.Store
	cfg         *config.Config
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(registry *core.Registry, broadcaster *core.Broadcaster, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		registry:    registry,
		broadcaster: broadcaster,
		auth:        authService,
		store:       st,
		cfg:         cfg,
		log:         logger,
	}
}

// Handle serves one chat connection.
// GET /ws/:room?token=<jwt>
func (h *WSHandler) Handle(c *gin.Context) {
	slug := c.Param("room")

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	conn.SetReadLimit(h.cfg.MaxMessageBytes)

	// Authentication is optional at connect time; unauthenticated sessions
	// may listen but their messages are dropped.
	var user core.Author
	authenticated := false
	if token := c.Query("token"); token != "" {
		if claims, validateErr := h.auth.ValidateToken(token); validateErr == nil {
			user = core.Author{UserID: claims.UserID, Username: claims.Username}
			authenticated = true
		} else {
			h.log.Debug().Err(validateErr).Msg("ws token rejected")
		}
	}

	sess := core.NewSession(uuid.NewString(), user, authenticated, core.SessionDeps{
		Registry:     h.registry,
		Broadcaster:  h.broadcaster,
		Store:        h.store,
		HistoryLimit: h.cfg.HistoryLimit,
		Log:          h.log,
	})
	defer sess.OnClose()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if err := sess.OnOpen(ctx, slug); err != nil {
		// Unknown room: close without error detail so room names cannot
		// be probed through the socket.
		h.log.Debug().Err(err).Str("slug", slug).Msg("ws join rejected")
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	limiter := newRateLimiter(h.cfg.MessageRateLimit)
	stop := make(chan struct{})
	defer close(stop)
	limiter.startReset(stop)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, sess, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, sess)
	}()

	err = <-errCh
	sess.OnClose()
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("session_id", sess.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session, limiter *rateLimiter) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if !limiter.allow() {
			h.log.Debug().Str("session_id", sess.ID).Msg("rate limit exceeded, frame dropped")
			continue
		}
		sess.OnInbound(ctx, data)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sess *core.Session) error {
	for {
		select {
		case event := <-sess.Events:
			for _, frame := range framesFromEvent(event) {
				if err := wsjson.Write(ctx, conn, frame); err != nil {
					h.log.Error().Err(err).Str("session_id", sess.ID).Msg("write ws frame")
					return err
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
