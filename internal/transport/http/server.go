package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/auth"
	"github.com/roomcast/roomcast-server/internal/config"
	"github.com/roomcast/roomcast-server/internal/core"
	"github.com/roomcast/roomcast-server/internal/store"
)

// NewServer builds the HTTP server: REST endpoints for auth, rooms and
// message history, plus the WebSocket chat entrypoint.
func NewServer(registry *core.Registry, broadcaster *core.Broadcaster, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	apiHandlers := NewAPIHandlers(authService, logger)
	roomHandlers := NewRoomHandlers(st, logger)
	messageHandlers := NewMessageHandlers(st, logger)
	wsHandler := NewWSHandler(registry, broadcaster, authService, st, cfg, logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)
	api.POST("/guest", apiHandlers.GuestLogin)

	authorized := api.Group("", AuthMiddleware(authService, logger))
	authorized.GET("/rooms", roomHandlers.ListRooms)
	authorized.POST("/rooms", roomHandlers.CreateRoom)
	authorized.GET("/rooms/:slug/messages", messageHandlers.ListMessages)
	authorized.POST("/rooms/:slug/messages", messageHandlers.CreateMessage)

	router.GET("/ws/:room", wsHandler.Handle)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	fmt.Fprint(c.Writer, "ok")
}
