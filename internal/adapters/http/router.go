package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Sketch/internal/adapters/signal"
	"github.com/dkeye/Sketch/internal/app/orch"
	"github.com/dkeye/Sketch/internal/auth"
	"github.com/dkeye/Sketch/internal/config"
	"github.com/dkeye/Sketch/internal/history"
)

// SetupRouter mounts the relay endpoint and the read-only API. store may be
// nil when history is disabled.
func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, authn *auth.Authenticator, store history.Store) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	ctrl := signal.NewSignalWSController(o, authn, cfg)
	r.GET("/ws", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})
	r.GET("/healthz", healthz)

	h := &handlers{orch: o, store: store, fetchLimit: cfg.History.FetchLimit}
	api := r.Group("/api", RequireToken(authn))
	api.GET("/rooms", h.listRooms)
	api.GET("/rooms/:roomId/members", h.listMembers)
	api.GET("/rooms/:roomId/shapes", h.listShapes)

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Bool("history", store != nil).Msg("router setup")
	return r
}
