// Package server wires the clipboard service, the monitor and the WebSocket
// hub into a localhost HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/joshuasalcedo-dev/fx/internal/notify"
)

type Server struct {
	engine *gin.Engine
	http   *http.Server
	log    zerolog.Logger
}

// New builds the router. hub may be nil when no WebSocket endpoint is wanted
// (tests exercise the REST surface alone).
func New(addr string, handler *Handler, hub *notify.Hub, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggingMiddleware(log))
	engine.Use(CORSMiddleware())

	Route(engine, handler, hub)

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:    addr,
			Handler: engine,
		},
		log: log.With().Str("component", "server").Logger(),
	}
}

// Route registers every endpoint on the given engine.
func Route(engine *gin.Engine, handler *Handler, hub *notify.Hub) {
	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/local/clipboards")
	{
		api.GET("", handler.ListClipboards)
		api.POST("", handler.SaveClipboard)
		api.GET("/pins", handler.ListPinned)
		api.PUT("/pin", handler.TogglePin)
		api.GET("/search", handler.Search)
		api.GET("/recent", handler.Recent)
		api.GET("/stats", handler.Stats)
		api.DELETE("/delete", handler.DeleteAll)
		api.DELETE("/delete/:id", handler.DeleteByID)
		api.GET("/export/:format", handler.Export)
		api.POST("/stop", handler.StopMonitor)
		api.POST("/start", handler.StartMonitor)
		api.GET("/monitor", handler.MonitorStatus)
		api.POST("/copy/:id", handler.CopyToClipboard)
	}

	if hub != nil {
		engine.GET("/ws", func(c *gin.Context) {
			hub.HandleWebSocket(c.Writer, c.Request)
		})
	}
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests with a short deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
