// Package ops serves the operational HTTP endpoints (health and
// resolution status) next to the MCP transport.
package ops

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/app"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/config"
)

// Server hosts the ops endpoints.
type Server struct {
	engine *gin.Engine
	cfg    config.OpsConfig
}

// NewServer configures the ops router over the application context.
func NewServer(appCtx *app.Context, cfg config.OpsConfig) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(CORS())

	v1 := engine.Group("/api/v1")
	if cfg.AuthSecret != "" {
		v1.Use(Authentication(cfg.AuthSecret))
	}

	v1.GET("/health", healthHandler())
	v1.GET("/status", statusHandler(appCtx))

	return &Server{engine: engine, cfg: cfg}
}

// Run starts the ops server; it blocks until the listener fails.
func (s *Server) Run() error {
	return s.engine.Run(":" + s.cfg.Port)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "spark-history-mcp",
		})
	}
}

func statusHandler(appCtx *app.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		servers := make([]string, 0, len(appCtx.Clients))
		for name := range appCtx.Clients {
			servers = append(servers, name)
		}

		c.JSON(http.StatusOK, gin.H{
			"mode":              string(appCtx.Mode),
			"servers":           servers,
			"cachedClients":     appCtx.ClientCache.Len(),
			"cachedIdentifiers": appCtx.ArnCache.Len(),
		})
	}
}
