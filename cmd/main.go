package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/app"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/cache"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/config"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/logger"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/ops"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/tools"
)

const serverVersion = "1.0.0"

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	ctx := context.Background()

	// Load application configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.LogLevel)
	logger.Info("Configuration loaded successfully")

	// Build the process-wide application context: active mode, static
	// clients, resolution caches, EMR backend handle
	appCtx, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize application context: %v", err)
	}
	logger.WithField("mode", string(appCtx.Mode)).Info("Application context initialized")

	// Session lifecycle hooks: the identifier cache is partitioned by
	// session and wiped when the owning session terminates
	hooks := &mcpserver.Hooks{}
	hooks.AddOnUnregisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		cache.ClearSession(appCtx.ArnCache, session.SessionID())
		logger.WithField("session_id", session.SessionID()).Debug("Session cache cleared")
	})

	s := mcpserver.NewMCPServer(
		"Spark Events",
		serverVersion,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithHooks(hooks),
	)

	// Register Spark analysis tools
	registry := tools.NewRegistry(appCtx, tools.NewFilter(cfg))
	registry.RegisterAll(s)
	logger.Info("Tools registered")

	// Ops endpoints (health, status) on their own port
	if cfg.Ops.Enabled {
		opsServer := ops.NewServer(appCtx, cfg.Ops)
		go func() {
			logger.Infof("Starting ops server on :%s", cfg.Ops.Port)
			if err := opsServer.Run(); err != nil {
				logger.Errorf("Ops server stopped: %v", err)
			}
		}()
	}

	if err := serve(s, cfg); err != nil {
		logger.Fatalf("MCP server stopped: %v", err)
	}
}

// serve starts the selected MCP transport and blocks.
func serve(s *mcpserver.MCPServer, cfg *config.Config) error {
	addr := cfg.Mcp.Address + ":" + cfg.Mcp.Port

	switch strings.ToLower(strings.TrimSpace(cfg.Mcp.Transport)) {
	case "stdio", "":
		logger.Info("Starting MCP stdio server")
		return mcpserver.ServeStdio(s)
	case "streamable-http", "streamable":
		logger.Infof("Starting MCP streamable HTTP server on %s", addr)
		return mcpserver.NewStreamableHTTPServer(s).Start(addr)
	case "sse":
		logger.Infof("Starting MCP SSE server on %s", addr)
		return mcpserver.NewSSEServer(s).Start(addr)
	default:
		return fmt.Errorf("invalid transport %q (valid: stdio, streamable-http, sse)", cfg.Mcp.Transport)
	}
}
