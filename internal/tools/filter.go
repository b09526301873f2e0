package tools

import (
	"os"
	"strings"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/config"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/logger"
)

// Filter decides which tools get registered. A tool is disabled by a
// per-tool environment variable, the global disabled list, or any
// server's disabledTools entry in the configuration.
type Filter struct {
	cfg *config.Config
}

// NewFilter builds a filter over the loaded configuration.
func NewFilter(cfg *config.Config) *Filter {
	return &Filter{cfg: cfg}
}

// Enabled reports whether the named tool should be registered.
// Environment variables take priority over configuration.
func (f *Filter) Enabled(toolName string) bool {
	if isTruthy(os.Getenv("SHS_DISABLE_" + strings.ToUpper(toolName))) {
		return false
	}

	if globalDisabled := os.Getenv("SHS_GLOBAL_DISABLED_TOOLS"); globalDisabled != "" {
		for _, name := range strings.Split(globalDisabled, ",") {
			if strings.TrimSpace(name) == toolName {
				return false
			}
		}
	}

	if f.cfg != nil {
		for _, serverCfg := range f.cfg.Servers {
			for _, name := range serverCfg.DisabledTools {
				if name == toolName {
					return false
				}
			}
		}
	}

	return true
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// logSkipped records a filtered-out tool at debug level.
func logSkipped(toolName string) {
	logger.WithField("tool", toolName).Debug("Tool disabled by configuration, skipping registration")
}
