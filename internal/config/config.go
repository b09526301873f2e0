package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// AuthConfig holds optional credentials for a Spark History Server.
type AuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Token    string `yaml:"token"`
}

// ServerConfig is the immutable descriptor of one Spark backend. It is
// loaded once at startup and only ever mutated through Clone, which is
// used to inject a resolved base URL for EMR-backed servers.
type ServerConfig struct {
	URL                string     `yaml:"url"`
	Auth               AuthConfig `yaml:"auth"`
	Default            bool       `yaml:"default"`
	VerifySSL          *bool      `yaml:"verifySsl"`
	TimeoutSeconds     int        `yaml:"timeoutSeconds"`
	Region             string     `yaml:"region"`
	EmrClusterArn      string     `yaml:"emrClusterArn"`
	EmrServerlessAppID string     `yaml:"emrServerlessApplicationId"`
	DisabledTools      []string   `yaml:"disabledTools"`
}

// Clone returns a copy of the server config. Slices are copied so the
// clone can be patched without touching the original.
func (s ServerConfig) Clone() ServerConfig {
	out := s
	if s.VerifySSL != nil {
		v := *s.VerifySSL
		out.VerifySSL = &v
	}
	out.DisabledTools = append([]string(nil), s.DisabledTools...)
	return out
}

// ShouldVerifySSL reports whether TLS verification is enabled (default true).
func (s ServerConfig) ShouldVerifySSL() bool {
	return s.VerifySSL == nil || *s.VerifySSL
}

// Timeout returns the configured request timeout in seconds (default 30).
func (s ServerConfig) Timeout() int {
	if s.TimeoutSeconds <= 0 {
		return 30
	}
	return s.TimeoutSeconds
}

// McpConfig configures the MCP transport.
type McpConfig struct {
	Transport string `yaml:"transport"`
	Address   string `yaml:"address"`
	Port      string `yaml:"port"`
	Debug     bool   `yaml:"debug"`
}

// OpsConfig configures the operational HTTP endpoints (health, status).
type OpsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Port       string `yaml:"port"`
	AuthSecret string `yaml:"authSecret"`
}

// Config holds all application configuration.
//
// The server operates in exactly one of two modes, fixed at startup:
// static mode (a named map of preconfigured servers, one optionally
// marked default) or dynamic EMR mode (no preconfigured servers;
// clients are resolved on demand from cluster identifiers).
type Config struct {
	LogLevel               string                  `yaml:"logLevel"`
	AWSRegion              string                  `yaml:"awsRegion"`
	DynamicEmrClustersMode bool                    `yaml:"dynamicEmrClustersMode"`
	Servers                map[string]ServerConfig `yaml:"servers"`
	Mcp                    McpConfig               `yaml:"mcp"`
	Ops                    OpsConfig               `yaml:"ops"`
}

// Load builds the configuration from a YAML file (if present), the .env
// file and OS environment. OS environment variables take precedence over
// .env values, which take precedence over the YAML file.
func Load(path string) (*Config, error) {
	// Load .env from the working directory (silently ignore if not found)
	_ = godotenv.Load(filepath.Join(".", ".env"))

	cfg := &Config{
		LogLevel: "INFO",
		Mcp: McpConfig{
			Transport: "stdio",
			Address:   "localhost",
			Port:      "18888",
		},
		Ops: OpsConfig{
			Port: "18889",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	// Default to a local history server when neither mode is configured
	if len(cfg.Servers) == 0 && !cfg.DynamicEmrClustersMode {
		cfg.Servers = map[string]ServerConfig{
			"local": {URL: "http://localhost:18080", Default: true},
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies SHS_* environment variables on top of the
// file-based configuration.
func (c *Config) applyEnvOverrides() {
	c.LogLevel = getEnvOrDefault("SHS_LOG_LEVEL", c.LogLevel)
	c.AWSRegion = getEnvOrDefault("AWS_REGION", c.AWSRegion)
	c.Mcp.Transport = getEnvOrDefault("SHS_MCP_TRANSPORT", c.Mcp.Transport)
	c.Mcp.Address = getEnvOrDefault("SHS_MCP_ADDRESS", c.Mcp.Address)
	c.Mcp.Port = getEnvOrDefault("SHS_MCP_PORT", c.Mcp.Port)
	c.Ops.Port = getEnvOrDefault("SHS_OPS_PORT", c.Ops.Port)
	c.Ops.AuthSecret = getEnvOrDefault("SHS_OPS_AUTH_SECRET", c.Ops.AuthSecret)

	if v := os.Getenv("SHS_MCP_DEBUG"); v != "" {
		c.Mcp.Debug = isTruthy(v)
	}
	if v := os.Getenv("SHS_OPS_ENABLED"); v != "" {
		c.Ops.Enabled = isTruthy(v)
	}
	if v := os.Getenv("SHS_DYNAMIC_EMR_CLUSTERS_MODE"); v != "" {
		c.DynamicEmrClustersMode = isTruthy(v)
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	// Static and dynamic modes are mutually exclusive
	if c.DynamicEmrClustersMode && len(c.Servers) > 0 {
		return fmt.Errorf("dynamicEmrClustersMode cannot be enabled when servers are configured: these modes are mutually exclusive")
	}

	defaults := 0
	for name, server := range c.Servers {
		if server.Default {
			defaults++
		}
		if server.EmrClusterArn != "" && server.EmrServerlessAppID != "" {
			return fmt.Errorf("server %q sets both emrClusterArn and emrServerlessApplicationId", name)
		}
		if server.URL == "" && server.EmrClusterArn == "" && server.EmrServerlessAppID == "" {
			return fmt.Errorf("server %q has no url, emrClusterArn or emrServerlessApplicationId", name)
		}
	}
	if defaults > 1 {
		return fmt.Errorf("at most one server may be marked default, found %d", defaults)
	}

	return nil
}

// isTruthy interprets common boolean environment variable spellings.
func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
