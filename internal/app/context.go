// Package app owns the process-wide application context: the active
// mode, the statically configured clients, the resolution caches and
// the handle to the EMR backend. Everything here is built once at
// startup and passed down by reference; there is no ambient mutable
// state.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/cache"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/config"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/emr"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/logger"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/spark"
)

// Mode is the resolution mode fixed at startup.
type Mode string

const (
	// ModeStatic serves the named map of preconfigured servers.
	ModeStatic Mode = "static"
	// ModeDynamic resolves EMR clusters on demand from identifiers.
	ModeDynamic Mode = "dynamic"
)

// ClientFactory constructs a ready client for a resolved cluster ARN.
type ClientFactory func(ctx context.Context, clusterArn string) (*spark.Client, error)

// Context is the process-wide lifespan state shared by all sessions.
type Context struct {
	Mode          Mode
	Config        *config.Config
	Clients       map[string]*spark.Client
	DefaultClient *spark.Client

	// Resolver is only set in dynamic mode.
	Resolver *emr.ClusterResolver

	// Factory builds a client for an ARN. Injected so tests can count
	// constructions without touching AWS.
	Factory ClientFactory

	// ClientCache maps canonical cluster ARN to client handle. Process
	// lifetime, shared by all sessions; at most one client is ever
	// constructed per ARN.
	ClientCache *cache.Cache[string, *spark.Client]

	// ArnCache maps (session id, cluster identifier) to resolved ARN.
	// Entries never cross session boundaries and are wiped when the
	// owning session terminates.
	ArnCache *cache.Cache[string, string]
}

// New assembles the application context for the configured mode. In
// static mode every configured server gets its client constructed up
// front; EMR-backed servers go through session acquisition here, so a
// broken backend fails the startup rather than the first tool call.
func New(ctx context.Context, cfg *config.Config) (*Context, error) {
	appCtx := &Context{
		Config:      cfg,
		Clients:     make(map[string]*spark.Client),
		ClientCache: cache.New[string, *spark.Client](),
		ArnCache:    cache.New[string, string](),
	}

	if cfg.DynamicEmrClustersMode {
		appCtx.Mode = ModeDynamic

		awsCfg, err := loadAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		appCtx.Resolver = emr.NewClusterResolver(awsCfg)
		appCtx.Factory = emrClientFactory(awsCfg)

		logger.Info("Application context initialized in dynamic EMR clusters mode")
		return appCtx, nil
	}

	appCtx.Mode = ModeStatic

	var awsCfg *aws.Config
	for name, serverCfg := range cfg.Servers {
		needsAWS := serverCfg.EmrClusterArn != "" || serverCfg.EmrServerlessAppID != ""
		if needsAWS && awsCfg == nil {
			loaded, err := loadAWSConfig(ctx, cfg.AWSRegion)
			if err != nil {
				return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
			}
			awsCfg = &loaded
		}

		client, err := buildStaticClient(ctx, name, serverCfg, awsCfg)
		if err != nil {
			return nil, err
		}
		appCtx.Clients[name] = client
		if serverCfg.Default {
			appCtx.DefaultClient = client
		}

		logger.WithFields(map[string]interface{}{
			"server":   name,
			"base_url": client.BaseURL(),
			"default":  serverCfg.Default,
		}).Info("Spark client initialized")
	}

	return appCtx, nil
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// buildStaticClient constructs the right client flavor for one
// configured server.
func buildStaticClient(ctx context.Context, name string, serverCfg config.ServerConfig, awsCfg *aws.Config) (*spark.Client, error) {
	switch {
	case serverCfg.EmrClusterArn != "":
		uiClient := emr.NewPersistentUIClient(regionalConfig(*awsCfg, serverCfg.Region), serverCfg.EmrClusterArn, serverCfg.Timeout())
		baseURL, session, err := uiClient.Initialize(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize EMR server %q: %w", name, err)
		}

		return spark.NewClientWithExecutor(baseURL, spark.NewRestyExecutorFromClient(session)), nil

	case serverCfg.EmrServerlessAppID != "":
		hybrid := emr.NewServerlessHybridClient(regionalConfig(*awsCfg, serverCfg.Region), serverCfg.EmrServerlessAppID, serverCfg.Timeout())
		return spark.NewClientWithExecutor(hybrid.BaseURL(), hybrid), nil

	default:
		return spark.NewClient(serverCfg), nil
	}
}

// regionalConfig overlays a per-server region on the shared AWS config.
func regionalConfig(cfg aws.Config, region string) aws.Config {
	if region != "" {
		cfg.Region = region
	}
	return cfg
}

// emrClientFactory returns the dynamic-mode factory: full persistent UI
// session acquisition for a cluster ARN.
func emrClientFactory(awsCfg aws.Config) ClientFactory {
	return func(ctx context.Context, clusterArn string) (*spark.Client, error) {
		uiClient := emr.NewPersistentUIClient(awsCfg, clusterArn, 0)
		baseURL, session, err := uiClient.Initialize(ctx)
		if err != nil {
			return nil, err
		}
		return spark.NewClientWithExecutor(baseURL, spark.NewRestyExecutorFromClient(session)), nil
	}
}
