// Package resolution implements GetClient, the state machine that turns
// a polymorphic server spec into a ready-to-use Spark REST client:
//
//	Start -> ModeCheck -> {StaticLookup | DynamicLookup}
//	      -> {CacheHit, Resolve} -> Ready | Error
//
// Every dynamic path funnels through the process-wide ARN-to-client
// cache, so two different identifiers resolving to the same ARN share
// one client handle.
package resolution

import (
	"context"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/app"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/cache"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/logger"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/models"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/spark"
)

// GetClient resolves spec to a client handle, or a typed error. The
// sessionID partitions the identifier-to-ARN cache; resolution state
// never leaks between sessions.
//
// Resolution errors are not retried here: retry, if any, belongs to the
// caller.
func GetClient(ctx context.Context, appCtx *app.Context, sessionID string, spec models.ServerSpec) (*spark.Client, error) {
	switch appCtx.Mode {
	case app.ModeDynamic:
		if spec.Static != nil {
			return nil, &ModeMismatchError{ActiveMode: string(appCtx.Mode), SpecKind: "static"}
		}
		if spec.Dynamic == nil {
			return nil, &InvalidSpecError{Reason: "dynamic mode requires a dynamic EMR server spec"}
		}
		return getDynamicClient(ctx, appCtx, sessionID, *spec.Dynamic)

	default:
		if spec.Dynamic != nil {
			return nil, &ModeMismatchError{ActiveMode: string(appCtx.Mode), SpecKind: "dynamic"}
		}
		var static models.StaticServerSpec
		if spec.Static != nil {
			static = *spec.Static
		}
		return getStaticClient(appCtx, static)
	}
}

// getStaticClient looks the client up in the preconfigured map. An
// explicit server name wins over the default flag when both are set; a
// spec with neither selects the default.
func getStaticClient(appCtx *app.Context, spec models.StaticServerSpec) (*spark.Client, error) {
	if spec.ServerName != "" {
		client, ok := appCtx.Clients[spec.ServerName]
		if !ok {
			return nil, &ServerNotFoundError{Name: spec.ServerName}
		}
		return client, nil
	}

	if appCtx.DefaultClient == nil {
		return nil, &NoDefaultError{}
	}
	return appCtx.DefaultClient, nil
}

// getDynamicClient resolves the cluster identifier to an ARN, then the
// ARN to a client. Precedence: ARN, then id, then name. Ids and names
// consult the session-scoped identifier cache before calling the
// resolver; ARNs skip resolution entirely.
func getDynamicClient(ctx context.Context, appCtx *app.Context, sessionID string, spec models.DynamicEMRServerSpec) (*spark.Client, error) {
	if spec.IsEmpty() {
		return nil, &InvalidSpecError{Reason: "one of emrClusterArn, emrClusterId or emrClusterName must be set"}
	}
	if appCtx.Resolver == nil || appCtx.Factory == nil {
		return nil, &UninitializedError{}
	}

	arn := spec.ClusterArn
	if arn == "" {
		identifier := spec.ClusterID
		branch := "id"
		if identifier == "" {
			identifier = spec.ClusterName
			branch = "name"
		}

		resolved, err := appCtx.ArnCache.GetOrCreate(
			cache.SessionKey(sessionID, identifier),
			func() (string, error) {
				logger.WithFields(map[string]interface{}{
					"identifier": identifier,
					"branch":     branch,
					"session_id": sessionID,
				}).Debug("Resolving cluster identifier")
				return appCtx.Resolver.Resolve(ctx, identifier)
			},
		)
		if err != nil {
			return nil, err
		}
		arn = resolved
	}

	return appCtx.ClientCache.GetOrCreate(arn, func() (*spark.Client, error) {
		logger.WithField("cluster_arn", arn).Info("Constructing Spark client for cluster")
		return appCtx.Factory(ctx, arn)
	})
}
