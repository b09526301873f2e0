// Package emr talks to AWS EMR and EMR Serverless: it resolves cluster
// identifiers to ARNs and acquires authenticated sessions for the
// managed Spark UI surfaces.
package emr

import (
	"context"
	"errors"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsemr "github.com/aws/aws-sdk-go-v2/service/emr"
	emrtypes "github.com/aws/aws-sdk-go-v2/service/emr/types"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/logger"
)

// clusterIDPattern matches EMR cluster ids such as j-1234567890ABC.
var clusterIDPattern = regexp.MustCompile(`^j-[0-9A-Za-z]+$`)

// ClusterResolver resolves an opaque cluster identifier (ARN, id or
// name) to a canonical cluster ARN.
type ClusterResolver struct {
	api ClusterAPI
}

// NewClusterResolver builds a resolver backed by the real EMR client.
func NewClusterResolver(cfg aws.Config) *ClusterResolver {
	return &ClusterResolver{api: awsemr.NewFromConfig(cfg)}
}

// NewClusterResolverWithAPI builds a resolver over an explicit API,
// used by tests.
func NewClusterResolverWithAPI(api ClusterAPI) *ClusterResolver {
	return &ClusterResolver{api: api}
}

// Resolve maps a cluster id or name to the cluster's ARN.
//
// Identifiers matching the id pattern are fetched directly. Everything
// else is treated as a name and matched exactly against the full listing
// of active (RUNNING or WAITING) clusters; ambiguity is decided over the
// complete paginated result set, never a single page.
func (r *ClusterResolver) Resolve(ctx context.Context, identifier string) (string, error) {
	if clusterIDPattern.MatchString(identifier) {
		logger.WithField("cluster_id", identifier).Debug("Resolving cluster identifier as id")
		return r.resolveByID(ctx, identifier)
	}
	logger.WithField("cluster_name", identifier).Debug("Resolving cluster identifier as name")
	return r.resolveByName(ctx, identifier)
}

func (r *ClusterResolver) resolveByID(ctx context.Context, clusterID string) (string, error) {
	out, err := r.api.DescribeCluster(ctx, &awsemr.DescribeClusterInput{
		ClusterId: aws.String(clusterID),
	})
	if err != nil {
		var invalidReq *emrtypes.InvalidRequestException
		if errors.As(err, &invalidReq) {
			return "", &NotFoundError{Identifier: clusterID}
		}
		return "", &BackendError{Op: "DescribeCluster", Err: err}
	}

	arn := aws.ToString(out.Cluster.ClusterArn)
	logger.WithFields(map[string]interface{}{
		"cluster_id":  clusterID,
		"cluster_arn": arn,
	}).Info("Resolved cluster id to ARN")
	return arn, nil
}

func (r *ClusterResolver) resolveByName(ctx context.Context, name string) (string, error) {
	matches, err := r.findActiveClustersByName(ctx, name)
	if err != nil {
		return "", err
	}

	if len(matches) == 0 {
		return "", &NotFoundError{Identifier: name}
	}
	if len(matches) > 1 {
		ids := make([]string, 0, len(matches))
		for _, c := range matches {
			ids = append(ids, aws.ToString(c.Id))
		}
		return "", &AmbiguousError{Name: name, ClusterIDs: ids}
	}

	return r.resolveByID(ctx, aws.ToString(matches[0].Id))
}

// findActiveClustersByName walks every page of the active-clusters
// listing and collects exact name matches. It never short-circuits on
// the first page: ambiguity must be evaluated over the complete set.
func (r *ClusterResolver) findActiveClustersByName(ctx context.Context, name string) ([]emrtypes.ClusterSummary, error) {
	var matches []emrtypes.ClusterSummary
	var marker *string

	for {
		out, err := r.api.ListClusters(ctx, &awsemr.ListClustersInput{
			ClusterStates: []emrtypes.ClusterState{
				emrtypes.ClusterStateRunning,
				emrtypes.ClusterStateWaiting,
			},
			Marker: marker,
		})
		if err != nil {
			return nil, &BackendError{Op: "ListClusters", Err: err}
		}

		for _, cluster := range out.Clusters {
			if aws.ToString(cluster.Name) == name {
				matches = append(matches, cluster)
			}
		}

		marker = out.Marker
		if marker == nil {
			break
		}
	}

	return matches, nil
}
