package emr

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/emr"
	"github.com/aws/aws-sdk-go-v2/service/emrserverless"
)

// Narrow views over the AWS SDK clients, so tests can swap in fakes.
// *emr.Client and *emrserverless.Client satisfy these.

// ClusterAPI is the slice of the EMR API used by ClusterResolver.
type ClusterAPI interface {
	DescribeCluster(ctx context.Context, params *emr.DescribeClusterInput, optFns ...func(*emr.Options)) (*emr.DescribeClusterOutput, error)
	ListClusters(ctx context.Context, params *emr.ListClustersInput, optFns ...func(*emr.Options)) (*emr.ListClustersOutput, error)
}

// PersistentUIAPI is the slice of the EMR API used by the persistent UI
// session acquirer.
type PersistentUIAPI interface {
	CreatePersistentAppUI(ctx context.Context, params *emr.CreatePersistentAppUIInput, optFns ...func(*emr.Options)) (*emr.CreatePersistentAppUIOutput, error)
	DescribePersistentAppUI(ctx context.Context, params *emr.DescribePersistentAppUIInput, optFns ...func(*emr.Options)) (*emr.DescribePersistentAppUIOutput, error)
	GetPersistentAppUIPresignedURL(ctx context.Context, params *emr.GetPersistentAppUIPresignedURLInput, optFns ...func(*emr.Options)) (*emr.GetPersistentAppUIPresignedURLOutput, error)
}

// ServerlessAPI is the slice of the EMR Serverless API used by the
// hybrid client.
type ServerlessAPI interface {
	GetApplication(ctx context.Context, params *emrserverless.GetApplicationInput, optFns ...func(*emrserverless.Options)) (*emrserverless.GetApplicationOutput, error)
	ListJobRuns(ctx context.Context, params *emrserverless.ListJobRunsInput, optFns ...func(*emrserverless.Options)) (*emrserverless.ListJobRunsOutput, error)
	GetDashboardForJobRun(ctx context.Context, params *emrserverless.GetDashboardForJobRunInput, optFns ...func(*emrserverless.Options)) (*emrserverless.GetDashboardForJobRunOutput, error)
}
