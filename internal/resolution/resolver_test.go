package resolution

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsemr "github.com/aws/aws-sdk-go-v2/service/emr"
	emrtypes "github.com/aws/aws-sdk-go-v2/service/emr/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/app"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/cache"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/config"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/emr"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/models"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/spark"
)

// fakeClusterAPI counts calls so tests can assert which resolution
// branches touched the backend.
type fakeClusterAPI struct {
	describeFunc  func(params *awsemr.DescribeClusterInput) (*awsemr.DescribeClusterOutput, error)
	listFunc      func(params *awsemr.ListClustersInput) (*awsemr.ListClustersOutput, error)
	describeCalls int
	listCalls     int
}

func (f *fakeClusterAPI) DescribeCluster(ctx context.Context, params *awsemr.DescribeClusterInput, optFns ...func(*awsemr.Options)) (*awsemr.DescribeClusterOutput, error) {
	f.describeCalls++
	return f.describeFunc(params)
}

func (f *fakeClusterAPI) ListClusters(ctx context.Context, params *awsemr.ListClustersInput, optFns ...func(*awsemr.Options)) (*awsemr.ListClustersOutput, error) {
	f.listCalls++
	return f.listFunc(params)
}

func staticContext(t *testing.T, withDefault bool) *app.Context {
	t.Helper()
	prod := spark.NewClient(config.ServerConfig{URL: "http://prod:18080"})
	staging := spark.NewClient(config.ServerConfig{URL: "http://staging:18080"})

	appCtx := &app.Context{
		Mode:        app.ModeStatic,
		Clients:     map[string]*spark.Client{"prod": prod, "staging": staging},
		ClientCache: cache.New[string, *spark.Client](),
		ArnCache:    cache.New[string, string](),
	}
	if withDefault {
		appCtx.DefaultClient = prod
	}
	return appCtx
}

func dynamicContext(api *fakeClusterAPI, factoryCalls *int) *app.Context {
	return &app.Context{
		Mode:     app.ModeDynamic,
		Resolver: emr.NewClusterResolverWithAPI(api),
		Factory: func(ctx context.Context, clusterArn string) (*spark.Client, error) {
			*factoryCalls++
			return spark.NewClient(config.ServerConfig{URL: "http://" + clusterArn}), nil
		},
		ClientCache: cache.New[string, *spark.Client](),
		ArnCache:    cache.New[string, string](),
	}
}

func describeReturningARN(arn string) func(*awsemr.DescribeClusterInput) (*awsemr.DescribeClusterOutput, error) {
	return func(params *awsemr.DescribeClusterInput) (*awsemr.DescribeClusterOutput, error) {
		return &awsemr.DescribeClusterOutput{
			Cluster: &emrtypes.Cluster{ClusterArn: aws.String(arn)},
		}, nil
	}
}

func TestStaticSpecRejectedInDynamicMode(t *testing.T) {
	api := &fakeClusterAPI{}
	factoryCalls := 0
	appCtx := dynamicContext(api, &factoryCalls)

	spec := models.ServerSpec{Static: &models.StaticServerSpec{ServerName: "prod"}}
	_, err := GetClient(context.Background(), appCtx, "s1", spec)

	var mismatch *ModeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "static", mismatch.SpecKind)

	// Rejected before any backend or factory work.
	assert.Zero(t, api.describeCalls)
	assert.Zero(t, api.listCalls)
	assert.Zero(t, factoryCalls)
}

func TestDynamicSpecRejectedInStaticMode(t *testing.T) {
	appCtx := staticContext(t, true)

	spec := models.ServerSpec{Dynamic: &models.DynamicEMRServerSpec{ClusterID: "j-ABC123"}}
	_, err := GetClient(context.Background(), appCtx, "s1", spec)

	var mismatch *ModeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "dynamic", mismatch.SpecKind)
}

func TestStaticByName(t *testing.T) {
	appCtx := staticContext(t, true)

	client, err := GetClient(context.Background(), appCtx, "s1", models.ServerSpec{
		Static: &models.StaticServerSpec{ServerName: "staging"},
	})
	require.NoError(t, err)
	assert.Same(t, appCtx.Clients["staging"], client)
}

func TestStaticNameWinsOverDefaultFlag(t *testing.T) {
	appCtx := staticContext(t, true)

	client, err := GetClient(context.Background(), appCtx, "s1", models.ServerSpec{
		Static: &models.StaticServerSpec{ServerName: "staging", UseDefault: true},
	})
	require.NoError(t, err)
	assert.Same(t, appCtx.Clients["staging"], client)
}

func TestStaticDefaultSelection(t *testing.T) {
	appCtx := staticContext(t, true)

	// Explicit useDefault and a fully empty spec both select the default.
	for _, spec := range []models.ServerSpec{
		{Static: &models.StaticServerSpec{UseDefault: true}},
		{Static: &models.StaticServerSpec{}},
		{},
	} {
		client, err := GetClient(context.Background(), appCtx, "s1", spec)
		require.NoError(t, err)
		assert.Same(t, appCtx.DefaultClient, client)
	}
}

func TestStaticUnknownName(t *testing.T) {
	appCtx := staticContext(t, true)

	_, err := GetClient(context.Background(), appCtx, "s1", models.ServerSpec{
		Static: &models.StaticServerSpec{ServerName: "nope"},
	})
	var notFound *ServerNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nope", notFound.Name)
}

func TestStaticNoDefaultConfigured(t *testing.T) {
	appCtx := staticContext(t, false)

	_, err := GetClient(context.Background(), appCtx, "s1", models.ServerSpec{})
	var noDefault *NoDefaultError
	assert.ErrorAs(t, err, &noDefault)
}

func TestDynamicEmptySpec(t *testing.T) {
	api := &fakeClusterAPI{}
	factoryCalls := 0
	appCtx := dynamicContext(api, &factoryCalls)

	_, err := GetClient(context.Background(), appCtx, "s1", models.ServerSpec{
		Dynamic: &models.DynamicEMRServerSpec{},
	})
	var invalid *InvalidSpecError
	assert.ErrorAs(t, err, &invalid)
}

func TestDynamicNilSpec(t *testing.T) {
	api := &fakeClusterAPI{}
	factoryCalls := 0
	appCtx := dynamicContext(api, &factoryCalls)

	_, err := GetClient(context.Background(), appCtx, "s1", models.ServerSpec{})
	var invalid *InvalidSpecError
	assert.ErrorAs(t, err, &invalid)
}

func TestDynamicUninitializedBackend(t *testing.T) {
	appCtx := &app.Context{
		Mode:        app.ModeDynamic,
		ClientCache: cache.New[string, *spark.Client](),
		ArnCache:    cache.New[string, string](),
	}

	_, err := GetClient(context.Background(), appCtx, "s1", models.ServerSpec{
		Dynamic: &models.DynamicEMRServerSpec{ClusterID: "j-ABC123"},
	})
	var uninit *UninitializedError
	assert.ErrorAs(t, err, &uninit)
}

func TestDynamicARNSkipsResolution(t *testing.T) {
	api := &fakeClusterAPI{}
	factoryCalls := 0
	appCtx := dynamicContext(api, &factoryCalls)

	arn := "arn:aws:elasticmapreduce:us-east-1:123456789012:cluster/j-ABC123"
	spec := models.ServerSpec{Dynamic: &models.DynamicEMRServerSpec{ClusterArn: arn}}

	c1, err := GetClient(context.Background(), appCtx, "s1", spec)
	require.NoError(t, err)
	c2, err := GetClient(context.Background(), appCtx, "s1", spec)
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, 1, factoryCalls)
	assert.Zero(t, api.describeCalls)
	assert.Zero(t, api.listCalls)
}

func TestDynamicARNWinsOverOtherIdentifiers(t *testing.T) {
	api := &fakeClusterAPI{}
	factoryCalls := 0
	appCtx := dynamicContext(api, &factoryCalls)

	arn := "arn:aws:elasticmapreduce:us-east-1:123456789012:cluster/j-ABC123"
	_, err := GetClient(context.Background(), appCtx, "s1", models.ServerSpec{
		Dynamic: &models.DynamicEMRServerSpec{
			ClusterArn:  arn,
			ClusterID:   "j-OTHER",
			ClusterName: "other",
		},
	})
	require.NoError(t, err)
	assert.Zero(t, api.describeCalls)
	assert.Zero(t, api.listCalls)
}

func TestDynamicIDResolutionCachedPerSession(t *testing.T) {
	arn := "arn:aws:elasticmapreduce:us-east-1:123456789012:cluster/j-ABC123"
	api := &fakeClusterAPI{describeFunc: describeReturningARN(arn)}
	factoryCalls := 0
	appCtx := dynamicContext(api, &factoryCalls)

	spec := models.ServerSpec{Dynamic: &models.DynamicEMRServerSpec{ClusterID: "j-ABC123"}}

	c1, err := GetClient(context.Background(), appCtx, "s1", spec)
	require.NoError(t, err)
	c2, err := GetClient(context.Background(), appCtx, "s1", spec)
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, 1, api.describeCalls)
	assert.Equal(t, 1, factoryCalls)
}

func TestDynamicResolutionIsSessionScoped(t *testing.T) {
	arn := "arn:aws:elasticmapreduce:us-east-1:123456789012:cluster/j-ABC123"
	api := &fakeClusterAPI{describeFunc: describeReturningARN(arn)}
	factoryCalls := 0
	appCtx := dynamicContext(api, &factoryCalls)

	spec := models.ServerSpec{Dynamic: &models.DynamicEMRServerSpec{ClusterID: "j-ABC123"}}

	c1, err := GetClient(context.Background(), appCtx, "session-a", spec)
	require.NoError(t, err)
	c2, err := GetClient(context.Background(), appCtx, "session-b", spec)
	require.NoError(t, err)

	// Each session resolves independently, but both land on the one
	// process-wide client for the ARN.
	assert.Equal(t, 2, api.describeCalls)
	assert.Equal(t, 1, factoryCalls)
	assert.Same(t, c1, c2)
}

func TestDynamicSharedHandleAcrossIdentifierForms(t *testing.T) {
	arn := "arn:aws:elasticmapreduce:us-east-1:123456789012:cluster/j-ABC123"
	api := &fakeClusterAPI{
		describeFunc: describeReturningARN(arn),
		listFunc: func(params *awsemr.ListClustersInput) (*awsemr.ListClustersOutput, error) {
			return &awsemr.ListClustersOutput{
				Clusters: []emrtypes.ClusterSummary{
					{Id: aws.String("j-ABC123"), Name: aws.String("prod-cluster")},
				},
			}, nil
		},
	}
	factoryCalls := 0
	appCtx := dynamicContext(api, &factoryCalls)

	byID, err := GetClient(context.Background(), appCtx, "s1", models.ServerSpec{
		Dynamic: &models.DynamicEMRServerSpec{ClusterID: "j-ABC123"},
	})
	require.NoError(t, err)

	byName, err := GetClient(context.Background(), appCtx, "s1", models.ServerSpec{
		Dynamic: &models.DynamicEMRServerSpec{ClusterName: "prod-cluster"},
	})
	require.NoError(t, err)

	byARN, err := GetClient(context.Background(), appCtx, "s1", models.ServerSpec{
		Dynamic: &models.DynamicEMRServerSpec{ClusterArn: arn},
	})
	require.NoError(t, err)

	assert.Same(t, byID, byName)
	assert.Same(t, byID, byARN)
	assert.Equal(t, 1, factoryCalls)
}

func TestDynamicIDWinsOverName(t *testing.T) {
	arn := "arn:aws:elasticmapreduce:us-east-1:123456789012:cluster/j-ABC123"
	api := &fakeClusterAPI{describeFunc: describeReturningARN(arn)}
	factoryCalls := 0
	appCtx := dynamicContext(api, &factoryCalls)

	_, err := GetClient(context.Background(), appCtx, "s1", models.ServerSpec{
		Dynamic: &models.DynamicEMRServerSpec{ClusterID: "j-ABC123", ClusterName: "ignored"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, api.describeCalls)
	assert.Zero(t, api.listCalls)
}

func TestDynamicResolutionFailureNotCached(t *testing.T) {
	api := &fakeClusterAPI{
		describeFunc: func(params *awsemr.DescribeClusterInput) (*awsemr.DescribeClusterOutput, error) {
			return nil, assert.AnError
		},
	}
	factoryCalls := 0
	appCtx := dynamicContext(api, &factoryCalls)

	spec := models.ServerSpec{Dynamic: &models.DynamicEMRServerSpec{ClusterID: "j-ABC123"}}

	_, err := GetClient(context.Background(), appCtx, "s1", spec)
	require.Error(t, err)
	var backend *emr.BackendError
	assert.ErrorAs(t, err, &backend)

	// A failed resolution leaves no poisoned cache entry behind.
	_, err = GetClient(context.Background(), appCtx, "s1", spec)
	require.Error(t, err)
	assert.Equal(t, 2, api.describeCalls)
	assert.Zero(t, factoryCalls)
}
