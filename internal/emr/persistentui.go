package emr

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsemr "github.com/aws/aws-sdk-go-v2/service/emr"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/logger"
)

const persistentUIStatusAttached = "ATTACHED"

// PersistentUIClient performs the multi-step negotiation that turns an
// EMR cluster ARN into a base URL plus an authenticated HTTP session
// for the cluster's persistent Spark UI:
//
//  1. create (or re-attach to) the persistent app UI resource,
//  2. poll until it reaches ATTACHED,
//  3. request a presigned URL scoped to the UI,
//  4. visit the presigned URL once so the session cookie jar is primed.
type PersistentUIClient struct {
	api        PersistentUIAPI
	clusterArn string

	pollInterval time.Duration
	maxPolls     uint64

	persistentUIID string
	presignedURL   string
	baseURL        string
	session        *resty.Client
}

// NewPersistentUIClient builds a persistent UI client for one cluster.
func NewPersistentUIClient(cfg aws.Config, clusterArn string, timeoutSeconds int) *PersistentUIClient {
	return NewPersistentUIClientWithAPI(awsemr.NewFromConfig(cfg), clusterArn, timeoutSeconds)
}

// NewPersistentUIClientWithAPI builds a client over an explicit API,
// used by tests.
func NewPersistentUIClientWithAPI(api PersistentUIAPI, clusterArn string, timeoutSeconds int) *PersistentUIClient {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return &PersistentUIClient{
		api:          api,
		clusterArn:   clusterArn,
		pollInterval: 2 * time.Second,
		maxPolls:     15,
		session: resty.New().
			SetTimeout(time.Duration(timeoutSeconds) * time.Second).
			SetHeaders(map[string]string{
				"User-Agent":                "Mozilla/5.0 (compatible; spark-history-mcp)",
				"Accept":                    "text/html,application/json,*/*",
				"Accept-Language":           "en-US,en;q=0.9",
				"Accept-Encoding":           "gzip, deflate, br",
				"Connection":                "keep-alive",
				"Upgrade-Insecure-Requests": "1",
			}),
	}
}

// SessionClient exposes the underlying resty client; tests attach their
// transport mock here.
func (c *PersistentUIClient) SessionClient() *resty.Client {
	return c.session
}

// Initialize runs the full acquisition sequence and returns the Spark
// History Server base URL together with the authenticated session.
func (c *PersistentUIClient) Initialize(ctx context.Context) (string, *resty.Client, error) {
	if err := c.createPersistentAppUI(ctx); err != nil {
		return "", nil, err
	}
	if err := c.waitUntilAttached(ctx); err != nil {
		return "", nil, err
	}
	if err := c.fetchPresignedURL(ctx); err != nil {
		return "", nil, err
	}
	if err := c.primeSession(ctx); err != nil {
		return "", nil, err
	}

	logger.WithFields(map[string]interface{}{
		"cluster_arn": c.clusterArn,
		"base_url":    c.baseURL,
	}).Info("EMR persistent UI session established")
	return c.baseURL, c.session, nil
}

// createPersistentAppUI creates the persistent UI resource for the
// cluster. The call is idempotent on the AWS side: creating a UI that
// already exists returns the existing one.
func (c *PersistentUIClient) createPersistentAppUI(ctx context.Context) error {
	out, err := c.api.CreatePersistentAppUI(ctx, &awsemr.CreatePersistentAppUIInput{
		TargetResourceArn: aws.String(c.clusterArn),
	})
	if err != nil {
		return &AcquisitionError{Step: "CreatePersistentAppUI", Err: err}
	}

	c.persistentUIID = aws.ToString(out.PersistentAppUIId)
	logger.WithFields(map[string]interface{}{
		"cluster_arn":      c.clusterArn,
		"persistent_ui_id": c.persistentUIID,
	}).Debug("Persistent app UI created or reused")
	return nil
}

// waitUntilAttached polls the UI resource until it reports ATTACHED.
// The poll is bounded: maxPolls attempts at a constant interval.
func (c *PersistentUIClient) waitUntilAttached(ctx context.Context) error {
	attempts := 0

	operation := func() error {
		attempts++
		out, err := c.api.DescribePersistentAppUI(ctx, &awsemr.DescribePersistentAppUIInput{
			PersistentAppUIId: aws.String(c.persistentUIID),
		})
		if err != nil {
			return backoff.Permanent(&AcquisitionError{Step: "DescribePersistentAppUI", Err: err})
		}

		status := aws.ToString(out.PersistentAppUI.PersistentAppUIStatus)
		if status == persistentUIStatusAttached {
			return nil
		}
		logger.WithFields(map[string]interface{}{
			"persistent_ui_id": c.persistentUIID,
			"status":           status,
			"attempt":          attempts,
		}).Debug("Persistent UI not ready yet")
		return fmt.Errorf("persistent UI %s in state %s", c.persistentUIID, status)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.pollInterval), c.maxPolls),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		var acquisition *AcquisitionError
		if errors.As(err, &acquisition) {
			return acquisition
		}
		return &TimeoutError{Resource: "persistent UI " + c.persistentUIID, Attempts: attempts}
	}
	return nil
}

// fetchPresignedURL requests the time-limited pre-authenticated URL for
// the UI and derives the history server base URL from it.
func (c *PersistentUIClient) fetchPresignedURL(ctx context.Context) error {
	out, err := c.api.GetPersistentAppUIPresignedURL(ctx, &awsemr.GetPersistentAppUIPresignedURLInput{
		PersistentAppUIId: aws.String(c.persistentUIID),
	})
	if err != nil {
		return &AcquisitionError{Step: "GetPersistentAppUIPresignedURL", Err: err}
	}

	c.presignedURL = aws.ToString(out.PresignedURL)
	base, err := historyServerBaseURL(c.presignedURL)
	if err != nil {
		return &AcquisitionError{Step: "GetPersistentAppUIPresignedURL", Err: err}
	}
	c.baseURL = base
	c.session.SetBaseURL(base)
	return nil
}

// primeSession performs the single GET against the presigned URL.
// Redirects are followed and the auth cookies land in the session's
// cookie jar, so subsequent REST calls need no further signing.
func (c *PersistentUIClient) primeSession(ctx context.Context) error {
	resp, err := c.session.R().SetContext(ctx).Get(c.presignedURL)
	if err != nil {
		return &AcquisitionError{Step: "session bootstrap", Err: err}
	}
	if resp.StatusCode() >= 400 {
		return &AcquisitionError{
			Step: "session bootstrap",
			Err:  fmt.Errorf("presigned URL returned HTTP %d", resp.StatusCode()),
		}
	}
	return nil
}

// historyServerBaseURL derives the Spark History Server base URL from a
// presigned UI URL: the origin plus the /shs prefix.
func historyServerBaseURL(presigned string) (string, error) {
	u, err := url.Parse(presigned)
	if err != nil {
		return "", fmt.Errorf("invalid presigned URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("presigned URL %q has no origin", presigned)
	}
	return u.Scheme + "://" + u.Host + "/shs", nil
}
