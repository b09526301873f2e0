package spark

import (
	"context"
	"crypto/tls"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kubeflow/mcp-apache-spark-history-server/internal/config"
	"github.com/kubeflow/mcp-apache-spark-history-server/internal/models"
)

// RequestExecutor issues one Spark REST request and returns a plain
// response value. The client holds exactly one executor, selected at
// construction time: plain HTTP for standard history servers,
// authenticated-session HTTP for EMR Persistent UI, or the hybrid
// EMR Serverless executor that can synthesize responses.
type RequestExecutor interface {
	Do(ctx context.Context, path string, params url.Values) (*models.Response, error)
}

// RestyExecutor executes requests against a real history server over
// HTTP using a resty client.
type RestyExecutor struct {
	client *resty.Client
}

// NewRestyExecutor builds an executor from a server config, applying
// base URL, timeout, TLS verification and credentials.
func NewRestyExecutor(cfg config.ServerConfig) *RestyExecutor {
	rc := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(time.Duration(cfg.Timeout()) * time.Second).
		SetHeader("Accept", "application/json")

	if !cfg.ShouldVerifySSL() {
		rc.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if cfg.Auth.Token != "" {
		rc.SetAuthToken(cfg.Auth.Token)
	} else if cfg.Auth.Username != "" {
		rc.SetBasicAuth(cfg.Auth.Username, cfg.Auth.Password)
	}

	return &RestyExecutor{client: rc}
}

// NewRestyExecutorFromClient wraps an already configured resty client,
// typically one carrying an authenticated cookie session for an EMR
// Persistent UI.
func NewRestyExecutorFromClient(rc *resty.Client) *RestyExecutor {
	return &RestyExecutor{client: rc}
}

// Do performs a GET against the history server.
func (e *RestyExecutor) Do(ctx context.Context, path string, params url.Values) (*models.Response, error) {
	req := e.client.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParamsFromValues(params)
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, err
	}

	return &models.Response{
		Status:  resp.StatusCode(),
		Headers: resp.Header(),
		Body:    resp.Body(),
	}, nil
}
