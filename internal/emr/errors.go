package emr

import (
	"fmt"
	"strings"
)

// NotFoundError is returned when a cluster identifier matches nothing.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no cluster found for identifier %q", e.Identifier)
}

// AmbiguousError is returned when more than one active cluster shares
// the requested name. It lists every matching cluster id so the caller
// can retry with an id.
type AmbiguousError struct {
	Name       string
	ClusterIDs []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("multiple active clusters found with name %q: %s; use a cluster id instead",
		e.Name, strings.Join(e.ClusterIDs, ", "))
}

// BackendError wraps an unexpected transport or auth failure from the
// EMR or EMR Serverless APIs.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("emr backend call %s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// AcquisitionError wraps a failure during authenticated-session setup
// (persistent UI creation, presigned URL negotiation, session bootstrap).
type AcquisitionError struct {
	Step string
	Err  error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("session acquisition failed at %s: %v", e.Step, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// TimeoutError is returned when a bounded poll is exhausted before the
// awaited resource became ready.
type TimeoutError struct {
	Resource string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not become ready after %d attempts", e.Resource, e.Attempts)
}

// UnsupportedOperationError signals that the EMR Serverless fallback has
// no handler for a requested path. The hybrid executor converts it into
// a structured 404 response at the transport boundary.
type UnsupportedOperationError struct {
	Path string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("endpoint %q not supported in EMR Serverless mode", e.Path)
}
