package resolution

import "fmt"

// ModeMismatchError is returned when a server spec has the wrong shape
// for the active mode (static spec in dynamic mode or vice versa). It
// is detected before any network call.
type ModeMismatchError struct {
	ActiveMode string
	SpecKind   string
}

func (e *ModeMismatchError) Error() string {
	return fmt.Sprintf("%s server spec is not valid in %s mode", e.SpecKind, e.ActiveMode)
}

// InvalidSpecError is returned when a spec carries no usable selector.
type InvalidSpecError struct {
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return "invalid server spec: " + e.Reason
}

// ServerNotFoundError is returned when a static spec names a server
// that is not configured.
type ServerNotFoundError struct {
	Name string
}

func (e *ServerNotFoundError) Error() string {
	return fmt.Sprintf("no server named %q is configured", e.Name)
}

// NoDefaultError is returned when the default server is requested but
// none is configured.
type NoDefaultError struct{}

func (e *NoDefaultError) Error() string {
	return "no default server is configured"
}

// UninitializedError is returned when a dynamic spec arrives but the
// clustering backend was never initialized for this process.
type UninitializedError struct{}

func (e *UninitializedError) Error() string {
	return "dynamic EMR resolution requested but the EMR backend is not initialized"
}
