package routing

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrLocationUnresolved indicates a required location could not be reduced to a coordinate.
	ErrLocationUnresolved = errors.New("location could not be resolved")
	// ErrProviderRejected indicates the provider answered with a non-success status.
	ErrProviderRejected = errors.New("provider rejected the request")
	// ErrTransportFailure indicates the provider could not be reached or its answer could not be read.
	ErrTransportFailure = errors.New("provider transport failure")
	// ErrNoRouteFound indicates the provider answered without any route.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the provider key quota or local rate limit was hit.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrUnsupportedMode indicates an unknown travel mode.
	ErrUnsupportedMode = errors.New("unsupported travel mode")
	// ErrTooFewStops indicates a chain with fewer than two stops.
	ErrTooFewStops = errors.New("at least two stops are required")
	// ErrNoOptions indicates no travel option qualified for a recommendation.
	ErrNoOptions = errors.New("no travel options available")
)

// Location sides reported by LocationError.
const (
	SideOrigin      = "origin"
	SideDestination = "destination"
)

// LocationError reports which endpoint of a plan failed to resolve.
type LocationError struct {
	Side  string
	Query string
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("cannot resolve %s %q", e.Side, e.Query)
}

func (e *LocationError) Unwrap() error {
	return ErrLocationUnresolved
}

// Error provides detailed error information from the mapping provider.
type Error struct {
	Provider string // Provider name
	Code     string // Provider info code, e.g. MISSING_REQUIRED_PARAMS
	Message  string // Human-readable message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failure is transient.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrTransportFailure) || errors.Is(e.Err, ErrRateLimitExceeded)
}

// FailureKind classifies why a planning call ended in the FAILED stage.
type FailureKind string

const (
	FailureNone               FailureKind = ""
	FailureLocationUnresolved FailureKind = "location_unresolved"
	FailureProviderRejected   FailureKind = "provider_rejected"
	FailureTransport          FailureKind = "transport_failure"
)

// Classify maps an error to its failure kind. Unknown errors count as transport
// failures since they originate below the provider's answer.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrLocationUnresolved):
		return FailureLocationUnresolved
	case errors.Is(err, ErrProviderRejected), errors.Is(err, ErrNoRouteFound):
		return FailureProviderRejected
	default:
		return FailureTransport
	}
}

// Describe renders a user-facing message that distinguishes the failure kinds.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var locErr *LocationError
	if errors.As(err, &locErr) {
		return fmt.Sprintf("could not resolve %s %q to a coordinate", locErr.Side, locErr.Query)
	}

	var provErr *Error
	if errors.As(err, &provErr) {
		switch {
		case errors.Is(provErr, ErrRateLimitExceeded):
			return fmt.Sprintf("%s rate limit exceeded, try again later", provErr.Provider)
		case errors.Is(provErr, ErrProviderRejected):
			return fmt.Sprintf("%s rejected the request: %s", provErr.Provider, provErr.Message)
		case errors.Is(provErr, ErrNoRouteFound):
			return fmt.Sprintf("%s found no route between the given points", provErr.Provider)
		default:
			return fmt.Sprintf("could not reach %s: %s", provErr.Provider, provErr.Message)
		}
	}

	switch Classify(err) {
	case FailureLocationUnresolved:
		return "could not resolve location: " + err.Error()
	case FailureProviderRejected:
		return "provider rejected the request: " + err.Error()
	default:
		return "could not reach provider: " + err.Error()
	}
}

// rejectionCode extracts the provider info code from a rejection.
func rejectionCode(err error) string {
	var provErr *Error
	if errors.As(err, &provErr) && errors.Is(provErr, ErrProviderRejected) {
		return provErr.Code
	}
	return ""
}
