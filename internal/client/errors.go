package client

import "errors"

// Kind classifies an API error for callers.
type Kind int

const (
	// KindTransport is a network or HTTP-layer failure.
	KindTransport Kind = iota

	// KindConnectivity means the device is offline and no usable offline
	// cache entry exists. The transport is never invoked.
	KindConnectivity

	// KindServer is a well-formed error response from the backend.
	KindServer

	// KindPasswordIncorrect is the backend's structured rejection of the
	// supplied password. The stored password is cleared automatically.
	KindPasswordIncorrect

	// KindCancelled is a server error carrying a machine-readable code,
	// meant to be handled as an expected outcome rather than a failure.
	KindCancelled

	// KindPromptCancelled means the user declined the password prompt.
	KindPromptCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindConnectivity:
		return "connectivity"
	case KindServer:
		return "server"
	case KindPasswordIncorrect:
		return "passwordIncorrect"
	case KindCancelled:
		return "cancelled"
	case KindPromptCancelled:
		return "promptCancelled"
	default:
		return "unknown"
	}
}

// APIError is the error type surfaced by every client operation.
type APIError struct {
	Kind    Kind
	Message string

	// Code is the machine-readable code from a structured server error,
	// empty otherwise.
	Code string

	// Response carries the parsed body when the server answered.
	Response *Response

	// Cause is the underlying error, when one exists, so errors.Is can
	// still reach transport-level sentinels like context.Canceled.
	Cause error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// IsConnectivity reports whether err is a connectivity failure.
func IsConnectivity(err error) bool {
	return hasKind(err, KindConnectivity)
}

// IsTransport reports whether err is a network or HTTP-layer failure.
func IsTransport(err error) bool {
	return hasKind(err, KindTransport)
}

// IsCancelled reports whether err is a structured cancellable server error.
func IsCancelled(err error) bool {
	return hasKind(err, KindCancelled)
}

// IsPromptCancelled reports whether err means the user declined the
// password prompt.
func IsPromptCancelled(err error) bool {
	return hasKind(err, KindPromptCancelled)
}

// IsPasswordIncorrect reports whether err is the backend's structured
// bad-password rejection.
func IsPasswordIncorrect(err error) bool {
	return hasKind(err, KindPasswordIncorrect)
}

func hasKind(err error, kind Kind) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}
