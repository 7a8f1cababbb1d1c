package apiclient

import (
	"errors"
	"fmt"
)

// Kind classifies a failed backend exchange.
type Kind int

const (
	// KindNetwork covers transport and connectivity failures,
	// including timeouts. User-visible as "check your connection".
	KindNetwork Kind = iota
	// KindAuthRequired is a 401 or 403. Never triggers a global
	// logout; each caller decides how to react.
	KindAuthRequired
	// KindServer is any other non-2xx status.
	KindServer
	// KindDecode is a 2xx whose body did not match the expected shape.
	KindDecode
	// KindNoData is a 2xx with an empty body where content was required.
	KindNoData
	// KindInvalid covers malformed requests and unusable responses.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuthRequired:
		return "auth_required"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	case KindNoData:
		return "no_data"
	default:
		return "invalid"
	}
}

// Error is the typed outcome of a failed request. Status is set for
// KindAuthRequired and KindServer.
type Error struct {
	Kind     Kind
	Status   int
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServer:
		return fmt.Sprintf("%s: server error %d", e.Endpoint, e.Status)
	case KindAuthRequired:
		return fmt.Sprintf("%s: authentication required (status %d)", e.Endpoint, e.Status)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s error: %v", e.Endpoint, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s error", e.Endpoint, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the classification from err, or KindInvalid when err
// is not an apiclient error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInvalid
}

// IsAuthRequired reports whether err is a 401/403 classification.
func IsAuthRequired(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuthRequired
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindNetwork
}

// StatusOf returns the HTTP status carried by err, 0 when absent.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
