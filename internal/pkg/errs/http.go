package errs

import (
	"context"
	"errors"
	"net"
)

// KindFromHTTP maps an upstream response code to an error kind.
// 4xx is the caller's fault and never retried, 5xx and 429 are
// treated as transient provider failures
func KindFromHTTP(code int) Kind {
	switch {
	case code == 408:
		return Timeout
	case code == 429:
		return ProviderUnavailable
	case code >= 400 && code < 500:
		return InvalidInput
	case code >= 500:
		return ProviderUnavailable
	}
	return Unknown
}

// KindFromTransport classifies a failed round trip
func KindFromTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return Timeout
	}
	return ProviderUnavailable
}
