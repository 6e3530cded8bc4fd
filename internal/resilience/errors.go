package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks a failure worth retrying, such as an HTTP 429 or 503
// from a council endpoint.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as retryable. statusCode may be zero.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsTransient reports whether err is a TransientError, a network timeout, a
// refused or reset connection, or carries a known transient message.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status is safe to retry.
func IsTransientHTTPStatus(code int) bool {
	switch code {
	case 408, 425, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
