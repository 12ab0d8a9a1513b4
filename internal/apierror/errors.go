package apierror

import (
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	pkgstrings "agentdesk/pkg/strings"
)

// ErrUnauthorized matches any RequestError carrying HTTP 401 via errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// NetworkErrorType categorizes the type of transport failure.
type NetworkErrorType int

const (
	// NetworkErrorUnknown indicates an unclassified transport error.
	NetworkErrorUnknown NetworkErrorType = iota
	// NetworkErrorTLS indicates a TLS/certificate verification error.
	NetworkErrorTLS
	// NetworkErrorConnection indicates a connectivity error (refused, unreachable, reset).
	NetworkErrorConnection
	// NetworkErrorTimeout indicates the transport gave up waiting.
	NetworkErrorTimeout
	// NetworkErrorDNS indicates a DNS resolution failure.
	NetworkErrorDNS
)

// String returns a human-readable name for the network error type.
func (t NetworkErrorType) String() string {
	switch t {
	case NetworkErrorTLS:
		return "TLS certificate error"
	case NetworkErrorConnection:
		return "Network error"
	case NetworkErrorTimeout:
		return "Connection timeout"
	case NetworkErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// NetworkError means no response was received from the server.
// It is reported to the caller and never retried.
type NetworkError struct {
	// Endpoint is the URL that could not be reached.
	Endpoint string
	// Type categorizes the failure.
	Type NetworkErrorType
	// Err is the underlying transport error.
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s reaching %s: %v", e.Type, e.Endpoint, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is() to work with wrapped errors.
func (e *NetworkError) Is(target error) bool {
	_, ok := target.(*NetworkError)
	return ok
}

// ClassifyNetworkError wraps a transport error into a NetworkError with the
// appropriate type. If the error is nil, returns nil.
func ClassifyNetworkError(err error, endpoint string) *NetworkError {
	if err == nil {
		return nil
	}

	netErr := &NetworkError{Endpoint: endpoint, Type: NetworkErrorUnknown, Err: err}

	var dnsErr *net.DNSError
	switch {
	case isTLSError(err):
		netErr.Type = NetworkErrorTLS
	case errors.As(err, &dnsErr):
		netErr.Type = NetworkErrorDNS
	case isTimeoutError(err):
		netErr.Type = NetworkErrorTimeout
	case isConnectionError(err.Error()):
		netErr.Type = NetworkErrorConnection
	}

	return netErr
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError

	if errors.As(err, &certErr) || errors.As(err, &hostErr) || errors.As(err, &unknownAuthErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}

	return false
}

// isTimeoutError checks if the error is a timeout.
func isTimeoutError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// isConnectionError checks if the error string indicates a connectivity issue.
func isConnectionError(errStr string) bool {
	for _, keyword := range []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connect:",
	} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// RequestError is returned when the server answered with a non-success status
// that the client does not handle itself.
type RequestError struct {
	// Method and Path identify the failed call.
	Method string
	Path   string
	// Status is the HTTP status code returned by the server.
	Status int
	// Message is the server-provided explanation, if any.
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.Path, e.Status, msg)
}

// Is reports a match for any RequestError target, and for ErrUnauthorized
// when the status is 401.
func (e *RequestError) Is(target error) bool {
	if target == ErrUnauthorized {
		return e.Status == http.StatusUnauthorized
	}
	_, ok := target.(*RequestError)
	return ok
}

// NewRequestError builds a RequestError, extracting the server message from
// a JSON body ({"detail": ...}, {"message": ...} or {"error": ...}) and
// falling back to the trimmed raw body.
func NewRequestError(method, path string, status int, body []byte) *RequestError {
	return &RequestError{
		Method:  method,
		Path:    path,
		Status:  status,
		Message: ServerMessage(body),
	}
}

// maxMessageLength bounds, in runes, how much of a non-JSON body ends up in an error.
const maxMessageLength = 512

// ServerMessage extracts a human-readable message from an error response body.
func ServerMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if len(envelope.Detail) > 0 {
			var detail string
			if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
				return detail
			}
			// FastAPI validation errors carry a list of objects.
			return string(envelope.Detail)
		}
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}

	return pkgstrings.Truncate(string(body), maxMessageLength)
}

// AuthExpiredError indicates the session could not be renewed: the refresh
// call was rejected or no refresh token existed. Local credentials have been
// cleared by the time a caller sees it.
type AuthExpiredError struct {
	// Reason is the underlying failure, nil when no refresh token was stored.
	Reason error
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthExpiredError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("authentication expired: %v\n\nTo re-authenticate, run:\n  agentdesk login", e.Reason)
	}
	return "authentication expired: no refresh token available\n\nTo re-authenticate, run:\n  agentdesk login"
}

// Unwrap returns the underlying error.
func (e *AuthExpiredError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthExpiredError) Is(target error) bool {
	_, ok := target.(*AuthExpiredError)
	return ok
}

// AuthRequiredError indicates that an operation needs an authenticated session
// and none exists.
type AuthRequiredError struct {
	// Operation names what the caller tried to do.
	Operation string
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthRequiredError) Error() string {
	op := e.Operation
	if op == "" {
		op = "this operation"
	}
	return fmt.Sprintf(`authentication required for %s

To authenticate, run:
  agentdesk login`, op)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}
