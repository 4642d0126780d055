package uplink

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of an uplink failure
type ErrorType int

const (
	// ErrTypeNetwork indicates a transport failure that is not more specific
	ErrTypeNetwork ErrorType = iota
	// ErrTypeHTTP indicates the server answered with a non-2xx status
	ErrTypeHTTP
	// ErrTypeTimeout indicates the request did not complete in time
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the server refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates the endpoint host could not be resolved
	ErrTypeDNS
	// ErrTypeEncode indicates the payload could not be built
	ErrTypeEncode
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeEncode:
		return "Encode Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// UplinkError is returned by every Client send.
type UplinkError struct {
	Type       ErrorType
	Message    string
	Endpoint   string
	StatusCode int // HTTP status (ErrTypeHTTP only)
	Err        error
}

// Error implements the error interface
func (e *UplinkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *UplinkError) Unwrap() error {
	return e.Err
}

// classifyNetworkError maps a transport error onto an UplinkError.
func classifyNetworkError(err error, endpoint string) *UplinkError {
	if os.IsTimeout(err) {
		return &UplinkError{Type: ErrTypeTimeout, Message: "request timed out", Endpoint: endpoint, Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &UplinkError{
			Type:     ErrTypeDNS,
			Message:  fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Endpoint: endpoint,
			Err:      err,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &UplinkError{Type: ErrTypeConnectionRefused, Message: "server refused connection", Endpoint: endpoint, Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return classifyNetworkError(urlErr.Err, endpoint)
	}

	return &UplinkError{Type: ErrTypeNetwork, Message: "network error occurred", Endpoint: endpoint, Err: err}
}

func newHTTPError(endpoint string, statusCode int) *UplinkError {
	return &UplinkError{
		Type:       ErrTypeHTTP,
		Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		Endpoint:   endpoint,
		StatusCode: statusCode,
	}
}

func newEncodeError(endpoint string, err error) *UplinkError {
	return &UplinkError{Type: ErrTypeEncode, Message: "failed to encode payload", Endpoint: endpoint, Err: err}
}

// IsHTTPError checks if an error is a non-2xx response
func IsHTTPError(err error) bool {
	var upErr *UplinkError
	return errors.As(err, &upErr) && upErr.Type == ErrTypeHTTP
}

// IsNetworkError checks if an error is a transport failure (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	var upErr *UplinkError
	if !errors.As(err, &upErr) {
		return false
	}
	switch upErr.Type {
	case ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS:
		return true
	}
	return false
}

// GetShortErrorMessage returns a concise, operator-facing error message
func GetShortErrorMessage(err error) string {
	var upErr *UplinkError
	if !errors.As(err, &upErr) {
		return err.Error()
	}

	switch upErr.Type {
	case ErrTypeTimeout:
		return "Server not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Server refused connection - is the collector running?"
	case ErrTypeDNS:
		return "Cannot resolve server hostname"
	case ErrTypeNetwork:
		return "Network error - check connection"
	case ErrTypeHTTP:
		return fmt.Sprintf("Server error (HTTP %d)", upErr.StatusCode)
	case ErrTypeEncode:
		return "Failed to encode payload"
	default:
		return upErr.Message
	}
}
