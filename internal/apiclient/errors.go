package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tells callers which failure family an error belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	KindHTTP
	KindNetwork
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindNetwork:
		return "network"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// HTTPError is a non-2xx response from the backend.
type HTTPError struct {
	Status    int
	Message   string
	ErrorCode string
	Body      []byte
}

func (e *HTTPError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (e *HTTPError) Kind() Kind { return KindHTTP }

// NetworkError means no response reached the client.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Kind() Kind { return KindNetwork }

// Status is always zero: nothing answered.
func (e *NetworkError) Status() int { return 0 }

// ParseError means a response arrived but its body could not be decoded.
type ParseError struct {
	Status int
	Body   []byte
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot decode response (status %d): %v", e.Status, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Kind() Kind { return KindParse }

// KindOf classifies err.
func KindOf(err error) Kind {
	var httpErr *HTTPError
	var netErr *NetworkError
	var parseErr *ParseError
	switch {
	case errors.As(err, &httpErr):
		return KindHTTP
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &parseErr):
		return KindParse
	default:
		return KindUnknown
	}
}

// StatusOf returns the HTTP status carried by err, or 0 when there was none.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Status
	}
	return 0
}

// ErrorCodeOf returns the backend errorCode, if any.
func ErrorCodeOf(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.ErrorCode
	}
	return ""
}

// IsUnauthorized reports a rejected token (401 or 403).
func IsUnauthorized(err error) bool {
	status := StatusOf(err)
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func IsNetwork(err error) bool {
	return KindOf(err) == KindNetwork
}
