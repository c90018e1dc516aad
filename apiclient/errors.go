package apiclient

import (
	"errors"
	"fmt"
	nethttp "net/http"
)

// Machine-readable codes for failures that did not come from an HTTP response.
const (
	CodeTimeout  = "TIMEOUT_ERROR"
	CodeNetwork  = "NETWORK_ERROR"
	CodeCanceled = "CANCELED_ERROR"
	CodeUnknown  = "UNKNOWN_ERROR"
)

// StatusTimeout is the status reported when an attempt exceeds its time budget.
const StatusTimeout = nethttp.StatusRequestTimeout

// APIError is the single error shape returned by the client for every failure:
// HTTP error responses, transport failures, timeouts and local encoding errors.
// Callers distinguish causes by Status and Code.
type APIError struct {
	// Message is the server-provided message or a generic description.
	Message string
	// Status is the HTTP status, or 0 when no response was received.
	Status int
	// Code is a machine-readable code from the server body or one of the Code* constants.
	Code string
	// Details holds the decoded error body, when there was one.
	Details map[string]any
	// Err is the underlying cause for non-HTTP failures.
	Err error
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s (code: %s)", msg, e.Code)
	}
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status: %d)", msg, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("api error: %s: %v", msg, e.Err)
	}
	return "api error: " + msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a request failing with this error would have been
// retried had attempts remained.
func (e *APIError) Retryable() bool {
	return isRetryableStatus(e.Status) || (e.Code == CodeNetwork && e.Err != nil && isConnectivityError(e.Err))
}

func newHTTPError(status int, body map[string]any) *APIError {
	msg := stringField(body, "message")
	if msg == "" {
		msg = stringField(body, "detail")
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP error! status: %d", status)
	}

	code := stringField(body, "code")
	if code == "" {
		code = stringField(body, "error")
	}

	var details map[string]any
	if len(body) > 0 {
		details = body
	}

	return &APIError{Message: msg, Status: status, Code: code, Details: details}
}

func newTimeoutError(err error) *APIError {
	return &APIError{Message: "Request timeout", Status: StatusTimeout, Code: CodeTimeout, Err: err}
}

func newNetworkError(err error) *APIError {
	return &APIError{Message: "Network error occurred", Code: CodeNetwork, Err: err}
}

func newCanceledError(err error) *APIError {
	return &APIError{Message: "Request canceled", Code: CodeCanceled, Err: err}
}

func newUnknownError(message string, err error) *APIError {
	return &APIError{Message: message, Code: CodeUnknown, Err: err}
}

func stringField(body map[string]any, key string) string {
	if s, ok := body[key].(string); ok {
		return s
	}
	return ""
}

// AsAPIError extracts an *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Normalize converts any error into an *APIError. API errors pass through
// unchanged; other errors become NETWORK_ERROR with status 0. Nil stays nil.
func Normalize(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr
	}
	return &APIError{Message: err.Error(), Code: CodeNetwork, Err: err}
}

// IsStatus reports whether err is an API error with the given HTTP status.
func IsStatus(err error, status int) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Status == status
}

// IsCode reports whether err is an API error with the given code.
func IsCode(err error, code string) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Code == code
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
