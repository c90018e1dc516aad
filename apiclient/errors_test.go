package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "http error",
			err:  newHTTPError(404, map[string]any{"message": "Product not found", "code": "NOT_FOUND"}),
			want: "api error: Product not found (code: NOT_FOUND) (status: 404)",
		},
		{
			name: "network error with cause",
			err:  newNetworkError(errors.New("connection refused")),
			want: "api error: Network error occurred (code: NETWORK_ERROR): connection refused",
		},
		{
			name: "timeout",
			err:  newTimeoutError(context.DeadlineExceeded),
			want: "api error: Request timeout (code: TIMEOUT_ERROR) (status: 408): context deadline exceeded",
		},
		{
			name: "bare message",
			err:  &APIError{Message: "boom"},
			want: "api error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestNewHTTPErrorDetails(t *testing.T) {
	err := newHTTPError(500, map[string]any{})
	assert.Nil(t, err.Details)
	assert.Empty(t, err.Code)
	assert.Equal(t, "HTTP error! status: 500", err.Message)

	body := map[string]any{"message": 42, "detail": "fallback"}
	err = newHTTPError(400, body)
	assert.Equal(t, "fallback", err.Message, "non-string message is ignored")
	assert.Equal(t, body, err.Details)
}

func TestAsAPIErrorThroughWrapping(t *testing.T) {
	base := newHTTPError(503, nil)
	wrapped := fmt.Errorf("load catalog: %w", base)

	got, ok := AsAPIError(wrapped)
	require.True(t, ok)
	assert.Same(t, base, got)
	assert.True(t, IsStatus(wrapped, 503))
	assert.False(t, IsStatus(wrapped, 500))
	assert.False(t, IsCode(errors.New("plain"), CodeNetwork))

	_, ok = AsAPIError(errors.New("plain"))
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	assert.Nil(t, Normalize(nil))

	apiErr := newTimeoutError(nil)
	assert.Same(t, apiErr, Normalize(apiErr))

	cause := errors.New("socket closed")
	got := Normalize(cause)
	assert.Equal(t, 0, got.Status)
	assert.Equal(t, CodeNetwork, got.Code)
	assert.Equal(t, "socket closed", got.Message)
	assert.ErrorIs(t, got, cause)
}

func TestRetryable(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}

	assert.True(t, newHTTPError(500, nil).Retryable())
	assert.True(t, newHTTPError(429, nil).Retryable())
	assert.False(t, newHTTPError(404, nil).Retryable())
	assert.True(t, newNetworkError(refused).Retryable())
	assert.False(t, newNetworkError(errors.New("tls: bad certificate")).Retryable())
	assert.False(t, newTimeoutError(context.DeadlineExceeded).Retryable())
	assert.False(t, newCanceledError(context.Canceled).Retryable())
	assert.False(t, newUnknownError("decode", nil).Retryable())
}

func TestIsSuccessStatus(t *testing.T) {
	assert.True(t, IsSuccessStatus(200))
	assert.True(t, IsSuccessStatus(204))
	assert.False(t, IsSuccessStatus(199))
	assert.False(t, IsSuccessStatus(301))
	assert.False(t, IsSuccessStatus(500))
}

func TestTimeoutErrorUsesRequestTimeoutStatus(t *testing.T) {
	err := newTimeoutError(context.DeadlineExceeded)
	assert.Equal(t, http.StatusRequestTimeout, err.Status)
	assert.Equal(t, CodeTimeout, err.Code)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
