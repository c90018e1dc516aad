package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504, 599} {
		assert.True(t, isRetryableStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 408, 409, 422} {
		assert.False(t, isRetryableStatus(code), "status %d", code)
	}
}

func TestIsConnectivityError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "api.iris.test", IsNotFound: true}, want: true},
		{name: "dial refused", err: &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, want: true},
		{name: "wrapped in url error", err: &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "read", Err: syscall.ECONNRESET}}, want: true},
		{name: "bare reset", err: fmt.Errorf("read: %w", syscall.ECONNRESET), want: true},
		{name: "broken pipe", err: syscall.EPIPE, want: true},
		{name: "unexpected eof", err: &url.Error{Op: "Post", URL: "http://x", Err: io.ErrUnexpectedEOF}, want: true},
		{name: "server closed", err: fmt.Errorf("read response: %w", io.EOF), want: true},
		{name: "timeout excluded", err: &url.Error{Op: "Get", URL: "http://x", Err: timeoutError{}}, want: false},
		{name: "deadline excluded", err: context.DeadlineExceeded, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "other", err: errors.New("x509: certificate signed by unknown authority"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isConnectivityError(tt.err))
		})
	}
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, isTimeout(context.DeadlineExceeded))
	assert.True(t, isTimeout(fmt.Errorf("attempt: %w", context.DeadlineExceeded)))
	assert.True(t, isTimeout(timeoutError{}))
	assert.False(t, isTimeout(context.Canceled))
	assert.False(t, isTimeout(errors.New("boom")))
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(time.Second, 1))
	assert.Equal(t, 2*time.Second, backoffDelay(time.Second, 2))
	assert.Equal(t, 750*time.Millisecond, backoffDelay(250*time.Millisecond, 3))
	assert.Zero(t, backoffDelay(0, 2))
	assert.Zero(t, backoffDelay(time.Second, 0))
}

func TestSleepContext(t *testing.T) {
	t.Run("elapses", func(t *testing.T) {
		assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
	})

	t.Run("zero delay", func(t *testing.T) {
		assert.NoError(t, sleepContext(context.Background(), 0))
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		start := time.Now()
		assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
		assert.Less(t, time.Since(start), time.Second)
	})
}
