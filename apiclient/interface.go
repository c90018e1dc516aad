package apiclient

import (
	"context"
	"io"
	nethttp "net/http"
	"time"

	"github.com/iris-marketplace/iris-client/auth"
)

// Client defines the Iris REST client. Every verb shares one execution path:
// header and token injection, per-attempt timeout, retry with linear backoff,
// and normalization of every failure into *APIError.
//
// out receives the decoded JSON response; it may be nil to discard the body.
type Client interface {
	Get(ctx context.Context, path string, query Query, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
	UploadFile(ctx context.Context, path string, file File, fields map[string]any, out any) error
	Do(ctx context.Context, req *Request, out any) error
}

// Query holds query parameters. Nil values, including typed nil pointers, are
// dropped rather than sent as "null". Slice values produce repeated keys.
type Query map[string]any

// Request describes a single logical API call.
type Request struct {
	Method string
	// Path is relative to the client's base URL.
	Path    string
	Query   Query
	Headers map[string]string
	// Body is JSON-encoded. Ignored when Upload is set.
	Body   any
	Upload *Upload
}

// Upload is a multipart/form-data payload: one file plus extra string fields.
type Upload struct {
	File   File
	Fields map[string]any
}

// File is the file part of an upload.
type File struct {
	// FieldName defaults to "file".
	FieldName string
	Filename  string
	Content   io.Reader
}

// Stats contains call execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
	Attempts    int
}

// RequestInterceptor is called before each attempt is sent
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after a successful response is received
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the client configuration
type Config struct {
	// BaseURL is prefixed to every request path.
	BaseURL string
	// Timeout bounds each attempt separately; a retry gets a fresh window.
	Timeout time.Duration
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// RetryDelay is multiplied by the failed attempt number to get the backoff.
	RetryDelay           time.Duration
	TokenSource          auth.TokenSource
	DefaultHeaders       map[string]string
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// RequestIDHeader names the correlation header; empty disables it.
	RequestIDHeader string
	// EnableW3CTrace propagates or generates traceparent/tracestate headers
	EnableW3CTrace bool
}
