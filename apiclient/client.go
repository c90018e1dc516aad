package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/iris-marketplace/iris-client/auth"
	"github.com/iris-marketplace/iris-client/internal/tracking"
	"github.com/iris-marketplace/iris-client/logger"
	iristrace "github.com/iris-marketplace/iris-client/trace"
)

const (
	// DefaultBaseURL is the local development backend
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds a single attempt
	DefaultTimeout = 30 * time.Second

	// DefaultMaxAttempts is the total number of attempts per call
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the backoff unit between attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxPayloadLogBytes caps logged body bytes
	DefaultMaxPayloadLogBytes = 1024

	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"
)

// client implements the Client interface
type client struct {
	httpClient *nethttp.Client
	logger     logger.Logger
	config     *Config
	recorder   *tracking.Recorder
	filter     *logger.SensitiveDataFilter
	callCount  atomic.Int64
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a client for baseURL with default timeout and retry settings
func New(log logger.Logger, baseURL string, tokens auth.TokenSource) Client {
	return NewBuilder(log).WithBaseURL(baseURL).WithTokenSource(tokens).Build()
}

func defaultConfig() *Config {
	return &Config{
		BaseURL:            DefaultBaseURL,
		Timeout:            DefaultTimeout,
		MaxAttempts:        DefaultMaxAttempts,
		RetryDelay:         DefaultRetryDelay,
		TokenSource:        auth.None,
		DefaultHeaders:     map[string]string{headerContentType: contentTypeJSON},
		MaxPayloadLogBytes: DefaultMaxPayloadLogBytes,
		RequestIDHeader:    iristrace.HeaderXRequestID,
	}
}

// Builder provides a fluent interface for configuring the client
type Builder struct {
	config         *Config
	logger         logger.Logger
	httpClient     *nethttp.Client
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{config: defaultConfig(), logger: log}
}

// WithBaseURL sets the URL every request path is appended to
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout sets the per-attempt timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithRetries sets the total attempt budget and the backoff unit
func (b *Builder) WithRetries(maxAttempts int, retryDelay time.Duration) *Builder {
	b.config.MaxAttempts = maxAttempts
	b.config.RetryDelay = retryDelay
	return b
}

// WithTokenSource sets where bearer tokens come from
func (b *Builder) WithTokenSource(src auth.TokenSource) *Builder {
	if src == nil {
		src = auth.None
	}
	b.config.TokenSource = src
	return b
}

// WithDefaultHeader adds a header sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithPayloadLogging logs headers and up to maxBytes of each body at debug level
func (b *Builder) WithPayloadLogging(maxBytes int) *Builder {
	b.config.LogPayloads = true
	if maxBytes > 0 {
		b.config.MaxPayloadLogBytes = maxBytes
	}
	return b
}

// WithRequestIDHeader changes the correlation header; "" disables it
func (b *Builder) WithRequestIDHeader(header string) *Builder {
	b.config.RequestIDHeader = header
	return b
}

// WithW3CTrace enables traceparent/tracestate propagation
func (b *Builder) WithW3CTrace() *Builder {
	b.config.EnableW3CTrace = true
	return b
}

// WithHTTPClient supplies the underlying transport client
func (b *Builder) WithHTTPClient(c *nethttp.Client) *Builder {
	b.httpClient = c
	return b
}

// WithTracerProvider sets the provider used for per-attempt spans
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	return b
}

// WithMeterProvider sets the provider used for client metrics
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.meterProvider = mp
	return b
}

// Build creates the client with the configured options
func (b *Builder) Build() Client {
	cfg := *b.config
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.TokenSource == nil {
		cfg.TokenSource = auth.None
	}

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &nethttp.Client{}
	}
	log := b.logger
	if log == nil {
		log = logger.Nop()
	}

	return &client{
		httpClient: httpClient,
		logger:     log,
		config:     &cfg,
		recorder:   tracking.New(b.tracerProvider, b.meterProvider),
		filter:     logger.NewSensitiveDataFilter(nil),
		sleep:      sleepContext,
	}
}

// Get performs a GET request with optional query parameters
func (c *client) Get(ctx context.Context, path string, query Query, out any) error {
	return c.Do(ctx, &Request{Method: nethttp.MethodGet, Path: path, Query: query}, out)
}

// Post performs a POST request with a JSON body
func (c *client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, &Request{Method: nethttp.MethodPost, Path: path, Body: body}, out)
}

// Put performs a PUT request with a JSON body
func (c *client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, &Request{Method: nethttp.MethodPut, Path: path, Body: body}, out)
}

// Patch performs a PATCH request with a JSON body
func (c *client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, &Request{Method: nethttp.MethodPatch, Path: path, Body: body}, out)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, &Request{Method: nethttp.MethodDelete, Path: path}, out)
}

// UploadFile POSTs file and fields as multipart/form-data
func (c *client) UploadFile(ctx context.Context, path string, file File, fields map[string]any, out any) error {
	return c.Do(ctx, &Request{
		Method: nethttp.MethodPost,
		Path:   path,
		Upload: &Upload{File: file, Fields: fields},
	}, out)
}

// Do executes req, retrying transient failures, and decodes the JSON
// response into out.
func (c *client) Do(ctx context.Context, req *Request, out any) error {
	if req == nil {
		return newUnknownError("request cannot be nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := req.Method
	if method == "" {
		method = nethttp.MethodGet
	}

	target, err := buildURL(c.config.BaseURL, req.Path, req.Query)
	if err != nil {
		return c.fail(ctx, method, req.Path, newUnknownError("failed to build request URL", err))
	}

	body, err := c.encodeBody(req)
	if err != nil {
		return c.fail(ctx, method, req.Path, newUnknownError("failed to encode request body", err))
	}

	start := time.Now()
	callCount := c.callCount.Add(1)
	defer func() { logger.RecordAPICall(ctx, time.Since(start)) }()

	for attempt := 1; ; attempt++ {
		result := c.attempt(ctx, method, target, req, body, attempt)

		if result.err == nil {
			stats := Stats{ElapsedTime: time.Since(start), CallCount: callCount, Attempts: attempt}
			c.logResponse(method, req.Path, result.status, result.body, stats)
			if err := decodeInto(result.body, out); err != nil {
				return c.fail(ctx, method, req.Path, newUnknownError("failed to decode response body", err))
			}
			return nil
		}

		if !result.retry || attempt >= c.config.MaxAttempts {
			return c.fail(ctx, method, req.Path, result.err)
		}

		delay := backoffDelay(c.config.RetryDelay, attempt)
		c.logRetry(method, req.Path, attempt, delay, result.err)
		c.recorder.RecordRetry(ctx, method, retryReason(result.err))

		if err := c.sleep(ctx, delay); err != nil {
			return c.fail(ctx, method, req.Path, contextError(err))
		}
	}
}

// attemptResult is the outcome of a single attempt
type attemptResult struct {
	status int
	body   []byte
	err    *APIError
	retry  bool
}

// attempt performs one round trip under its own timeout.
func (c *client) attempt(ctx context.Context, method, target string, req *Request, body *payload, attempt int) attemptResult {
	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if c.config.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, c.config.Timeout)
	}
	defer cancel()

	attemptCtx, tracked := c.recorder.StartAttempt(attemptCtx, method, req.Path, attempt)

	httpReq, err := c.buildRequest(attemptCtx, method, target, req, body)
	if err != nil {
		tracked.End(ctx, 0, err.Code)
		return attemptResult{err: err}
	}

	c.logRequest(method, req.Path, attempt, httpReq, body)

	httpResp, sendErr := c.httpClient.Do(httpReq)
	if sendErr != nil {
		res := c.classifyTransportError(ctx, attemptCtx, sendErr)
		tracked.End(ctx, 0, res.err.Code)
		return res
	}
	defer httpResp.Body.Close()

	respBody, readErr := io.ReadAll(httpResp.Body)
	if readErr != nil {
		res := c.classifyTransportError(ctx, attemptCtx, readErr)
		tracked.End(ctx, httpResp.StatusCode, res.err.Code)
		return res
	}

	if !IsSuccessStatus(httpResp.StatusCode) {
		apiErr := newHTTPError(httpResp.StatusCode, decodeErrorBody(respBody))
		tracked.End(ctx, httpResp.StatusCode, strconv.Itoa(httpResp.StatusCode))
		return attemptResult{
			status: httpResp.StatusCode,
			body:   respBody,
			err:    apiErr,
			retry:  isRetryableStatus(httpResp.StatusCode),
		}
	}

	if err := c.runResponseInterceptors(attemptCtx, httpReq, httpResp); err != nil {
		apiErr := newUnknownError("response interceptor failed", err)
		tracked.End(ctx, httpResp.StatusCode, apiErr.Code)
		return attemptResult{status: httpResp.StatusCode, err: apiErr}
	}

	tracked.End(ctx, httpResp.StatusCode, "")
	return attemptResult{status: httpResp.StatusCode, body: respBody}
}

// classifyTransportError maps a failed round trip onto the error taxonomy.
// The caller's context wins over the attempt timer so cancellation is never retried.
func (c *client) classifyTransportError(parent, attemptCtx context.Context, err error) attemptResult {
	if parentErr := parent.Err(); parentErr != nil {
		return attemptResult{err: contextError(parentErr)}
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		return attemptResult{err: newTimeoutError(err)}
	}
	if isConnectivityError(err) {
		return attemptResult{err: newNetworkError(err), retry: true}
	}
	return attemptResult{err: newNetworkError(err)}
}

func contextError(err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) {
		return newTimeoutError(err)
	}
	return newCanceledError(err)
}

func (c *client) encodeBody(req *Request) (*payload, error) {
	if req.Upload != nil {
		return encodeMultipart(req.Upload)
	}
	return encodeJSON(req.Body)
}

// buildRequest constructs an *http.Request, applies headers and the bearer
// token, and runs request interceptors. The token is resolved on every call.
func (c *client) buildRequest(ctx context.Context, method, target string, req *Request, body *payload) (*nethttp.Request, *APIError) {
	httpReq, err := nethttp.NewRequestWithContext(ctx, method, target, body.reader())
	if err != nil {
		return nil, newUnknownError("failed to create HTTP request", err)
	}

	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.Upload != nil {
		// the multipart boundary must come from the encoder
		httpReq.Header.Set(headerContentType, body.contentType)
	}

	c.applyAuth(ctx, httpReq)
	c.applyTraceHeaders(ctx, httpReq)

	if err := c.runRequestInterceptors(ctx, httpReq); err != nil {
		return nil, newUnknownError("request interceptor failed", err)
	}
	return httpReq, nil
}

// applyAuth sets the bearer token when the token source yields one. Token
// lookup failures are logged and the request goes out unauthenticated.
func (c *client) applyAuth(ctx context.Context, httpReq *nethttp.Request) {
	token, err := c.config.TokenSource.Token(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to resolve auth token, sending unauthenticated request")
		return
	}
	if token != "" {
		httpReq.Header.Set(headerAuthorization, "Bearer "+token)
	}
}

func (c *client) applyTraceHeaders(ctx context.Context, httpReq *nethttp.Request) {
	if h := c.config.RequestIDHeader; h != "" && httpReq.Header.Get(h) == "" {
		httpReq.Header.Set(h, iristrace.EnsureRequestID(ctx))
	}
	if !c.config.EnableW3CTrace {
		return
	}
	if httpReq.Header.Get(iristrace.HeaderTraceParent) == "" {
		tp, ok := iristrace.ParentFromContext(ctx)
		if !ok {
			tp = iristrace.GenerateTraceParent()
		}
		httpReq.Header.Set(iristrace.HeaderTraceParent, tp)
	}
	if ts, ok := iristrace.StateFromContext(ctx); ok && httpReq.Header.Get(iristrace.HeaderTraceState) == "" {
		httpReq.Header.Set(iristrace.HeaderTraceState, ts)
	}
}

// runRequestInterceptors executes all request interceptors
func (c *client) runRequestInterceptors(ctx context.Context, req *nethttp.Request) error {
	for _, interceptor := range c.config.RequestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// runResponseInterceptors executes all response interceptors
func (c *client) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range c.config.ResponseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}

// fail records and logs a terminal failure, then returns it.
func (c *client) fail(ctx context.Context, method, path string, apiErr *APIError) error {
	c.recorder.RecordError(context.WithoutCancel(ctx), method, apiErr.Status, apiErr.Code)
	c.logger.Error().
		Str("method", method).
		Str("path", path).
		Int("status", apiErr.Status).
		Str("code", apiErr.Code).
		Err(apiErr).
		Msg("API request failed")
	return apiErr
}

func decodeInto(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}
	return json.Unmarshal(body, out)
}

func retryReason(err *APIError) string {
	if err.Status > 0 {
		return strconv.Itoa(err.Status)
	}
	return err.Code
}

// logRequest logs the outgoing attempt
func (c *client) logRequest(method, path string, attempt int, httpReq *nethttp.Request, body *payload) {
	event := c.logger.Debug().
		Str("direction", "outbound").
		Str("method", method).
		Str("path", path).
		Str("url", httpReq.URL.String()).
		Int("attempt", attempt)

	if c.config.LogPayloads {
		event = event.Interface("headers", httpReq.Header)
		if body != nil {
			event = event.Str("body", c.payloadForLog(body.data))
		}
	}
	event.Msg("API request")
}

// logResponse logs the successful response
func (c *client) logResponse(method, path string, status int, body []byte, stats Stats) {
	event := c.logger.Info().
		Str("direction", "inbound").
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Int("attempts", stats.Attempts).
		Dur("elapsed", stats.ElapsedTime).
		Int64("call_count", stats.CallCount)

	if c.config.LogPayloads && len(body) > 0 {
		event = event.Str("body", c.payloadForLog(body))
	}
	event.Msg("API response")
}

func (c *client) logRetry(method, path string, attempt int, delay time.Duration, apiErr *APIError) {
	c.logger.Warn().
		Str("method", method).
		Str("path", path).
		Int("attempt", attempt).
		Int("max_attempts", c.config.MaxAttempts).
		Int("status", apiErr.Status).
		Str("code", apiErr.Code).
		Dur("backoff", delay).
		Msg("Retrying API request")
}

// payloadForLog renders a body for payload logging. JSON bodies are masked
// field by field before truncation; other bodies are logged as text.
func (c *client) payloadForLog(data []byte) string {
	if !json.Valid(data) {
		return c.truncate(data)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return logger.DefaultMaskValue
	}
	masked, err := json.Marshal(c.filter.FilterValue("body", v))
	if err != nil {
		return logger.DefaultMaskValue
	}
	return c.truncate(masked)
}

func (c *client) truncate(data []byte) string {
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 || len(data) <= limit {
		return string(data)
	}
	return fmt.Sprintf("%s...(truncated %d bytes)", data[:limit], len(data)-limit)
}
