// Package apiclient is the resilient REST client the Iris marketplace uses to
// talk to its backend.
//
// Every call goes through one execution path:
//   - Headers: Content-Type: application/json plus configured defaults, and
//     Authorization: Bearer <token> when the TokenSource yields a token. The
//     token is resolved again for every attempt, retries included.
//   - Timeout: each attempt runs under its own deadline (30s by default).
//     A retry starts a fresh window.
//   - Retries: at most MaxAttempts attempts in total (3 by default) on
//     HTTP 5xx, HTTP 429 and transport connectivity failures.
//   - 4xx responses other than 429 and timeouts are terminal.
//
// Backoff Strategy
//   - Linear: the wait after failed attempt n is n × RetryDelay (1s, then 2s).
//   - Waits honour the caller's context.
//
// Errors
//   - Every failure is an *APIError carrying Message, Status, Code and Details.
//     Timeouts are 408/TIMEOUT_ERROR, connectivity failures 0/NETWORK_ERROR,
//     caller cancellation 0/CANCELED_ERROR, local encode/decode failures
//     0/UNKNOWN_ERROR.
//
// Notes
//   - Request bodies are encoded once and replayed on every attempt.
//   - Interceptor errors are not retried.
package apiclient
