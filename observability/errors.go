package observability

import "errors"

// ErrNilConfig is returned when NewProvider is called with a nil Config.
var ErrNilConfig = errors.New("observability: config is nil")

// ErrMissingServiceName is returned when observability is enabled but no service name is configured.
var ErrMissingServiceName = errors.New("observability: service name is required when observability is enabled")

// ErrInvalidProtocol is returned when the protocol is not "stdout", "http" or "grpc".
var ErrInvalidProtocol = errors.New("observability: protocol must be one of 'stdout', 'http' or 'grpc'")
