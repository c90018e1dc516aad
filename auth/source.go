// Package auth provides the token sources the API client consults before every
// request attempt. A source answers one question: which bearer token, if any,
// should the next request carry.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenSource resolves the current bearer token.
// An empty token with a nil error means the request goes out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts an ordinary function to a TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f(ctx).
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken always yields the same token.
type StaticToken string

// Token returns the static token.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// None never yields a token.
var None TokenSource = StaticToken("")

// OAuth2Source adapts an oauth2.TokenSource, for backends fronted by a real
// identity provider. Invalid or expired tokens are reported as absent.
type OAuth2Source struct {
	src oauth2.TokenSource
}

// NewOAuth2Source wraps src. Callers usually pass an oauth2.ReuseTokenSource so
// refreshes are shared across requests.
func NewOAuth2Source(src oauth2.TokenSource) *OAuth2Source {
	return &OAuth2Source{src: src}
}

// Token fetches a token from the wrapped oauth2 source.
func (o *OAuth2Source) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if o.src == nil {
		return "", errors.New("oauth2 token source is nil")
	}
	tok, err := o.src.Token()
	if err != nil {
		return "", fmt.Errorf("oauth2 token: %w", err)
	}
	if !tok.Valid() {
		return "", nil
	}
	return tok.AccessToken, nil
}
