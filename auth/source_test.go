package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type failingOAuth2Source struct{}

func (failingOAuth2Source) Token() (*oauth2.Token, error) {
	return nil, errors.New("idp unavailable")
}

func TestStaticTokenAndNone(t *testing.T) {
	tok, err := StaticToken("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	tok, err = None.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestTokenFunc(t *testing.T) {
	calls := 0
	src := TokenFunc(func(context.Context) (string, error) {
		calls++
		return "fresh", nil
	})

	for range 3 {
		tok, err := src.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "fresh", tok)
	}
	assert.Equal(t, 3, calls)
}

func TestOAuth2Source(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		src := NewOAuth2Source(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: "idp-token",
			Expiry:      time.Now().Add(time.Hour),
		}))
		tok, err := src.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "idp-token", tok)
	})

	t.Run("expired token is absent", func(t *testing.T) {
		src := NewOAuth2Source(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: "old",
			Expiry:      time.Now().Add(-time.Hour),
		}))
		tok, err := src.Token(context.Background())
		require.NoError(t, err)
		assert.Empty(t, tok)
	})

	t.Run("provider error is wrapped", func(t *testing.T) {
		_, err := NewOAuth2Source(failingOAuth2Source{}).Token(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "idp unavailable")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewOAuth2Source(failingOAuth2Source{}).Token(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("nil source", func(t *testing.T) {
		_, err := NewOAuth2Source(nil).Token(context.Background())
		assert.Error(t, err)
	})
}
