package restoapi

import (
	"context"
	"strings"
)

type bearerKey struct{}

// WithBearer stores the caller's credential for outgoing resto API calls.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, strings.TrimSpace(token))
}

// BearerFrom extracts the token from an Authorization header value.
func BearerFrom(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// ContextTokens reads the credential placed by WithBearer. Calls made
// outside a request, such as catalog reloads, use Fallback when set.
type ContextTokens struct {
	Fallback TokenSource
}

func (t ContextTokens) Token(ctx context.Context) string {
	if token, _ := ctx.Value(bearerKey{}).(string); token != "" {
		return token
	}
	if t.Fallback != nil {
		return t.Fallback.Token(ctx)
	}
	return ""
}

// StaticToken always returns the same credential, e.g. a service account key.
type StaticToken string

func (t StaticToken) Token(context.Context) string {
	return string(t)
}
