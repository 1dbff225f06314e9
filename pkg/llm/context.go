package llm

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const conversationIDKey contextKey = "llm_conversation_id"

// requestIDHeader carries the conversation ID on outbound model requests so
// calls can be correlated with provider-side logs.
const requestIDHeader = "X-Request-Id"

// WithConversationID returns a context carrying the conversation ID.
func WithConversationID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, conversationIDKey, id)
}

// GetConversationID returns the conversation ID from ctx, or nil if absent.
func GetConversationID(ctx context.Context) *uuid.UUID {
	if id, ok := ctx.Value(conversationIDKey).(uuid.UUID); ok {
		return &id
	}
	return nil
}

// contextAwareTransport sets X-Request-Id from the request context.
type contextAwareTransport struct {
	base http.RoundTripper
}

func (t *contextAwareTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	id := GetConversationID(req.Context())
	if id == nil {
		return t.base.RoundTrip(req)
	}
	// RoundTrippers must not modify the caller's request
	clone := req.Clone(req.Context())
	clone.Header.Set(requestIDHeader, id.String())
	return t.base.RoundTrip(clone)
}

func newHTTPClient() *http.Client {
	return &http.Client{Transport: &contextAwareTransport{base: http.DefaultTransport}}
}
