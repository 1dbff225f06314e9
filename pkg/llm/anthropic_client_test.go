package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func messagesServer(t *testing.T, content []map[string]any, seen func(r *http.Request, req map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if seen != nil {
			seen(r, req)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-3-5-haiku-latest",
			"content":     content,
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 20, "output_tokens": 6},
		})
	}))
}

func TestAnthropicClient_GenerateResponse(t *testing.T) {
	conversationID := uuid.New()
	var gotKey, gotRequestID string
	var gotReq map[string]any

	server := messagesServer(t, []map[string]any{{"type": "text", "text": "CALCULATE(SUM('T'[x]))"}}, func(r *http.Request, req map[string]any) {
		gotKey = r.Header.Get("X-Api-Key")
		gotRequestID = r.Header.Get(requestIDHeader)
		gotReq = req
	})
	defer server.Close()

	client, err := NewAnthropicClient(&Config{
		Endpoint: server.URL + "/v1",
		Model:    "claude-3-5-haiku-latest",
		APIKey:   "anthropic-key",
	}, zap.NewNop())
	require.NoError(t, err)

	ctx := WithConversationID(context.Background(), conversationID)
	result, err := client.GenerateResponse(ctx, "convert", "system prompt", 0)
	require.NoError(t, err)

	assert.Equal(t, "CALCULATE(SUM('T'[x]))", result.Content)
	assert.Equal(t, 26, result.TotalTokens)
	assert.Equal(t, "anthropic-key", gotKey)
	assert.Equal(t, conversationID.String(), gotRequestID)
	assert.Equal(t, "claude-3-5-haiku-latest", gotReq["model"])
	assert.Equal(t, "system prompt", gotReq["system"])
	assert.EqualValues(t, defaultAnthropicMaxTokens, gotReq["max_tokens"])
}

func TestAnthropicClient_EmptyContent(t *testing.T) {
	server := messagesServer(t, []map[string]any{}, nil)
	defer server.Close()

	client, err := NewAnthropicClient(&Config{Endpoint: server.URL + "/v1", Model: "m", APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), "p", "", 0)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewAnthropicClient_Validation(t *testing.T) {
	_, err := NewAnthropicClient(&Config{Model: "m"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewAnthropicClient(&Config{APIKey: "k"}, zap.NewNop())
	assert.Error(t, err)
}
