package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/voice-scheduler/internal/domain"
)

var testStore = domain.StoreInfo{Name: "Acme", Description: "We sell anvils."}

func TestNewOpenAIReplierRequiresKey(t *testing.T) {
	_, err := NewOpenAIReplier(Config{}, testStore, nil)
	assert.Error(t, err)
}

func TestMessagesConversion(t *testing.T) {
	r, err := NewOpenAIReplier(Config{APIKey: "sk-test", MaxHistory: 2}, testStore, []string{"Jackie"})
	require.NoError(t, err)

	history := []domain.Turn{
		{Speaker: domain.SpeakerCaller, Text: "hi"},
		{Speaker: domain.SpeakerAssistant, Text: "hello"},
		{Speaker: domain.SpeakerCaller, Text: "what do you sell"},
	}
	msgs := r.messages(history, "and on weekends?")
	require.Len(t, msgs, 4)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfAssistant)
	assert.NotNil(t, msgs[2].OfUser)
	assert.NotNil(t, msgs[3].OfUser)

	assert.Contains(t, r.system, "Acme")
	assert.Contains(t, r.system, "We sell anvils.")
	assert.Contains(t, r.system, "Jackie")
}

func TestReplyCallsChatCompletions(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.HasSuffix(req.URL.Path, "/chat/completions") {
			http.NotFound(w, req)
			return
		}
		_ = json.NewDecoder(req.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-3.5-turbo",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": " We open at nine. "}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	r, err := NewOpenAIReplier(Config{APIKey: "sk-test", BaseURL: srv.URL}, testStore, nil, option.WithMaxRetries(0))
	require.NoError(t, err)

	reply, err := r.Reply(context.Background(), []domain.Turn{{Speaker: domain.SpeakerCaller, Text: "hi"}}, "when do you open?")
	require.NoError(t, err)
	assert.Equal(t, "We open at nine.", reply)

	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "when do you open?", got.Messages[2].Content)
}

func TestReplyPropagatesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	r, err := NewOpenAIReplier(Config{APIKey: "sk-test", BaseURL: srv.URL}, testStore, nil, option.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = r.Reply(context.Background(), nil, "hello")
	assert.Error(t, err)
}
