// Package llm provides the free-form reply backend for utterances the
// scheduling dialogue does not handle.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/spec-kit/voice-scheduler/internal/domain"
)

const (
	defaultModel      = "gpt-3.5-turbo"
	defaultMaxHistory = 20
	maxReplyTokens    = 150
)

// Config configures the OpenAI replier.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxHistory int
}

// OpenAIReplier answers free-form questions with a chat completion.
type OpenAIReplier struct {
	client     oai.Client
	model      string
	timeout    time.Duration
	maxHistory int
	system     string
}

// NewOpenAIReplier builds a replier whose system prompt describes the store
// and its staff.
func NewOpenAIReplier(cfg Config, info domain.StoreInfo, staffNames []string, opts ...option.RequestOption) (*OpenAIReplier, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm: api key must not be empty")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIReplier{
		client:     oai.NewClient(reqOpts...),
		model:      model,
		timeout:    cfg.Timeout,
		maxHistory: maxHistory,
		system:     systemPrompt(info, staffNames),
	}, nil
}

// Reply implements service.Replier.
func (r *OpenAIReplier) Reply(ctx context.Context, history []domain.Turn, utterance string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	resp, err := r.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model:               shared.ChatModel(r.model),
		Messages:            r.messages(history, utterance),
		MaxCompletionTokens: oai.Int(maxReplyTokens),
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: empty choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (r *OpenAIReplier) messages(history []domain.Turn, utterance string) []oai.ChatCompletionMessageParamUnion {
	if len(history) > r.maxHistory {
		history = history[len(history)-r.maxHistory:]
	}
	out := make([]oai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	out = append(out, oai.SystemMessage(r.system))
	for _, turn := range history {
		switch turn.Speaker {
		case domain.SpeakerAssistant:
			out = append(out, oai.AssistantMessage(turn.Text))
		default:
			out = append(out, oai.UserMessage(turn.Text))
		}
	}
	return append(out, oai.UserMessage(utterance))
}

func systemPrompt(info domain.StoreInfo, staffNames []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the voice assistant for %s.", info.Name)
	if info.Description != "" {
		fmt.Fprintf(&b, " About the store: %s", info.Description)
	}
	if len(staffNames) > 0 {
		fmt.Fprintf(&b, " Callers can book meetings with: %s.", strings.Join(staffNames, ", "))
	}
	b.WriteString(" Answer in one or two short sentences suitable for speech." +
		" If the caller wants an appointment, ask them to say that they want to schedule a meeting.")
	return b.String()
}
