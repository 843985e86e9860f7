package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"irisai/config"
	"irisai/core"
)

// EmptyAnswer is returned whenever no context was retrieved.
const EmptyAnswer = "I haven't seen anything related to that in the video yet."

// Synthesizer converts a ranked context set into an answer string. No side
// effects: implementations may call out to a model but never touch the index.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, items []core.ContextItem) string
}

// NewSynthesizer picks the synthesizer configured by cfg.Synthesizer. The
// template is the default; LLM synthesis needs a configured API.
func NewSynthesizer(cfg *config.Config) Synthesizer {
	if strings.EqualFold(cfg.Synthesizer, "llm") && cfg.HasValidAPI() {
		return NewLLMSynthesizer(cfg)
	}
	return TemplateSynthesizer{}
}

// TemplateSynthesizer formats the top-ranked moment into a fixed sentence.
// Deterministic given identical context, which the tests rely on.
type TemplateSynthesizer struct{}

func (TemplateSynthesizer) Synthesize(_ context.Context, _ string, items []core.ContextItem) string {
	return templateAnswer(items)
}

func templateAnswer(items []core.ContextItem) string {
	if len(items) == 0 {
		return EmptyAnswer
	}
	top := items[0]
	answer := fmt.Sprintf("At %s, I saw: %s.", core.ClockTime(top.Timestamp), top.Description)
	if len(items) > 1 {
		answer += fmt.Sprintf(" I also found %d other relevant moments in the video.", len(items)-1)
	}
	return answer
}

// LLMSynthesizer asks a chat model to write the answer from the retrieved
// context, falling back to the template when the call fails.
type LLMSynthesizer struct {
	client *openai.Client
	model  string
}

func NewLLMSynthesizer(cfg *config.Config) *LLMSynthesizer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &LLMSynthesizer{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.ChatModel,
	}
}

func (s *LLMSynthesizer) Synthesize(ctx context.Context, question string, items []core.ContextItem) string {
	if len(items) == 0 {
		return EmptyAnswer
	}

	parts := make([]string, 0, len(items))
	for i, it := range items {
		parts = append(parts, fmt.Sprintf("Moment %d [%s]: %s", i+1, core.ClockTime(it.Timestamp), it.Description))
	}
	prompt := fmt.Sprintf(`You are a video content assistant. Based on the following moments retrieved from the video, answer the user's question.

Retrieved moments:
%s

Question: %s

Answer concisely and mention the relevant clock times. If the moments do not cover the question, say so.`,
		strings.Join(parts, "\n"), question)

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   500,
		Temperature: 0.3,
	}
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Printf("Warning: LLM synthesis failed (%v), falling back to template", err)
		return templateAnswer(items)
	}
	if len(resp.Choices) == 0 {
		return templateAnswer(items)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
