// Package analyzer turns raw frame bytes into a text description.
package analyzer

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"irisai/config"
)

// FrameAnalyzer describes a single video frame. An empty description with a
// nil error means the frame carried nothing worth indexing and should be
// skipped.
type FrameAnalyzer interface {
	Describe(ctx context.Context, frame []byte, timestamp int64) (string, error)
}

// NewAnalyzer picks the analyzer configured by cfg.Analyzer, falling back to
// the stub when the vision analyzer has no API to talk to.
func NewAnalyzer(cfg *config.Config) FrameAnalyzer {
	if strings.EqualFold(cfg.Analyzer, "vision") && cfg.HasValidAPI() {
		return NewVisionAnalyzer(cfg)
	}
	return NewStubAnalyzer()
}

// ---------------- Stub analyzer ----------------

// stubDescriptions is the fixed table the stub cycles through, keyed by
// (timestamp / 5) mod table size. Kept stable because existing indexes were
// built from it.
var stubDescriptions = []string{
	"Person coding on a laptop with multiple terminal windows open",
	"Screen showing a React component with TypeScript code",
	"Terminal displaying git commit messages and logs",
	"Browser window with localhost development server running",
	"Code editor with Python FastAPI application",
	"Database schema diagram on whiteboard",
	"Video conference call with team members discussing architecture",
}

// StubAnalyzer simulates frame analysis with a deterministic description
// table. It stands in for a vision model during development and tests.
type StubAnalyzer struct {
	descriptions []string
}

func NewStubAnalyzer() *StubAnalyzer {
	return &StubAnalyzer{descriptions: stubDescriptions}
}

// Descriptions returns the stub's table.
func (a *StubAnalyzer) Descriptions() []string { return a.descriptions }

func (a *StubAnalyzer) Describe(_ context.Context, _ []byte, timestamp int64) (string, error) {
	if len(a.descriptions) == 0 {
		return "", nil
	}
	idx := (timestamp / 5) % int64(len(a.descriptions))
	if idx < 0 {
		idx += int64(len(a.descriptions))
	}
	return a.descriptions[idx], nil
}

// ---------------- Vision model analyzer ----------------

// VisionAnalyzer asks a vision-capable chat model for a one-sentence
// description of the frame.
type VisionAnalyzer struct {
	client *openai.Client
	model  string
}

func NewVisionAnalyzer(cfg *config.Config) *VisionAnalyzer {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &VisionAnalyzer{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.VisionModel,
	}
}

func (a *VisionAnalyzer) Describe(ctx context.Context, frame []byte, timestamp int64) (string, error) {
	if len(frame) == 0 {
		return "", nil
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame)
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: "Describe what is happening in this video frame in one short sentence.",
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailLow},
					},
				},
			},
		},
		MaxTokens:   120,
		Temperature: 0.2,
	}
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision API failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
