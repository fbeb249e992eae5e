package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/ortelius/cve-triage/util"
)

const briefSystemPrompt = "You are a vulnerability analyst. Write a two sentence brief for a remediation ticket: " +
	"what is affected and what the owner should do. Plain text, no markdown."

// OpenAIBriefs writes briefs with an OpenAI chat completion model
type OpenAIBriefs struct {
	client openai.Client
	model  string
}

// NewOpenAIBriefs creates a brief writer. Extra request options (base URL, HTTP
// client) are passed through to the OpenAI client.
func NewOpenAIBriefs(apiKey, model string, opts ...option.RequestOption) *OpenAIBriefs {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIBriefs{client: openai.NewClient(opts...), model: model}
}

// Brief asks the model for a short brief of f
func (b *OpenAIBriefs) Brief(ctx context.Context, f Facts) (string, error) {
	prompt := fmt.Sprintf("CVE: %s\nCVSS: %s\nEPSS: %s\nKnown exploited: %t\nDescription: %s\nPatch: %s",
		f.CveID, f.CVSS, f.EPSS, f.KEV, f.Summary, util.FirstNonEmpty(f.PatchURL, "none listed"))

	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(briefSystemPrompt),
			openai.UserMessage(prompt),
		},
		Model:               openai.ChatModel(b.model),
		MaxCompletionTokens: openai.Int(200),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
