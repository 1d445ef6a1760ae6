// Package llm adapts hosted language models to assistant.Model.
package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/AaronL1011/mechmate-sub000/internal/assistant"
)

// GeminiModel calls the Gemini API with the function catalog as tools.
type GeminiModel struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiModel(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: model, logger: logger}, nil
}

func (g *GeminiModel) Complete(ctx context.Context, messages []assistant.Message, functions []assistant.FunctionSpec) (assistant.Reply, error) {
	system, contents := toContents(messages)
	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr[float32](0.2),
		Tools:             []*genai.Tool{{FunctionDeclarations: toDeclarations(functions)}},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return assistant.Reply{}, fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return assistant.Reply{}, fmt.Errorf("gemini returned no candidates")
	}
	if u := resp.UsageMetadata; u != nil {
		g.logger.Debug("gemini usage",
			zap.Int32("prompt_tokens", u.PromptTokenCount),
			zap.Int32("output_tokens", u.CandidatesTokenCount))
	}
	return fromResponse(resp), nil
}

func fromResponse(resp *genai.GenerateContentResponse) assistant.Reply {
	reply := assistant.Reply{Text: resp.Text()}
	for _, fc := range resp.FunctionCalls() {
		reply.ToolCalls = append(reply.ToolCalls, assistant.RawToolCall{Name: fc.Name, Arguments: fc.Args})
	}
	return reply
}

// toContents splits off the system prompt and groups consecutive tool
// results into one user turn, as Gemini expects.
func toContents(messages []assistant.Message) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	var contents []*genai.Content
	var pendingResults []*genai.Part

	flush := func() {
		if len(pendingResults) > 0 {
			contents = append(contents, genai.NewContentFromParts(pendingResults, genai.RoleUser))
			pendingResults = nil
		}
	}

	for _, m := range messages {
		switch m.Role {
		case assistant.RoleSystem:
			system = genai.NewContentFromText(m.Text, genai.RoleUser)
		case assistant.RoleUser:
			flush()
			contents = append(contents, genai.NewContentFromText(m.Text, genai.RoleUser))
		case assistant.RoleModel:
			flush()
			var parts []*genai.Part
			if strings.TrimSpace(m.Text) != "" {
				parts = append(parts, genai.NewPartFromText(m.Text))
			}
			for _, c := range m.Calls {
				parts = append(parts, genai.NewPartFromFunctionCall(c.Name, c.Arguments))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case assistant.RoleTool:
			pendingResults = append(pendingResults, genai.NewPartFromFunctionResponse(m.Name, m.Result))
		}
	}
	flush()
	return system, contents
}
