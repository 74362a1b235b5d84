package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meligy/internal/config"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// Sampling parameters for conversational replies.
const (
	temperature     = 0.8
	topK            = 40
	topP            = 0.95
	maxOutputTokens = 1024
)

// Completer turns a fully rendered prompt into model text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ContentGenerator is the subset of *genai.Models used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// SafetySettings blocks medium and above in the four standard harm categories.
func SafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	out := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		out = append(out, &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove})
	}
	return out
}

// GeminiCompleter calls generateContent and reads the first candidate's first part.
type GeminiCompleter struct {
	gen   ContentGenerator
	model string
}

func NewGeminiCompleter(gen ContentGenerator, model string) *GeminiCompleter {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiCompleter{gen: gen, model: model}
}

func (g *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](temperature),
		TopK:            genai.Ptr[float32](topK),
		TopP:            genai.Ptr[float32](topP),
		MaxOutputTokens: maxOutputTokens,
		SafetySettings:  SafetySettings(),
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := g.gen.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 || resp.Candidates[0].Content.Parts[0] == nil {
		return "", errors.New("no response generated")
	}
	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}

// EinoCompleter drives an OpenAI-compatible or Claude chat model through eino.
type EinoCompleter struct {
	chat model.BaseChatModel
}

func NewEinoCompleter(chat model.BaseChatModel) *EinoCompleter {
	return &EinoCompleter{chat: chat}
}

// NewProviderCompleter builds the eino chat model for provider ("openai" or "claude").
func NewProviderCompleter(ctx context.Context, provider string, provCfg config.ProviderConfig) (*EinoCompleter, error) {
	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   provCfg.Model,
			APIKey:  provCfg.APIKey,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     provCfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: maxOutputTokens,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	return NewEinoCompleter(chatModel), nil
}

func (e *EinoCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := e.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)},
		model.WithTemperature(temperature),
		model.WithTopP(topP),
		model.WithMaxTokens(maxOutputTokens),
	)
	if err != nil {
		return "", fmt.Errorf("chat generate: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", errors.New("no response generated")
	}
	return strings.TrimSpace(msg.Content), nil
}
