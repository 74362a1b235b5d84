package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"meligy/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	resp      *genai.GenerateContentResponse
	err       error
	gotModel  string
	gotConfig *genai.GenerateContentConfig
	gotPrompt string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel = model
	f.gotConfig = cfg
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.gotPrompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

type completerFunc func(ctx context.Context, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestGeminiCompleterSamplingAndTrim(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("  Ahlan! 👋  \n")}
	c := NewGeminiCompleter(gen, "")

	out, err := c.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Ahlan! 👋", out)
	assert.Equal(t, "gemini-2.0-flash", gen.gotModel)
	require.NotNil(t, gen.gotConfig.Temperature)
	assert.InDelta(t, 0.8, *gen.gotConfig.Temperature, 1e-6)
	assert.InDelta(t, 40, *gen.gotConfig.TopK, 1e-6)
	assert.InDelta(t, 0.95, *gen.gotConfig.TopP, 1e-6)
	assert.EqualValues(t, 1024, gen.gotConfig.MaxOutputTokens)
	assert.Len(t, gen.gotConfig.SafetySettings, 4)
}

func TestGeminiCompleterEmptyCandidates(t *testing.T) {
	c := NewGeminiCompleter(&fakeGenerator{resp: &genai.GenerateContentResponse{}}, "m")
	_, err := c.Complete(context.Background(), "hi")
	require.Error(t, err)
}

func TestBuildPromptUsesLastSixTurns(t *testing.T) {
	var history []*models.ChatMessage
	for i := 0; i < 8; i++ {
		sender := models.SenderUser
		if i%2 == 1 {
			sender = models.SenderAssistant
		}
		history = append(history, &models.ChatMessage{Sender: sender, Content: string(rune('a' + i))})
	}
	p := BuildPrompt("what now?", history, "User preferences: Language: en, Style: casual.")

	assert.True(t, strings.HasPrefix(p, "You are Meligy"))
	assert.NotContains(t, p, "User: a\n")
	assert.NotContains(t, p, "Meligy: b\n")
	assert.Contains(t, p, "User: c\nMeligy: d\n")
	assert.Contains(t, p, "Meligy: h\n")
	assert.Contains(t, p, "About this user: User preferences")
	assert.True(t, strings.HasSuffix(p, "\nUser: what now?\nMeligy:"))
}

func TestRespondFallsBackOnError(t *testing.T) {
	s := NewService(completerFunc(func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded")
	}), nil)
	got := s.Respond(context.Background(), "عندي مشكلة في البرنامج", nil)
	assert.Equal(t, fallbackReplies[true][Frustrated], got)
}

func TestRespondRecoversFromPanic(t *testing.T) {
	s := NewService(completerFunc(func(context.Context, string) (string, error) {
		panic("boom")
	}), nil)
	assert.Equal(t, fallbackReplies[false][Neutral], s.Respond(context.Background(), "ok then", nil))
}

func TestRespondPassesProfileContext(t *testing.T) {
	var seen string
	s := NewService(completerFunc(func(_ context.Context, prompt string) (string, error) {
		seen = prompt
		return "done", nil
	}), nil)
	ctx := WithProfileContext(context.Background(), "Personal info: name: Sara.")
	assert.Equal(t, "done", s.Respond(ctx, "hello", nil))
	assert.Contains(t, seen, "About this user: Personal info: name: Sara.")
}

func TestFallbackLanguageAndEmotion(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"مش شغال خالص", fallbackReplies[true][Frustrated]},
		{"رائع جدا", fallbackReplies[true][Excited]},
		{"مش فاهم", fallbackReplies[true][Confused]},
		{"صباح الخير", fallbackReplies[true][Neutral]},
		{"this is broken, I need help", fallbackReplies[false][Frustrated]},
		{"this is amazing", fallbackReplies[false][Excited]},
		{"I am confused", fallbackReplies[false][Confused]},
		{"Hello there", fallbackReplies[false][Neutral]},
		// frustration wins over excitement
		{"great, another error", fallbackReplies[false][Frustrated]},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Fallback(tc.input), "input %q", tc.input)
	}
}

func TestNilCompleterUsesFallback(t *testing.T) {
	s := NewService(nil, nil)
	assert.Equal(t, fallbackReplies[false][Excited], s.Respond(context.Background(), "wow!!", nil))
}
