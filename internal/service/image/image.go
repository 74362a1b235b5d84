// Package image produces an image URL for a prompt by trying a generative
// model first and two public URL services after it.
package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"meligy/internal/models"
	"meligy/internal/service/ai"
)

// Strategy is one fallback tier. It returns an image URL or an error.
type Strategy interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Gemini asks a multimodal model for inline image data and returns it as a
// data URI.
type Gemini struct {
	gen   ai.ContentGenerator
	model string
}

func NewGemini(gen ai.ContentGenerator, model string) *Gemini {
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}
	return &Gemini{gen: gen, model: model}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g.gen == nil {
		return "", errors.New("gemini client not configured")
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
		Temperature:        genai.Ptr[float32](0.7),
		MaxOutputTokens:    1024,
		SafetySettings:     ai.SafetySettings(),
	}
	contents := []*genai.Content{genai.NewContentFromText("Create a high-quality image: "+prompt, genai.RoleUser)}
	resp, err := g.gen.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini image: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no image data in response")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil {
			continue
		}
		blob := part.InlineData
		if strings.HasPrefix(blob.MIMEType, "image/") && len(blob.Data) > 0 {
			return "data:" + blob.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(blob.Data), nil
		}
	}
	return "", errors.New("no image data in response")
}

// Pollinations builds a text-to-image URL and checks it answers a HEAD request.
type Pollinations struct {
	BaseURL string
	Client  *http.Client
}

func NewPollinations(baseURL string, client *http.Client) *Pollinations {
	if baseURL == "" {
		baseURL = "https://image.pollinations.ai/prompt/"
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Pollinations{BaseURL: baseURL, Client: client}
}

func (p *Pollinations) Name() string { return "pollinations" }

func (p *Pollinations) URL(prompt string) string {
	return p.BaseURL + url.PathEscape(prompt) + "?width=1024&height=1024&model=flux&enhance=true&nologo=true"
}

func (p *Pollinations) Generate(ctx context.Context, prompt string) (string, error) {
	target := p.URL(prompt)
	if err := checkImage(ctx, p.Client, target); err != nil {
		return "", fmt.Errorf("pollinations: %w", err)
	}
	return target, nil
}

// ValidateURL reports whether target answers HEAD with a 2xx status and an
// image content type.
func ValidateURL(ctx context.Context, client *http.Client, target string) bool {
	return checkImage(ctx, client, target) == nil
}

func checkImage(ctx context.Context, client *http.Client, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.New(resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("unexpected content type %q", ct)
	}
	return nil
}

// Picsum returns a deterministic placeholder keyed by the prompt seed. It
// makes no network call.
type Picsum struct {
	BaseURL string
}

func (p Picsum) Name() string { return "picsum" }

func (p Picsum) Generate(_ context.Context, prompt string) (string, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://picsum.photos/seed/"
	}
	seed := Seed(prompt)
	if seed == "" {
		h := fnv.New32a()
		h.Write([]byte(prompt))
		seed = fmt.Sprintf("%08x", h.Sum32())
	}
	return base + url.PathEscape(seed) + "/1024/1024", nil
}

const (
	errAllFailed = "Unable to generate image at the moment. Please try again later."
	variationGap = time.Second
)

var variationModifiers = []string{
	"photorealistic style, professional photography",
	"digital art style, detailed illustration",
	"artistic painting style, fine art",
	"modern design style, clean composition",
	"creative interpretation, unique perspective",
}

var presentationPhrases = map[Style]string{
	StyleProfessional: "professional presentation style, clean design, business appropriate",
	StyleCreative:     "creative and engaging, visually striking, artistic interpretation",
	StyleEducational:  "educational illustration, clear and informative, learning-focused",
	StyleTechnical:    "technical diagram style, precise and detailed, engineering approach",
}

// Service walks its strategies in order and returns the first success.
type Service struct {
	strategies []Strategy
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewService(logger *zap.Logger, strategies ...Strategy) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{strategies: strategies, logger: logger, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Generate runs the prompt through language hinting and optimization, then
// each strategy once. CorrectedPrompt is set only when the optimizer changed
// something.
func (s *Service) Generate(ctx context.Context, prompt string) models.ImageResult {
	optimized, corrections := Optimize(AddLanguageHint(prompt))
	corrected := ""
	if len(corrections) > 0 {
		corrected = optimized
	}
	for _, st := range s.strategies {
		imageURL, err := s.try(ctx, st, optimized)
		if err != nil {
			s.logger.Info("image strategy failed", zap.String("strategy", st.Name()), zap.Error(err))
			continue
		}
		return models.ImageResult{Success: true, ImageURL: imageURL, CorrectedPrompt: corrected}
	}
	return models.ImageResult{Error: errAllFailed}
}

func (s *Service) try(ctx context.Context, st Strategy, prompt string) (u string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()
	return st.Generate(ctx, prompt)
}

// GeneratePresentation wraps topic with a style bundle for the given setting.
func (s *Service) GeneratePresentation(ctx context.Context, topic, setting string, style Style) models.ImageResult {
	phrase, ok := presentationPhrases[style]
	if !ok {
		phrase = presentationPhrases[StyleProfessional]
	}
	return s.Generate(ctx, fmt.Sprintf("%s for %s, %s, high quality, suitable for presentations", topic, setting, phrase))
}

// GenerateFor dispatches to GeneratePresentation when req carries a context.
func (s *Service) GenerateFor(ctx context.Context, req Request) models.ImageResult {
	if req.Context != "" {
		return s.GeneratePresentation(ctx, req.Prompt, req.Context, req.Style)
	}
	return s.Generate(ctx, req.Prompt)
}

// GenerateVariations produces up to five styled variants one after another,
// pausing between requests.
func (s *Service) GenerateVariations(ctx context.Context, prompt string, count int) []models.ImageResult {
	if count <= 0 {
		count = 3
	}
	if count > len(variationModifiers) {
		count = len(variationModifiers)
	}
	base, _ := Optimize(prompt)
	out := make([]models.ImageResult, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, s.Generate(ctx, base+", "+variationModifiers[i]))
		if i < count-1 {
			if err := s.sleep(ctx, variationGap); err != nil {
				break
			}
		}
	}
	return out
}
