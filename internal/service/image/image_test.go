package image

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	resp  *genai.GenerateContentResponse
	err   error
	calls int
	cfg   *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.cfg = cfg
	return f.resp, f.err
}

func headServer(t *testing.T, status int) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestGenerateFallsThroughToPicsum(t *testing.T) {
	srv, hits := headServer(t, http.StatusServiceUnavailable)
	gen := &fakeGenerator{err: errors.New("quota")}
	svc := NewService(nil,
		NewGemini(gen, ""),
		NewPollinations(srv.URL+"/prompt/", srv.Client()),
		Picsum{},
	)

	first := svc.Generate(context.Background(), "a red cat sitting on a mat")
	second := svc.Generate(context.Background(), "a red cat sitting on a mat")

	require.True(t, first.Success)
	assert.Equal(t, "https://picsum.photos/seed/aredcatsittingonamat/1024/1024", first.ImageURL)
	assert.Equal(t, first.ImageURL, second.ImageURL)
	assert.Equal(t, "a red cat sitting on a mat"+qualitySuffix, first.CorrectedPrompt)
	assert.Equal(t, 2, gen.calls)
	assert.Equal(t, 2, *hits)
}

func TestGeneratePollinationsOK(t *testing.T) {
	srv, _ := headServer(t, http.StatusOK)
	svc := NewService(nil,
		NewGemini(&fakeGenerator{err: errors.New("down")}, ""),
		NewPollinations(srv.URL+"/prompt/", srv.Client()),
		Picsum{},
	)
	res := svc.Generate(context.Background(), "sunset over the nile river")
	require.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.ImageURL, srv.URL+"/prompt/"))
	assert.Contains(t, res.ImageURL, "model=flux")
}

func TestGeminiReturnsDataURI(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "here you go"},
			{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("png")}},
		}},
	}}}}
	url, err := NewGemini(gen, "").Generate(context.Background(), "cat")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,cG5n", url)
	assert.Equal(t, []string{"TEXT", "IMAGE"}, gen.cfg.ResponseModalities)
	assert.Len(t, gen.cfg.SafetySettings, 4)
}

func TestGeminiTextOnlyFails(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: "cannot draw that"}}},
	}}}}
	_, err := NewGemini(gen, "").Generate(context.Background(), "cat")
	assert.Error(t, err)
}

func TestGenerateAllFail(t *testing.T) {
	svc := NewService(nil, NewGemini(nil, ""))
	res := svc.Generate(context.Background(), "cat")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestOptimize(t *testing.T) {
	out, corrections := Optimize("A beautifull PHOTO")
	assert.Equal(t, "a beautiful high-quality photograph, professional photography", out)
	assert.Len(t, corrections, 2)

	out, corrections = Optimize("cat")
	assert.Equal(t, "cat", out)
	assert.Empty(t, corrections)

	out, _ = Optimize(strings.Repeat("x", 1000))
	assert.Equal(t, maxPromptRunes+3, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestAddLanguageHint(t *testing.T) {
	assert.Equal(t, "قطة (Arabic prompt for image generation)", AddLanguageHint("قطة"))
	assert.Equal(t, "кот (Russian prompt for image generation)", AddLanguageHint("кот"))
	assert.Equal(t, "cat", AddLanguageHint("cat"))
}

func TestExtractPrompt(t *testing.T) {
	req := ExtractPrompt("Please draw a lighthouse at night")
	assert.Equal(t, "a lighthouse at night", req.Prompt)
	assert.Empty(t, req.Context)

	req = ExtractPrompt("generate image of a chart for my business meeting")
	assert.Equal(t, "a chart for my business meeting", req.Prompt)
	assert.Equal(t, "presentation", req.Context)
	assert.Equal(t, StyleProfessional, req.Style)

	req = ExtractPrompt("draw")
	assert.Equal(t, "draw", req.Prompt)
}

func TestExtractPromptMultilingual(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"ارسم قطة في الحديقة", "قطة في الحديقة"},
		{"أرني غروب الشمس", "غروب الشمس"},
		{"DRAW a dog", "a dog"},
		{"ȺȺ draw a cat", "a cat"},
		{"İİ manzara draw a cat", "a cat"},
		{"ȺȺȺȺȺȺ draw", "ȺȺȺȺȺȺ draw"},
		{"Ⱥ İ", "Ⱥ İ"},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			var req Request
			require.NotPanics(t, func() { req = ExtractPrompt(tc.input) })
			assert.Equal(t, tc.want, req.Prompt)
			assert.Empty(t, req.Context)
			assert.Equal(t, StyleProfessional, req.Style)
		})
	}
}

func TestDetectContextIsCaseSensitive(t *testing.T) {
	c, s := DetectContext("a technical diagram")
	assert.Equal(t, "technical documentation", c)
	assert.Equal(t, StyleTechnical, s)

	c, _ = DetectContext("a TECHNICAL thing")
	assert.Empty(t, c)
}

func TestShouldGenerate(t *testing.T) {
	assert.True(t, ShouldGenerate("Show me a picture of Cairo"))
	assert.True(t, ShouldGenerate("ارسم قطة"))
	assert.False(t, ShouldGenerate("what time is it"))
}

func TestValidateURL(t *testing.T) {
	ok, _ := headServer(t, http.StatusOK)
	bad, _ := headServer(t, http.StatusNotFound)
	text := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	}))
	defer text.Close()

	ctx := context.Background()
	assert.True(t, ValidateURL(ctx, ok.Client(), ok.URL+"/a.jpg"))
	assert.False(t, ValidateURL(ctx, bad.Client(), bad.URL+"/a.jpg"))
	assert.False(t, ValidateURL(ctx, text.Client(), text.URL+"/a.jpg"))
	assert.False(t, ValidateURL(ctx, http.DefaultClient, "://nope"))
}

func TestPollinationsRejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	}))
	defer srv.Close()
	svc := NewService(nil, NewPollinations(srv.URL+"/prompt/", srv.Client()), Picsum{})
	res := svc.Generate(context.Background(), "a quiet harbour at dawn")
	require.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.ImageURL, "https://picsum.photos/seed/"))
}

func TestPicsumNeverFails(t *testing.T) {
	for _, prompt := range []string{"", "   ", "!!!", "قطة"} {
		u, err := Picsum{}.Generate(context.Background(), prompt)
		require.NoError(t, err, "prompt %q", prompt)
		assert.True(t, strings.HasPrefix(u, "https://picsum.photos/seed/"), u)
		assert.True(t, strings.HasSuffix(u, "/1024/1024"), u)
	}
	empty, _ := Picsum{}.Generate(context.Background(), "")
	assert.Equal(t, "https://picsum.photos/seed/811c9dc5/1024/1024", empty)
}

func TestGenerateVariations(t *testing.T) {
	svc := NewService(nil, Picsum{})
	var slept []time.Duration
	svc.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	results := svc.GenerateVariations(context.Background(), "mountain lake", 3)
	require.Len(t, results, 3)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, slept)
	for _, r := range results {
		assert.True(t, r.Success)
	}

	results = svc.GenerateVariations(context.Background(), "mountain lake", 9)
	assert.Len(t, results, len(variationModifiers))
}
