package image

import (
	"regexp"
	"strings"
)

var imageKeywords = []string{
	"generate image", "create image", "make image", "draw", "picture of", "image of", "visual of",
	"show me", "visualize", "illustration", "photo of", "artwork", "design", "graphic",
	"presentation image", "visual content", "infographic", "diagram", "chart image",
	"أنشئ صورة", "اعمل صورة", "ارسم", "صورة لـ", "أرني", "وضح بصرياً", "تصميم", "رسم بياني",
}

// Tried in order; the first one found wins.
var promptTriggers = compileTriggers([]string{
	"generate image of", "create image of", "make image of", "draw", "picture of", "image of",
	"show me", "visualize", "illustration of", "photo of", "artwork of", "visual of",
	"presentation image of", "visual content for", "design for",
	"أنشئ صورة", "اعمل صورة", "ارسم", "صورة لـ", "أرني", "وضح بصرياً",
})

func compileTriggers(triggers []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(triggers))
	for i, t := range triggers {
		out[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(t))
	}
	return out
}

// Style selects the phrase bundle used for presentation-aware prompts.
type Style string

const (
	StyleProfessional Style = "professional"
	StyleCreative     Style = "creative"
	StyleEducational  Style = "educational"
	StyleTechnical    Style = "technical"
)

// Request is an image prompt plus the presentation context inferred for it.
// An empty Context means a plain generation.
type Request struct {
	Prompt  string `json:"prompt"`
	Context string `json:"context,omitempty"`
	Style   Style  `json:"style"`
}

// ShouldGenerate reports whether text asks for an image.
func ShouldGenerate(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range imageKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

var contextHints = []struct {
	words   []string
	context string
	style   Style
}{
	{[]string{"presentation", "meeting", "business"}, "presentation", StyleProfessional},
	{[]string{"creative", "artistic", "design"}, "creative project", StyleCreative},
	{[]string{"educational", "learning", "teaching"}, "educational material", StyleEducational},
	{[]string{"technical", "diagram", "engineering"}, "technical documentation", StyleTechnical},
}

// DetectContext infers a presentation context from case-sensitive hints.
func DetectContext(text string) (string, Style) {
	for _, h := range contextHints {
		for _, w := range h.words {
			if strings.Contains(text, w) {
				return h.context, h.style
			}
		}
	}
	return "", StyleProfessional
}

// ExtractPrompt strips everything up to the first trigger phrase found.
func ExtractPrompt(text string) Request {
	ctxName, style := DetectContext(text)
	prompt := text
	for _, re := range promptTriggers {
		if loc := re.FindStringIndex(text); loc != nil {
			prompt = strings.TrimSpace(text[loc[1]:])
			break
		}
	}
	if prompt == "" {
		prompt = text
	}
	return Request{Prompt: prompt, Context: ctxName, Style: style}
}
