package image

import (
	"fmt"
	"regexp"
	"strings"

	"meligy/internal/lang"
)

const maxPromptRunes = 900

type substitution struct {
	word     string
	enhanced string
	re       *regexp.Regexp
}

func sub(word, enhanced string) substitution {
	return substitution{word: word, enhanced: enhanced, re: regexp.MustCompile(`(?i)\b` + word + `\b`)}
}

// Applied in order, so later entries see the output of earlier ones.
var substitutions = []substitution{
	sub("photo", "high-quality photograph, professional photography"),
	sub("drawing", "detailed digital artwork, professional illustration"),
	sub("painting", "artistic painting, fine art style"),
	sub("sketch", "detailed pencil sketch, artistic drawing"),
	sub("cartoon", "cartoon style illustration, animated character design"),
	sub("realistic", "photorealistic, highly detailed, professional quality"),
	sub("abstract", "abstract art, creative composition, artistic interpretation"),

	sub("simple", "clean, minimalist design, simple composition"),
	sub("detailed", "highly detailed, intricate, professional quality"),
	sub("colorful", "vibrant colors, rich palette, visually striking"),
	sub("beautiful", "aesthetically pleasing, visually appealing, well-composed"),

	sub("persn", "person"),
	sub("ppl", "people"),
	sub("pic", "image"),
	sub("img", "photograph"),
	sub("beautifull", "beautiful"),
	sub("colorfull", "colorful"),
}

var qualityModifiers = []string{"high resolution", "4k quality", "professional", "detailed", "sharp focus"}

const qualitySuffix = ", high resolution, professional quality, detailed"

var scriptNames = map[lang.Tag]string{
	lang.Arabic:   "Arabic",
	lang.Chinese:  "Chinese",
	lang.Japanese: "Japanese",
	lang.Korean:   "Korean",
	lang.Russian:  "Russian",
	lang.Hindi:    "Hindi",
	lang.Thai:     "Thai",
	lang.Hebrew:   "Hebrew",
	lang.Greek:    "Greek",
}

// AddLanguageHint appends an English note naming the script of non-Latin prompts.
func AddLanguageHint(prompt string) string {
	if lang.IsLatin(prompt) {
		return prompt
	}
	if name, ok := scriptNames[lang.Detect(prompt)]; ok {
		return fmt.Sprintf("%s (%s prompt for image generation)", prompt, name)
	}
	return prompt
}

// Optimize lowercases the prompt, expands style words, fixes common typos,
// adds quality modifiers and truncates to 900 characters. It returns the
// list of corrections applied.
func Optimize(prompt string) (string, []string) {
	var corrections []string
	out := strings.ToLower(strings.TrimSpace(prompt))

	for _, s := range substitutions {
		if s.re.MatchString(out) {
			out = s.re.ReplaceAllLiteralString(out, s.enhanced)
			corrections = append(corrections, fmt.Sprintf("Enhanced %q to %q", s.word, s.enhanced))
		}
	}

	hasQuality := false
	for _, m := range qualityModifiers {
		if strings.Contains(out, m) {
			hasQuality = true
			break
		}
	}
	if !hasQuality && len([]rune(out)) > 10 {
		out += qualitySuffix
		corrections = append(corrections, "Added quality enhancers")
	}

	if r := []rune(out); len(r) > maxPromptRunes {
		out = string(r[:maxPromptRunes]) + "..."
		corrections = append(corrections, "Trimmed prompt to length limit")
	}
	return out, corrections
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)
var whitespace = regexp.MustCompile(`\s+`)

// Seed derives the deterministic placeholder key for a prompt.
func Seed(prompt string) string {
	seed := nonAlnum.ReplaceAllString(prompt, "")
	if len(seed) > 20 {
		seed = seed[:20]
	}
	if seed == "" {
		seed = whitespace.ReplaceAllString(prompt, "")
	}
	return seed
}
