// Package lang classifies the language of free text by script and a few
// common-word hints.
package lang

import (
	"regexp"
	"unicode"
)

// Tag is a short language code such as "en" or "ar".
type Tag string

const (
	English  Tag = "en"
	Arabic   Tag = "ar"
	Chinese  Tag = "zh"
	Japanese Tag = "ja"
	Korean   Tag = "ko"
	Russian  Tag = "ru"
	Hindi    Tag = "hi"
	Thai     Tag = "th"
	Hebrew   Tag = "he"
	Greek    Tag = "el"
	Spanish  Tag = "es"
	French   Tag = "fr"
	German   Tag = "de"
)

type scriptRange struct {
	tag    Tag
	lo, hi rune
	alt    [2]rune // optional second range, zero when unused
}

// Kana is checked before Han so Japanese text with kanji is not tagged zh.
var scripts = []scriptRange{
	{tag: Arabic, lo: 0x0600, hi: 0x06FF},
	{tag: Japanese, lo: 0x3040, hi: 0x309F, alt: [2]rune{0x30A0, 0x30FF}},
	{tag: Chinese, lo: 0x4E00, hi: 0x9FFF},
	{tag: Korean, lo: 0xAC00, hi: 0xD7AF},
	{tag: Russian, lo: 0x0400, hi: 0x04FF},
	{tag: Hindi, lo: 0x0900, hi: 0x097F},
	{tag: Thai, lo: 0x0E00, hi: 0x0E7F},
	{tag: Hebrew, lo: 0x0590, hi: 0x05FF},
	{tag: Greek, lo: 0x0370, hi: 0x03FF},
}

func (s scriptRange) contains(r rune) bool {
	if r >= s.lo && r <= s.hi {
		return true
	}
	return s.alt[1] != 0 && r >= s.alt[0] && r <= s.alt[1]
}

var latinHints = []struct {
	tag Tag
	re  *regexp.Regexp
}{
	{Spanish, regexp.MustCompile(`(?i)\b(el|los|las|una|pero|para|por|como|muy|también|qué|está|hola|gracias)\b`)},
	{French, regexp.MustCompile(`(?i)\b(le|les|une|et|mais|avec|dans|pour|comme|très|aussi|oui|bonjour|merci|est)\b`)},
	{German, regexp.MustCompile(`(?i)\b(der|die|das|ein|eine|und|oder|aber|mit|von|für|durch|dass|wie|sehr|auch|nein|ist)\b`)},
}

// Detect returns the first matching non-Latin script, then a Latin-language
// guess that needs at least two hint words, and English otherwise.
func Detect(text string) Tag {
	for _, s := range scripts {
		for _, r := range text {
			if s.contains(r) {
				return s.tag
			}
		}
	}
	for _, h := range latinHints {
		if len(h.re.FindAllStringIndex(text, 2)) >= 2 {
			return h.tag
		}
	}
	return English
}

var arabicHints = regexp.MustCompile(`عربي|مصر|مصري|ازاي|ايه|ليه`)

// IsArabic reports whether text is Arabic script or carries Egyptian Arabic hints.
func IsArabic(text string) bool {
	return Detect(text) == Arabic || arabicHints.MatchString(text)
}

// IsLatin reports whether text contains no letters outside the Latin script.
func IsLatin(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return false
		}
	}
	return true
}
