package search

import (
	"regexp"
	"strings"
)

var searchKeywords = []string{
	// English
	"search for", "look up", "find information", "research", "what is", "tell me about",
	"latest news", "current", "recent", "update on", "information about",
	// Arabic
	"ابحث عن", "ابحث لي", "معلومات عن", "ما هو", "أخبرني عن", "آخر الأخبار",
	// Spanish
	"buscar", "busca información", "qué es", "dime sobre", "últimas noticias",
	// French
	"rechercher", "chercher des informations", "qu'est-ce que", "dis-moi sur", "dernières nouvelles",
	// German
	"suchen nach", "informationen finden", "was ist", "erzähl mir über", "neueste nachrichten",
	// question words
	"how does", "why does", "when did", "where is", "who is", "which",
}

// Tried in order; the first trigger found anywhere in the text wins.
var queryTriggers = compileTriggers([]string{
	"search for", "look up", "find information about", "research", "tell me about",
	"what is", "who is", "where is", "when did", "how does", "why does",
	"ابحث عن", "معلومات عن", "ما هو", "أخبرني عن",
	"buscar", "qué es", "dime sobre",
	"rechercher", "qu'est-ce que", "dis-moi sur",
	"suchen nach", "was ist", "erzähl mir über",
})

var trailingPunct = regexp.MustCompile(`[?!.]+$`)

func compileTriggers(triggers []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(triggers))
	for i, t := range triggers {
		out[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(t))
	}
	return out
}

// ShouldSearch reports whether text asks for information lookup.
func ShouldSearch(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range searchKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// ExtractQuery strips everything up to and including the first matching
// trigger phrase, then trailing ?!. characters.
func ExtractQuery(text string) string {
	query := text
	for _, re := range queryTriggers {
		if loc := re.FindStringIndex(query); loc != nil {
			query = strings.TrimSpace(query[loc[1]:])
			break
		}
	}
	query = strings.TrimSpace(trailingPunct.ReplaceAllString(query, ""))
	if query == "" {
		return text
	}
	return query
}
