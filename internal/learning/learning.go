// Package learning keeps an advisory per-client profile of keyword patterns,
// topics and inferred preferences used to enrich conversational context.
package learning

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"meligy/internal/lang"
	"meligy/internal/models"
	"meligy/internal/store"

	"go.uber.org/zap"
)

const (
	keyPrefix       = "meleji-learning-data:"
	maxKeywords     = 10
	maxResponses    = 3
	maxContext      = 5
	recentHistory   = 2
	topTopicsStats  = 5
	topTopicsPrompt = 3
	similarLimit    = 3
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the a an and or but in on at to for of with by
		i you he she it we they me him her us them
		is are was were be been being have has had do does did
		will would could should may might can must`) {
		stopWords[w] = struct{}{}
	}
}

// Topic keyword lists, in a stable order.
var topics = []struct {
	name     string
	keywords []string
}{
	{"technology", []string{"computer", "software", "programming", "code", "tech", "ai", "machine learning", "data"}},
	{"science", []string{"research", "study", "experiment", "theory", "hypothesis", "analysis", "scientific"}},
	{"health", []string{"health", "medical", "doctor", "medicine", "fitness", "exercise", "nutrition"}},
	{"education", []string{"learn", "study", "school", "university", "course", "education", "teaching"}},
	{"business", []string{"work", "job", "career", "business", "company", "management", "finance"}},
	{"entertainment", []string{"movie", "music", "game", "book", "art", "entertainment", "fun"}},
	{"travel", []string{"travel", "trip", "vacation", "country", "city", "culture", "tourism"}},
	{"food", []string{"food", "cooking", "recipe", "restaurant", "cuisine", "meal", "eat"}},
}

var personalPatterns = []struct {
	field string
	re    *regexp.Regexp
}{
	{"name", regexp.MustCompile(`(?i)(?:my name is|i'm|i am|call me)\s+([a-zA-Z]+)`)},
	{"age", regexp.MustCompile(`(?i)(?:i'm|i am|my age is)\s+(\d+)`)},
	{"location", regexp.MustCompile(`(?i)(?:i live in|i'm from|from)\s+([a-zA-Z\s]+)`)},
	{"profession", regexp.MustCompile(`(?i)(?:i work as|i'm a|i am a|my job is)\s+([a-zA-Z\s]+)`)},
}

var (
	formalIndicators    = []string{"please", "thank you", "could you", "would you", "may i", "excuse me"}
	casualIndicators    = []string{"hey", "hi", "yeah", "ok", "cool", "awesome", "lol"}
	technicalIndicators = []string{"algorithm", "function", "variable", "parameter", "implementation", "optimization"}

	nonWord = regexp.MustCompile(`[^\w\s]`)
)

// Service reads and writes learning profiles through a Store.
type Service struct {
	store  store.Store
	now    func() time.Time
	logger *zap.Logger
	mu     sync.Mutex
}

func NewService(s store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: s, now: time.Now, logger: logger}
}

func newProfile(now time.Time) *models.LearningProfile {
	return &models.LearningProfile{
		UserPatterns: map[string]*models.UserPattern{},
		Preferences: models.Preferences{
			Language:      string(lang.English),
			ResponseStyle: models.StyleCasual,
			Topics:        map[string]int{},
		},
		PersonalInfo: map[string]string{},
		LastUpdated:  now,
	}
}

func (s *Service) load(ctx context.Context, clientID string) (*models.LearningProfile, error) {
	p := newProfile(s.now())
	if _, err := store.GetJSON(ctx, s.store, keyPrefix+clientID, p); err != nil {
		return nil, fmt.Errorf("load learning profile: %w", err)
	}
	if p.UserPatterns == nil {
		p.UserPatterns = map[string]*models.UserPattern{}
	}
	if p.Preferences.Topics == nil {
		p.Preferences.Topics = map[string]int{}
	}
	if p.PersonalInfo == nil {
		p.PersonalInfo = map[string]string{}
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, clientID string, p *models.LearningProfile) error {
	p.LastUpdated = s.now()
	if err := store.SetJSON(ctx, s.store, keyPrefix+clientID, p); err != nil {
		return fmt.Errorf("save learning profile: %w", err)
	}
	return nil
}

// Profile returns a copy of the stored profile, or a fresh default.
func (s *Service) Profile(ctx context.Context, clientID string) (*models.LearningProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, clientID)
}

// LearnFromInteraction updates preferences and the keyword pattern for input.
// history is the conversation before input was appended.
func (s *Service) LearnFromInteraction(ctx context.Context, clientID, input string, history []*models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.load(ctx, clientID)
	if err != nil {
		return err
	}

	p.Preferences.Language = string(lang.Detect(input))
	for _, topic := range ExtractTopics(input) {
		p.Preferences.Topics[topic]++
	}

	keywords := ExtractKeywords(input)
	if key := patternKey(keywords); key != "" {
		pat, ok := p.UserPatterns[key]
		if !ok {
			pat = &models.UserPattern{Keywords: keywords, Responses: []string{}, Context: []string{}}
			p.UserPatterns[key] = pat
		}
		pat.Frequency++
		pat.LastUsed = s.now()

		start := len(history) - recentHistory
		if start < 0 {
			start = 0
		}
		for _, msg := range history[start:] {
			pat.Context = appendUnique(pat.Context, msg.Content)
		}
		if len(pat.Context) > maxContext {
			pat.Context = pat.Context[len(pat.Context)-maxContext:]
		}
	}

	for _, pp := range personalPatterns {
		if m := pp.re.FindStringSubmatch(input); m != nil {
			p.PersonalInfo[pp.field] = strings.TrimSpace(m[1])
		}
	}

	if style, ok := inferStyle(input); ok {
		p.Preferences.ResponseStyle = style
	}

	return s.save(ctx, clientID, p)
}

// LearnFromResponse remembers the reply for the input's pattern, keeping the
// most recent three.
func (s *Service) LearnFromResponse(ctx context.Context, clientID, response, input string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.load(ctx, clientID)
	if err != nil {
		return err
	}
	if pat, ok := p.UserPatterns[patternKey(ExtractKeywords(input))]; ok {
		pat.Responses = append(pat.Responses, response)
		if len(pat.Responses) > maxResponses {
			pat.Responses = pat.Responses[len(pat.Responses)-maxResponses:]
		}
	}
	return s.save(ctx, clientID, p)
}

// PersonalizedContext renders the profile as a one-paragraph prompt prefix.
func (s *Service) PersonalizedContext(ctx context.Context, clientID string) (string, error) {
	p, err := s.Profile(ctx, clientID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "User preferences: Language: %s, Style: %s. ", p.Preferences.Language, p.Preferences.ResponseStyle)

	top := topTopics(p.Preferences.Topics, topTopicsPrompt)
	if len(top) > 0 {
		names := make([]string, len(top))
		for i, t := range top {
			names[i] = t.Topic
		}
		fmt.Fprintf(&b, "Interested in: %s. ", strings.Join(names, ", "))
	}

	if len(p.PersonalInfo) > 0 {
		parts := make([]string, 0, len(p.PersonalInfo))
		for _, field := range []string{"name", "age", "location", "profession"} {
			if v, ok := p.PersonalInfo[field]; ok {
				parts = append(parts, field+": "+v)
			}
		}
		fmt.Fprintf(&b, "Personal info: %s. ", strings.Join(parts, ", "))
	}
	return b.String(), nil
}

// SimilarPatterns returns up to three stored patterns sharing a keyword
// (substring either way) with input, most frequent first.
func (s *Service) SimilarPatterns(ctx context.Context, clientID, input string) ([]models.UserPattern, error) {
	p, err := s.Profile(ctx, clientID)
	if err != nil {
		return nil, err
	}
	keywords := ExtractKeywords(input)
	var out []models.UserPattern
	for _, pat := range p.UserPatterns {
		if overlaps(pat.Keywords, keywords) {
			out = append(out, *pat)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return strings.Join(out[i].Keywords, "-") < strings.Join(out[j].Keywords, "-")
	})
	if len(out) > similarLimit {
		out = out[:similarLimit]
	}
	return out, nil
}

func (s *Service) Stats(ctx context.Context, clientID string) (models.LearningStats, error) {
	p, err := s.Profile(ctx, clientID)
	if err != nil {
		return models.LearningStats{}, err
	}
	total := 0
	for _, pat := range p.UserPatterns {
		total += pat.Frequency
	}
	return models.LearningStats{
		TotalPatterns:     len(p.UserPatterns),
		TotalInteractions: total,
		TopTopics:         topTopics(p.Preferences.Topics, topTopicsStats),
		PreferredLanguage: p.Preferences.Language,
		ResponseStyle:     p.Preferences.ResponseStyle,
	}, nil
}

// Clear drops everything learned about the client.
func (s *Service) Clear(ctx context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(ctx, keyPrefix+clientID); err != nil {
		return fmt.Errorf("clear learning profile: %w", err)
	}
	return nil
}

// ExtractKeywords lowercases text, strips punctuation and returns up to ten
// non-stopword words longer than two characters.
func ExtractKeywords(text string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")
	out := []string{}
	for _, w := range strings.Fields(cleaned) {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// ExtractTopics returns every topic with a keyword contained in text.
func ExtractTopics(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, t := range topics {
		for _, k := range t.keywords {
			if strings.Contains(lower, k) {
				out = append(out, t.name)
				break
			}
		}
	}
	return out
}

func patternKey(keywords []string) string {
	n := len(keywords)
	if n > 3 {
		n = 3
	}
	return strings.ToLower(strings.Join(keywords[:n], "-"))
}

func inferStyle(text string) (models.ResponseStyle, bool) {
	lower := strings.ToLower(text)
	count := func(indicators []string) int {
		n := 0
		for _, ind := range indicators {
			if strings.Contains(lower, ind) {
				n++
			}
		}
		return n
	}
	formal, casual, technical := count(formalIndicators), count(casualIndicators), count(technicalIndicators)
	switch {
	case technical > max(formal, casual):
		return models.StyleTechnical, true
	case formal > casual:
		return models.StyleFormal, true
	case casual > 0:
		return models.StyleCasual, true
	}
	return "", false
}

func topTopics(counts map[string]int, n int) []models.TopicCount {
	out := make([]models.TopicCount, 0, len(counts))
	for topic, c := range counts {
		out = append(out, models.TopicCount{Topic: topic, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Topic < out[j].Topic
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		lx := strings.ToLower(x)
		for _, y := range b {
			ly := strings.ToLower(y)
			if strings.Contains(ly, lx) || strings.Contains(lx, ly) {
				return true
			}
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
