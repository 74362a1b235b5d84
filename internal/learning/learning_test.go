package learning

import (
	"context"
	"strings"
	"testing"
	"time"

	"meligy/internal/models"
	"meligy/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	s := NewService(store.NewMemory(), nil)
	s.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("Can you explain the Python programming language, please?")
	assert.Equal(t, []string{"explain", "python", "programming", "language", "please"}, got)
	assert.NotContains(t, got, "the")
	assert.NotContains(t, got, "can")
}

func TestExtractTopics(t *testing.T) {
	got := ExtractTopics("I want to learn cooking and travel to a new city")
	assert.Equal(t, []string{"education", "travel", "food"}, got)
}

func TestLearnFromInteractionBuildsProfile(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	history := []*models.ChatMessage{
		{Content: "first"}, {Content: "second"}, {Content: "third"},
	}

	input := "Hey, my name is Sara and I work as a teacher in music"
	require.NoError(t, s.LearnFromInteraction(ctx, "c1", input, history))
	require.NoError(t, s.LearnFromInteraction(ctx, "c1", input, history))
	require.NoError(t, s.LearnFromResponse(ctx, "c1", "nice to meet you", input))

	p, err := s.Profile(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Sara", p.PersonalInfo["name"])
	assert.Equal(t, "a teacher in music", p.PersonalInfo["profession"])
	assert.Equal(t, models.StyleCasual, p.Preferences.ResponseStyle)
	assert.Equal(t, 2, p.Preferences.Topics["entertainment"])

	pat := p.UserPatterns["hey-name-sara"]
	require.NotNil(t, pat)
	assert.Equal(t, 2, pat.Frequency)
	assert.Equal(t, []string{"second", "third"}, pat.Context)
	assert.Equal(t, []string{"nice to meet you"}, pat.Responses)

	stats, err := s.Stats(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalPatterns)
	assert.Equal(t, 2, stats.TotalInteractions)
	assert.Equal(t, "en", stats.PreferredLanguage)
}

func TestLearnFromResponseKeepsThree(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	input := "explain quantum computing basics"
	require.NoError(t, s.LearnFromInteraction(ctx, "c", input, nil))
	for _, r := range []string{"r1", "r2", "r3", "r4"} {
		require.NoError(t, s.LearnFromResponse(ctx, "c", r, input))
	}
	p, err := s.Profile(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r3", "r4"}, p.UserPatterns["explain-quantum-computing"].Responses)
}

func TestInferStyle(t *testing.T) {
	style, ok := inferStyle("Could you please review this algorithm implementation and its optimization")
	require.True(t, ok)
	assert.Equal(t, models.StyleTechnical, style)

	style, ok = inferStyle("Could you please help, thank you")
	require.True(t, ok)
	assert.Equal(t, models.StyleFormal, style)

	_, ok = inferStyle("tell me about egypt")
	assert.False(t, ok)
}

func TestPersonalizedContextAndClear(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	out, err := s.PersonalizedContext(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "User preferences: Language: en, Style: casual. ", out)

	require.NoError(t, s.LearnFromInteraction(ctx, "c", "my name is Omar and I love football games", nil))
	out, err = s.PersonalizedContext(ctx, "c")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Interested in: entertainment. "))
	assert.True(t, strings.Contains(out, "Personal info: name: Omar"))

	require.NoError(t, s.Clear(ctx, "c"))
	stats, err := s.Stats(ctx, "c")
	require.NoError(t, err)
	assert.Zero(t, stats.TotalPatterns)
}

func TestSimilarPatterns(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	require.NoError(t, s.LearnFromInteraction(ctx, "c", "python programming tips", nil))
	require.NoError(t, s.LearnFromInteraction(ctx, "c", "python programming tips", nil))
	require.NoError(t, s.LearnFromInteraction(ctx, "c", "cooking pasta recipes", nil))

	got, err := s.SimilarPatterns(ctx, "c", "advanced python")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Frequency)
}
