// Package search fans a query out to several sources, then merges, dedupes
// and ranks what comes back.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"meligy/internal/models"

	"go.uber.org/zap"
)

// DefaultMaxResults is used when callers pass a non-positive limit.
const DefaultMaxResults = 5

// Source is one search backend. A failing source contributes no results.
type Source interface {
	Name() string
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// Service runs all sources concurrently and waits for every one to settle.
type Service struct {
	sources []Source
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(logger *zap.Logger, sources ...Source) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sources: sources, logger: logger, now: time.Now}
}

// Search never returns an error; Success is false only when the batch could
// not be started at all.
func (s *Service) Search(ctx context.Context, query string, maxResults int) models.SearchResponse {
	start := s.now()
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	resp := models.SearchResponse{Query: query, Results: []models.SearchResult{}}

	if err := s.checkBatch(ctx, query); err != nil {
		resp.Error = err.Error()
		resp.SearchTime = s.now().Sub(start).Milliseconds()
		return resp
	}

	perSource := make([][]models.SearchResult, len(s.sources))
	var wg sync.WaitGroup
	for i, src := range s.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			perSource[i] = s.runSource(ctx, src, query)
		}(i, src)
	}
	wg.Wait()

	var all []models.SearchResult
	for _, results := range perSource {
		all = append(all, results...)
	}
	ranked := RankByRelevance(RemoveDuplicates(all), query)
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	resp.Success = true
	resp.Results = ranked
	resp.TotalResults = len(ranked)
	resp.SearchTime = s.now().Sub(start).Milliseconds()
	return resp
}

func (s *Service) checkBatch(ctx context.Context, query string) error {
	if len(s.sources) == 0 {
		return errors.New("no search sources configured")
	}
	if strings.TrimSpace(query) == "" {
		return errors.New("empty search query")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("search cancelled: %w", err)
	}
	return nil
}

func (s *Service) runSource(ctx context.Context, src Source, query string) (results []models.SearchResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("search source panicked", zap.String("source", src.Name()), zap.Any("panic", r))
			results = nil
		}
	}()
	results, err := src.Search(ctx, query)
	if err != nil {
		s.logger.Warn("search source failed", zap.String("source", src.Name()), zap.Error(err))
		return nil
	}
	return results
}

// RemoveDuplicates keeps the first result for each case-insensitive URL.
func RemoveDuplicates(results []models.SearchResult) []models.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		key := strings.ToLower(r.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// RankByRelevance boosts each score by the fraction of query words found in
// the title (weight 0.3) and snippet (weight 0.2), then sorts descending.
// Ties keep their merge order.
func RankByRelevance(results []models.SearchResult, query string) []models.SearchResult {
	queryWords := strings.Fields(strings.ToLower(query))
	out := make([]models.SearchResult, len(results))
	copy(out, results)
	if len(queryWords) == 0 {
		sort.SliceStable(out, func(i, j int) bool { return out[i].RelevanceScore > out[j].RelevanceScore })
		return out
	}
	n := float64(len(queryWords))
	for i := range out {
		titleWords := strings.Fields(strings.ToLower(out[i].Title))
		snippet := strings.ToLower(out[i].Snippet)
		titleHits, snippetHits := 0, 0
		for _, w := range queryWords {
			for _, tw := range titleWords {
				if strings.Contains(tw, w) {
					titleHits++
					break
				}
			}
			if strings.Contains(snippet, w) {
				snippetHits++
			}
		}
		out[i].RelevanceScore += float64(titleHits)/n*0.3 + float64(snippetHits)/n*0.2
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RelevanceScore > out[j].RelevanceScore })
	return out
}
