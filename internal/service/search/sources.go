package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meligy/internal/models"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	maxBodySize        = 512 * 1024
	userAgent          = "Meligy-Search/1.0"
)

func getJSON(ctx context.Context, client *http.Client, target string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: %s", target, resp.Status)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", target, err)
	}
	return nil
}

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// InstantAnswer queries the DuckDuckGo instant-answer API.
type InstantAnswer struct {
	BaseURL string
	Client  *http.Client
}

func NewInstantAnswer(baseURL string, client *http.Client) *InstantAnswer {
	if baseURL == "" {
		baseURL = "https://api.duckduckgo.com/"
	}
	return &InstantAnswer{BaseURL: baseURL, Client: httpClientOrDefault(client)}
}

func (s *InstantAnswer) Name() string { return "DuckDuckGo" }

type instantAnswerPayload struct {
	Abstract      string `json:"Abstract"`
	AbstractURL   string `json:"AbstractURL"`
	Heading       string `json:"Heading"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

func (s *InstantAnswer) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")

	var data instantAnswerPayload
	if err := getJSON(ctx, s.Client, s.BaseURL+"?"+q.Encode(), &data); err != nil {
		return nil, err
	}

	var results []models.SearchResult
	if data.Abstract != "" {
		results = append(results, models.SearchResult{
			Title:          orDefault(data.Heading, "DuckDuckGo Instant Answer"),
			URL:            orDefault(data.AbstractURL, "https://duckduckgo.com"),
			Snippet:        data.Abstract,
			Source:         s.Name(),
			RelevanceScore: 0.9,
		})
	}
	topics := data.RelatedTopics
	if len(topics) > 3 {
		topics = topics[:3]
	}
	for _, topic := range topics {
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		title, _, _ := strings.Cut(topic.Text, " - ")
		results = append(results, models.SearchResult{
			Title:          orDefault(title, "Related Topic"),
			URL:            topic.FirstURL,
			Snippet:        topic.Text,
			Source:         s.Name(),
			RelevanceScore: 0.7,
		})
	}
	return results, nil
}

// Wikipedia searches article titles and fetches summaries for the top two.
type Wikipedia struct {
	BaseURL string
	Client  *http.Client
}

func NewWikipedia(baseURL string, client *http.Client) *Wikipedia {
	if baseURL == "" {
		baseURL = "https://en.wikipedia.org"
	}
	return &Wikipedia{BaseURL: strings.TrimRight(baseURL, "/"), Client: httpClientOrDefault(client)}
}

func (s *Wikipedia) Name() string { return "Wikipedia" }

type wikiSearchPayload struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

type wikiSummaryPayload struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func (s *Wikipedia) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("list", "search")
	q.Set("srsearch", query)
	q.Set("format", "json")
	q.Set("origin", "*")

	var found wikiSearchPayload
	if err := getJSON(ctx, s.Client, s.BaseURL+"/w/api.php?"+q.Encode(), &found); err != nil {
		return nil, err
	}
	pages := found.Query.Search
	if len(pages) > 2 {
		pages = pages[:2]
	}

	var results []models.SearchResult
	for _, page := range pages {
		escaped := url.PathEscape(page.Title)
		var summary wikiSummaryPayload
		// a failed summary only drops that page
		if err := getJSON(ctx, s.Client, s.BaseURL+"/api/rest_v1/page/summary/"+escaped, &summary); err != nil {
			continue
		}
		results = append(results, models.SearchResult{
			Title:          orDefault(summary.Title, page.Title),
			URL:            orDefault(summary.ContentURLs.Desktop.Page, s.BaseURL+"/wiki/"+escaped),
			Snippet:        orDefault(summary.Extract, orDefault(page.Snippet, "Wikipedia article")),
			Source:         s.Name(),
			RelevanceScore: 0.8,
		})
	}
	return results, nil
}

// OpenSources suggests curated search links by query topic. It makes no
// network calls.
type OpenSources struct{}

func (OpenSources) Name() string { return "Open Sources" }

var (
	scientificKeywords = []string{"research", "study", "experiment", "theory", "hypothesis", "analysis",
		"scientific", "medicine", "biology", "chemistry", "physics", "mathematics",
		"climate", "environment", "health", "disease", "treatment"}
	technicalKeywords = []string{"programming", "code", "software", "development", "algorithm",
		"javascript", "python", "react", "api", "database", "server",
		"error", "bug", "debug", "function", "method", "class"}
	newsKeywords = []string{"news", "latest", "recent", "current", "today", "breaking",
		"update", "announcement", "event", "happening", "politics",
		"economy", "world", "international"}
)

func (o OpenSources) Search(_ context.Context, query string) ([]models.SearchResult, error) {
	enc := url.QueryEscape(query)
	var results []models.SearchResult
	if containsAny(query, scientificKeywords) {
		results = append(results, models.SearchResult{
			Title:          "Scientific Research Resources",
			URL:            "https://scholar.google.com/scholar?q=" + enc,
			Snippet:        "Access peer-reviewed scientific literature and research papers",
			Source:         "Google Scholar",
			RelevanceScore: 0.85,
		})
	}
	if containsAny(query, technicalKeywords) {
		results = append(results, models.SearchResult{
			Title:          "Technical Documentation and Solutions",
			URL:            "https://stackoverflow.com/search?q=" + enc,
			Snippet:        "Community-driven technical solutions and programming help",
			Source:         "Stack Overflow",
			RelevanceScore: 0.8,
		})
	}
	if containsAny(query, newsKeywords) {
		results = append(results, models.SearchResult{
			Title:          "Latest News and Updates",
			URL:            "https://news.google.com/search?q=" + enc,
			Snippet:        "Current news articles and recent developments",
			Source:         "Google News",
			RelevanceScore: 0.75,
		})
	}
	return results, nil
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
