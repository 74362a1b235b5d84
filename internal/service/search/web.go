package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino-ext/components/tool/googlesearch"
	"github.com/cloudwego/eino/components/tool"
	"go.uber.org/zap"

	"meligy/internal/models"
)

const webToolTimeout = 10 * time.Second

// WebTool runs the Google custom search tool and falls back to the
// DuckDuckGo text search tool when Google is unavailable or fails.
type WebTool struct {
	google tool.InvokableTool
	duck   tool.InvokableTool
	logger *zap.Logger
}

// NewWebTool builds the tool chain. Google is skipped when apiKey or
// engineID is empty. It returns nil if no provider could be created.
func NewWebTool(ctx context.Context, apiKey, engineID string, logger *zap.Logger) *WebTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &WebTool{logger: logger}
	if apiKey != "" && engineID != "" {
		g, err := googlesearch.NewTool(ctx, &googlesearch.Config{
			ToolName:       "web_search_google",
			ToolDesc:       "Google Search Tool",
			APIKey:         apiKey,
			SearchEngineID: engineID,
			Lang:           "en",
			Num:            5,
		})
		if err != nil {
			logger.Warn("google search tool disabled", zap.Error(err))
		} else {
			w.google = g
		}
	} else {
		logger.Info("google search tool disabled: missing api key or engine id")
	}

	d, err := duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
		ToolName:   "web_search_ddg",
		ToolDesc:   "DuckDuckGo Search Tool (no token required)",
		MaxResults: 3,
		Region:     duckduckgo.RegionWT,
		Timeout:    webToolTimeout,
	})
	if err != nil {
		logger.Warn("duckduckgo search tool disabled", zap.Error(err))
	} else {
		w.duck = d
	}

	if w.google == nil && w.duck == nil {
		return nil
	}
	return w
}

// NewWebToolFrom wires already-built tools. Either may be nil.
func NewWebToolFrom(google, duck tool.InvokableTool, logger *zap.Logger) *WebTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebTool{google: google, duck: duck, logger: logger}
}

func (w *WebTool) Name() string { return "Web" }

func (w *WebTool) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("marshal search params: %w", err)
	}

	for _, p := range []struct {
		name string
		t    tool.InvokableTool
	}{{"Google", w.google}, {"DuckDuckGo", w.duck}} {
		if p.t == nil {
			continue
		}
		out, err := p.t.InvokableRun(ctx, string(payload))
		if err != nil {
			w.logger.Warn("web search provider failed", zap.String("provider", p.name), zap.Error(err))
			continue
		}
		results, err := parseToolOutput(out, p.name)
		if err != nil {
			w.logger.Warn("web search output unreadable", zap.String("provider", p.name), zap.Error(err))
			continue
		}
		return results, nil
	}
	return nil, errors.New("no search provider succeeded")
}

type toolItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Link    string `json:"link"`
	Summary string `json:"summary"`
	Snippet string `json:"snippet"`
	Desc    string `json:"desc"`
}

// toolOutput covers both the duckduckgo ("results") and google ("items") shapes.
type toolOutput struct {
	Results []toolItem `json:"results"`
	Items   []toolItem `json:"items"`
}

func parseToolOutput(raw, provider string) ([]models.SearchResult, error) {
	var out toolOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	items := append(out.Results, out.Items...)
	results := make([]models.SearchResult, 0, len(items))
	for _, item := range items {
		link := orDefault(item.URL, item.Link)
		if strings.TrimSpace(link) == "" {
			continue
		}
		score := 0.8 - 0.1*float64(len(results))
		if score < 0.5 {
			score = 0.5
		}
		results = append(results, models.SearchResult{
			Title:          orDefault(item.Title, link),
			URL:            link,
			Snippet:        orDefault(item.Summary, orDefault(item.Snippet, item.Desc)),
			Source:         provider,
			RelevanceScore: score,
		})
	}
	return results, nil
}
