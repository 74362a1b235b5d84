package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meligy/internal/models"
	"meligy/internal/service/search"
)

// consume counts one message against the client's daily quota. Subscribed
// clients are counted but never refused. It writes the response on refusal.
func (h *Handler) consume(c *gin.Context, clientID string) bool {
	ctx := c.Request.Context()
	client, err := h.assistant.GetClient(ctx, clientID)
	if err != nil {
		writeError(c, err)
		return false
	}
	if client.Subscribed {
		if _, err := h.limits.Increment(ctx, clientID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return false
		}
		return true
	}
	ok, err := h.limits.TryAcquire(ctx, clientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return false
	}
	if !ok {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "daily message limit reached"})
		return false
	}
	return true
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults"`
}

func (h *Handler) searchWeb(c *gin.Context) {
	clientID, ok := h.authorizedClientID(c)
	if !ok {
		return
	}
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	if req.MaxResults <= 0 || req.MaxResults > h.maxResults {
		req.MaxResults = h.maxResults
	}
	if !h.consume(c, clientID) {
		return
	}
	resp := h.search.Search(c.Request.Context(), req.Query, req.MaxResults)
	if resp.Success {
		snippets := make([]string, 0, len(resp.Results))
		for _, r := range resp.Results {
			snippets = append(snippets, r.Snippet)
		}
		analysis := search.Analyze(req.Query, snippets)
		resp.Analysis = &analysis
	}
	if resp.Results == nil {
		resp.Results = make([]models.SearchResult, 0)
	}
	c.JSON(http.StatusOK, resp)
}

type variationsRequest struct {
	Prompt string `json:"prompt"`
	Count  int    `json:"count"`
}

func (h *Handler) imageVariations(c *gin.Context) {
	clientID, ok := h.authorizedClientID(c)
	if !ok {
		return
	}
	var req variationsRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	if !h.consume(c, clientID) {
		return
	}
	variations := h.images.GenerateVariations(c.Request.Context(), req.Prompt, req.Count)
	c.JSON(http.StatusOK, gin.H{"variations": variations})
}

func (h *Handler) learningStats(c *gin.Context) {
	clientID, ok := h.authorizedClientID(c)
	if !ok {
		return
	}
	stats, err := h.learning.Stats(c.Request.Context(), clientID)
	if err != nil {
		h.logger.Warn("learning stats", zap.String("client_id", clientID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) clearLearning(c *gin.Context) {
	clientID, ok := h.authorizedClientID(c)
	if !ok {
		return
	}
	if err := h.learning.Clear(c.Request.Context(), clientID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
