package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meligy/internal/auth"
	"meligy/internal/limit"
	"meligy/internal/models"
	"meligy/internal/service/assistant"
	"meligy/internal/worker"
)

const sendTimeout = 2 * time.Minute

type WorkerManager interface {
	Send(ctx context.Context, req worker.SendRequest) (*worker.SendResult, error)
	ResetClient(clientID string)
}

type Limits interface {
	Status(ctx context.Context, clientID string) (limit.Status, error)
	TryAcquire(ctx context.Context, clientID string) (bool, error)
	Increment(ctx context.Context, clientID string) (int, error)
	Reset(ctx context.Context, clientID string) error
}

type Learning interface {
	Stats(ctx context.Context, clientID string) (models.LearningStats, error)
	Clear(ctx context.Context, clientID string) error
}

type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) models.SearchResponse
}

type ImageVariator interface {
	GenerateVariations(ctx context.Context, prompt string, count int) []models.ImageResult
}

// Deps groups the collaborators of Handler.
type Deps struct {
	Assistant *assistant.Service
	Auth      *auth.Service
	Workers   WorkerManager
	Limits    Limits
	Learning  Learning
	Search    Searcher
	Images    ImageVariator
	Logger    *zap.Logger
	// MaxSearchResults caps direct search calls.
	MaxSearchResults int
}

// Handler wires HTTP routes to the conversation store and the per-client worker manager.
type Handler struct {
	assistant  *assistant.Service
	auth       *auth.Service
	workers    WorkerManager
	limits     Limits
	learning   Learning
	search     Searcher
	images     ImageVariator
	logger     *zap.Logger
	maxResults int
}

// NewHandler constructs a Handler instance.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxResults := d.MaxSearchResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Handler{
		assistant:  d.Assistant,
		auth:       d.Auth,
		workers:    d.Workers,
		limits:     d.Limits,
		learning:   d.Learning,
		search:     d.Search,
		images:     d.Images,
		logger:     logger,
		maxResults: maxResults,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.POST("/clients", h.createClient)

	clientRoutes := api.Group("/clients/:id")
	clientRoutes.Use(h.auth.Middleware(), auth.RequireClientParam("id"), h.auth.CSRFMiddleware())
	clientRoutes.DELETE("", h.deleteClient)
	clientRoutes.POST("/logout", h.logoutClient)
	clientRoutes.GET("/limit", h.getLimit)
	clientRoutes.PUT("/subscription", h.setSubscription)
	clientRoutes.GET("/conversations", h.listConversations)
	clientRoutes.POST("/conversations", h.createConversation)
	clientRoutes.GET("/conversations/:cid", h.getConversation)
	clientRoutes.DELETE("/conversations/:cid", h.deleteConversation)
	clientRoutes.POST("/conversations/:cid/messages", h.sendMessage)
	clientRoutes.POST("/search", h.searchWeb)
	clientRoutes.POST("/images/variations", h.imageVariations)
	clientRoutes.GET("/learning/stats", h.learningStats)
	clientRoutes.DELETE("/learning", h.clearLearning)
}

func (h *Handler) authorizedClientID(c *gin.Context) (string, bool) {
	clientID, ok := auth.ClientIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return "", false
	}
	return clientID, true
}

// Clients

func (h *Handler) createClient(c *gin.Context) {
	ctx := c.Request.Context()
	client, err := h.assistant.RegisterClient(ctx)
	if err != nil {
		h.logger.Error("register client", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register client failed"})
		return
	}
	authToken, err := h.auth.IssueToken(ctx, client.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	csrfToken, err := h.auth.NewCSRFToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	h.setAuthCookies(c, authToken, csrfToken)
	c.JSON(http.StatusCreated, gin.H{
		"id":         client.ID,
		"subscribed": client.Subscribed,
		"createdAt":  client.CreatedAt,
		"authToken":  authToken,
		"csrfToken":  csrfToken,
	})
}

func (h *Handler) deleteClient(c *gin.Context) {
	clientID, ok := h.authorizedClientID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.auth.RevokeClientTokens(ctx, clientID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.workers.ResetClient(clientID)
	if err := h.limits.Reset(ctx, clientID); err != nil {
		h.logger.Warn("reset limit counter", zap.String("client_id", clientID), zap.Error(err))
	}
	if err := h.learning.Clear(ctx, clientID); err != nil {
		h.logger.Warn("clear learning data", zap.String("client_id", clientID), zap.Error(err))
	}
	if err := h.assistant.DeleteClient(ctx, clientID); err != nil {
		writeError(c, err)
		return
	}
	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) logoutClient(c *gin.Context) {
	clientID, ok := h.authorizedClientID(c)
	if !ok {
		return
	}
	h.workers.ResetClient(clientID)
	if authToken, ok := auth.AuthTokenFromContext(c); ok {
		_ = h.auth.RevokeToken(c.Request.Context(), authToken)
	}
	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

type limitResponse struct {
	limit.Status
	Subscribed bool `json:"subscribed"`
}

func (h *Handler) limitPayload(ctx context.Context, clientID string) (limitResponse, error) {
	client, err := h.assistant.GetClient(ctx, clientID)
	if err != nil {
		return limitResponse{}, err
	}
	status, err := h.limits.Status(ctx, clientID)
	if err != nil {
		return limitResponse{}, err
	}
	return limitResponse{Status: status, Subscribed: client.Subscribed}, nil
}

func (h *Handler) getLimit(c *gin.Context) {
	clientID, ok := h.authorizedClientID(c)
	if !ok {
		return
	}
	payload, err := h.limitPayload(c.Request.Context(), clientID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (h *Handler) setSubscription(c *gin.Context) {
	clientID, ok := h.authorizedClientID(c)
	if !ok {
		return
	}
	var req struct {
		Subscribed *bool `json:"subscribed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Subscribed == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscribed is required"})
		return
	}
	if err := h.assistant.SetSubscribed(c.Request.Context(), clientID, *req.Subscribed); err != nil {
		writeError(c, err)
		return
	}
	payload, err := h.limitPayload(c.Request.Context(), clientID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// Conversations

func (h *Handler) listConversations(c *gin.Context) {
	clientID, ok := h.authorizedClientID(c)
	if !ok {
		return
	}
	list, err := h.assistant.ListConversations(c.Request.Context(), clientID)
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = make([]*models.Conversation, 0)
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

func (h *Handler) createConversation(c *gin.Context) {
	clientID, ok := h.authorizedClientID(c)
	if !ok {
		return
	}
	conv, err := h.assistant.CreateConversation(c.Request.Context(), clientID)
	if err != nil {
		writeError(c, err)
		return
	}
	conv.Messages = make([]*models.ChatMessage, 0)
	c.JSON(http.StatusCreated, conv)
}

func (h *Handler) getConversation(c *gin.Context) {
	clientID, ok := h.authorizedClientID(c)
	if !ok {
		return
	}
	conv, err := h.assistant.GetConversation(c.Request.Context(), clientID, c.Param("cid"))
	if err != nil {
		writeError(c, err)
		return
	}
	if conv.Messages == nil {
		conv.Messages = make([]*models.ChatMessage, 0)
	}
	c.JSON(http.StatusOK, conv)
}

func (h *Handler) deleteConversation(c *gin.Context) {
	clientID, ok := h.authorizedClientID(c)
	if !ok {
		return
	}
	if err := h.assistant.DeleteConversation(c.Request.Context(), clientID, c.Param("cid")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Messages

type messageRequest struct {
	Content string `json:"content"`
}

func (h *Handler) sendMessage(c *gin.Context) {
	clientID, ok := h.authorizedClientID(c)
	if !ok {
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content cannot be empty"})
		return
	}
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), sendTimeout)
	defer cancel()

	// The stream opens on ack, so earlier failures still get a plain status code.
	var mu sync.Mutex
	streaming := false
	sendEvent := func(event string, payload interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		if !streaming {
			c.Writer.Header().Set("Content-Type", "text/event-stream")
			c.Writer.Header().Set("Cache-Control", "no-cache")
			c.Writer.Header().Set("Connection", "keep-alive")
			c.Writer.Header().Set("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
			streaming = true
		}
		if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	res, err := h.workers.Send(ctx, worker.SendRequest{
		ClientID:       clientID,
		ConversationID: c.Param("cid"),
		Content:        req.Content,
		Ack: func(msg *models.ChatMessage) {
			_ = sendEvent("ack", gin.H{"message": msg})
		},
	})

	mu.Lock()
	opened := streaming
	mu.Unlock()
	if err != nil {
		h.logger.Warn("send message", zap.String("client_id", clientID), zap.Error(err))
		if !opened {
			h.writeSendError(c, err)
			return
		}
		_ = sendEvent("error", gin.H{"message": errorMessage(err)})
		return
	}
	_ = sendEvent("done", gin.H{"message": res.Assistant})
}

func (h *Handler) writeSendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, worker.ErrLimitReached):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": errorMessage(err)})
	case errors.Is(err, worker.ErrDispatcherBusy):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": errorMessage(err)})
	default:
		writeError(c, err)
	}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, worker.ErrDispatcherBusy):
		return "server is busy, please retry"
	case errors.Is(err, worker.ErrLimitReached):
		return "daily message limit reached"
	default:
		return err.Error()
	}
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, assistant.ErrClientNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
	case errors.Is(err, assistant.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// Cookies

func (h *Handler) setAuthCookies(c *gin.Context, authToken, csrfToken string) {
	ttl := int(h.auth.TokenTTL().Seconds())
	if ttl <= 0 {
		ttl = 3600
	}
	secure := gin.Mode() == gin.ReleaseMode
	setCookie(c, &http.Cookie{
		Name:     h.auth.AuthCookieName(),
		Value:    authToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	setCookie(c, &http.Cookie{
		Name:     h.auth.CSRFCookieName(),
		Value:    csrfToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	for _, name := range []string{h.auth.AuthCookieName(), h.auth.CSRFCookieName()} {
		setCookie(c, &http.Cookie{
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			Path:     "/",
			Secure:   gin.Mode() == gin.ReleaseMode,
			HttpOnly: name == h.auth.AuthCookieName(),
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func setCookie(c *gin.Context, ck *http.Cookie) {
	if ck == nil {
		return
	}
	http.SetCookie(c.Writer, ck)
}
