package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"meligy/internal/models"
	"meligy/internal/service/ai"
	"meligy/internal/service/assistant"
)

var (
	// ErrLimitReached is returned when an unsubscribed client used up today's quota.
	ErrLimitReached = errors.New("daily message limit reached")
	// ErrCanceled is returned when a queued message is dropped before it runs.
	ErrCanceled = errors.New("message canceled")
)

// Conversations is the slice of the conversation store the manager needs.
type Conversations interface {
	GetClient(ctx context.Context, id string) (*models.Client, error)
	History(ctx context.Context, clientID, convID string) ([]*models.ChatMessage, error)
	AppendMessage(ctx context.Context, clientID, convID string, msg *models.ChatMessage) error
	IDs() *assistant.IDGenerator
}

type Limiter interface {
	TryAcquire(ctx context.Context, clientID string) (bool, error)
	Increment(ctx context.Context, clientID string) (int, error)
}

type Learner interface {
	LearnFromInteraction(ctx context.Context, clientID, input string, history []*models.ChatMessage) error
	LearnFromResponse(ctx context.Context, clientID, response, input string) error
	PersonalizedContext(ctx context.Context, clientID string) (string, error)
	SimilarPatterns(ctx context.Context, clientID, input string) ([]models.UserPattern, error)
}

type Router interface {
	Route(ctx context.Context, input string, history []*models.ChatMessage) models.Content
}

type SendRequest struct {
	ClientID       string
	ConversationID string
	Content        string
	// Ack receives the stored user message before routing starts.
	Ack func(msg *models.ChatMessage)
}

type SendResult struct {
	User      *models.ChatMessage
	Assistant *models.ChatMessage
}

type Manager struct {
	dispatcher    *Dispatcher
	conversations Conversations
	limiter       Limiter
	learner       Learner
	router        Router
	logger        *zap.Logger
}

func NewManager(conversations Conversations, limiter Limiter, learner Learner, router Router, cfg DispatcherConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		dispatcher:    NewDispatcher(cfg, logger.Named("dispatcher")),
		conversations: conversations,
		limiter:       limiter,
		learner:       learner,
		router:        router,
		logger:        logger,
	}
}

type sendReturn struct {
	result *SendResult
	err    error
}

// Send queues one message for the client and waits for the assistant reply.
// Messages of the same client run one at a time in submission order.
func (m *Manager) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, errors.New("content cannot be empty")
	}
	resultCh := make(chan sendReturn, 1)
	job := Job{
		Type:     Send,
		ClientID: req.ClientID,
		run: func() {
			res, err := m.handleSend(ctx, req)
			resultCh <- sendReturn{result: res, err: err}
		},
		abort: func() {
			resultCh <- sendReturn{err: ErrCanceled}
		},
	}
	if err := m.dispatcher.Submit(job); err != nil {
		return nil, err
	}
	ret := <-resultCh
	return ret.result, ret.err
}

func (m *Manager) handleSend(ctx context.Context, req SendRequest) (res *SendResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("send panicked", zap.String("client_id", req.ClientID), zap.Any("panic", r))
			err = fmt.Errorf("send message: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := m.conversations.GetClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	history, err := m.conversations.History(ctx, req.ClientID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	if client.Subscribed {
		if _, err := m.limiter.Increment(ctx, req.ClientID); err != nil {
			return nil, err
		}
	} else {
		ok, err := m.limiter.TryAcquire(ctx, req.ClientID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrLimitReached
		}
	}

	userMsg := &models.ChatMessage{
		Content: req.Content,
		Sender:  models.SenderUser,
		Type:    models.TypeText,
	}
	if err := m.conversations.AppendMessage(ctx, req.ClientID, req.ConversationID, userMsg); err != nil {
		return nil, err
	}
	if req.Ack != nil {
		req.Ack(userMsg)
	}

	// Looked up before this message is recorded so it only reflects earlier ones.
	related, err := m.learner.SimilarPatterns(ctx, req.ClientID, req.Content)
	if err != nil {
		m.logger.Warn("similar patterns", zap.String("client_id", req.ClientID), zap.Error(err))
	}
	if err := m.learner.LearnFromInteraction(ctx, req.ClientID, req.Content, history); err != nil {
		m.logger.Warn("learn from interaction", zap.String("client_id", req.ClientID), zap.Error(err))
	}
	profile, err := m.learner.PersonalizedContext(ctx, req.ClientID)
	if err != nil {
		m.logger.Warn("personalized context", zap.String("client_id", req.ClientID), zap.Error(err))
	}

	profile = withRelatedRequests(profile, related)

	content := m.router.Route(ai.WithProfileContext(ctx, profile), req.Content, history)

	// The user already got an ack, so the reply is stored even if the caller left.
	storeCtx := context.WithoutCancel(ctx)
	assistantMsg := &models.ChatMessage{
		ID:        m.conversations.IDs().Next(userMsg.Timestamp),
		Content:   content.Content,
		Sender:    models.SenderAssistant,
		Type:      content.Type,
		MediaURL:  content.MediaURL,
		TableHTML: content.TableHTML,
	}
	if err := m.conversations.AppendMessage(storeCtx, req.ClientID, req.ConversationID, assistantMsg); err != nil {
		return nil, err
	}
	if err := m.learner.LearnFromResponse(storeCtx, req.ClientID, content.Content, req.Content); err != nil {
		m.logger.Warn("learn from response", zap.String("client_id", req.ClientID), zap.Error(err))
	}

	m.logger.Debug("message handled",
		zap.String("client_id", req.ClientID),
		zap.String("conversation_id", req.ConversationID),
		zap.String("type", string(content.Type)),
	)
	return &SendResult{User: userMsg, Assistant: assistantMsg}, nil
}

func withRelatedRequests(profile string, related []models.UserPattern) string {
	if len(related) == 0 {
		return profile
	}
	topics := make([]string, len(related))
	for i, p := range related {
		topics[i] = strings.Join(p.Keywords, " ")
	}
	return profile + "Asked before about: " + strings.Join(topics, "; ") + ". "
}

// ResetClient drops the client's queued messages.
func (m *Manager) ResetClient(clientID string) {
	m.dispatcher.CancelClient(clientID)
}

func (m *Manager) Close() {
	m.dispatcher.Close()
}
