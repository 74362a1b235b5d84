package ai

import (
	"context"

	"meligy/internal/models"

	"go.uber.org/zap"
)

type profileContextKey struct{}

// WithProfileContext attaches the learned user profile text to ctx.
func WithProfileContext(ctx context.Context, profile string) context.Context {
	if profile == "" {
		return ctx
	}
	return context.WithValue(ctx, profileContextKey{}, profile)
}

func ProfileContextFromContext(ctx context.Context) string {
	v, _ := ctx.Value(profileContextKey{}).(string)
	return v
}

// Service is the conversational adapter. A nil completer means every reply
// comes from the rule engine.
type Service struct {
	completer Completer
	logger    *zap.Logger
}

func NewService(completer Completer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{completer: completer, logger: logger}
}

// Respond always yields text: model output when available, otherwise the
// rule-based fallback.
func (s *Service) Respond(ctx context.Context, input string, history []*models.ChatMessage) string {
	if s.completer == nil {
		return Fallback(input)
	}
	prompt := BuildPrompt(input, history, ProfileContextFromContext(ctx))
	text, err := s.complete(ctx, prompt)
	if err != nil || text == "" {
		s.logger.Warn("chat completion failed, using fallback reply", zap.Error(err))
		return Fallback(input)
	}
	return text
}

func (s *Service) complete(ctx context.Context, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("chat completer panicked", zap.Any("panic", r))
			text, err = "", nil
		}
	}()
	return s.completer.Complete(ctx, prompt)
}
