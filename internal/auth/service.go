package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"meligy/internal/redis"
)

const redisTokenPrefix = "meligy:token:"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Service issues, validates, and revokes anonymous client tokens. Valid
// tokens are cached in redis when a client is configured.
type Service struct {
	db             *sql.DB
	cache          *redis.Client
	logger         *zap.Logger
	now            func() time.Time
	tokenTTL       time.Duration
	cookieName     string
	headerName     string
	csrfCookieName string
	csrfHeaderName string
}

// NewService constructs an auth service with the supplied token lifetime.
// cache may be nil.
func NewService(db *sql.DB, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:             db,
		cache:          cache,
		logger:         logger,
		now:            time.Now,
		tokenTTL:       ttl,
		cookieName:     "meligy_token",
		headerName:     "Authorization",
		csrfCookieName: "csrf_token",
		csrfHeaderName: "X-CSRF-Token",
	}
}

// IssueToken mints a new random token for the client and persists it.
func (s *Service) IssueToken(ctx context.Context, clientID string) (string, error) {
	if strings.TrimSpace(clientID) == "" {
		return "", errors.New("invalid client id")
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	for i := 0; i < 5; i++ {
		token, err := generateToken()
		if err != nil {
			return "", err
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO client_tokens (token, client_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
			token, clientID, now, expiresAt,
		)
		if err == nil {
			s.cacheToken(ctx, token, clientID, s.tokenTTL)
			return token, nil
		}
	}
	return "", errors.New("could not issue token")
}

// NewCSRFToken returns a random token used for CSRF protection.
func (s *Service) NewCSRFToken() (string, error) {
	return generateToken()
}

// ValidateToken verifies the token exists and has not expired, returning the client id.
func (s *Service) ValidateToken(ctx context.Context, authToken string) (string, error) {
	if authToken == "" {
		return "", ErrInvalidToken
	}
	if s.cache != nil {
		if clientID, err := s.cache.Get(ctx, redisTokenPrefix+authToken); err == nil && clientID != "" {
			return clientID, nil
		} else if err != nil && !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.Warn("token cache lookup failed", zap.Error(err))
		}
	}

	var clientID string
	var expires time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT client_id, expires_at FROM client_tokens WHERE token = ?`, authToken,
	).Scan(&clientID, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("lookup token: %w", err)
	}
	now := s.now().UTC()
	if now.After(expires) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM client_tokens WHERE token = ?`, authToken)
		return "", ErrTokenExpired
	}
	s.cacheToken(ctx, authToken, clientID, expires.Sub(now))
	return clientID, nil
}

// RevokeToken deletes a single token.
func (s *Service) RevokeToken(ctx context.Context, authToken string) error {
	if authToken == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_tokens WHERE token = ?`, authToken); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.uncache(ctx, authToken)
	return nil
}

// RevokeClientTokens removes all tokens belonging to the client.
func (s *Service) RevokeClientTokens(ctx context.Context, clientID string) error {
	if clientID == "" {
		return nil
	}
	tokens, err := s.clientTokens(ctx, clientID)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_tokens WHERE client_id = ?`, clientID); err != nil {
		return fmt.Errorf("revoke client tokens: %w", err)
	}
	s.uncache(ctx, tokens...)
	return nil
}

func (s *Service) clientTokens(ctx context.Context, clientID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token FROM client_tokens WHERE client_id = ?`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list client tokens: %w", err)
	}
	defer rows.Close()
	var tokens []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, tok)
	}
	return tokens, rows.Err()
}

func (s *Service) cacheToken(ctx context.Context, token, clientID string, ttl time.Duration) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, redisTokenPrefix+token, clientID, ttl); err != nil {
		s.logger.Warn("cache token failed", zap.Error(err))
	}
}

func (s *Service) uncache(ctx context.Context, tokens ...string) {
	if s.cache == nil || len(tokens) == 0 {
		return
	}
	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = redisTokenPrefix + t
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logger.Warn("uncache tokens failed", zap.Error(err))
	}
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// AuthCookieName returns the cookie name storing auth tokens.
func (s *Service) AuthCookieName() string {
	return s.cookieName
}

// CSRFCookieName returns the cookie used for CSRF tokens.
func (s *Service) CSRFCookieName() string {
	return s.csrfCookieName
}

// CSRFHeaderName returns the CSRF header name.
func (s *Service) CSRFHeaderName() string {
	return s.csrfHeaderName
}

// TokenTTL reports the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}
