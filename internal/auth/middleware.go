package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	clientIDContextKey  = "auth_client_id"
	authTokenContextKey = "auth_token"
	viaBearerContextKey = "auth_via_bearer"
)

// Middleware validates bearer tokens and stores the authenticated client in the context.
func (s *Service) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authToken, viaBearer := s.extractToken(c)
		if authToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		clientID, err := s.ValidateToken(c.Request.Context(), authToken)
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, ErrInvalidToken) && !errors.Is(err, ErrTokenExpired) {
				status = http.StatusInternalServerError
			}
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}
		c.Set(clientIDContextKey, clientID)
		c.Set(authTokenContextKey, authToken)
		c.Set(viaBearerContextKey, viaBearer)
		c.Next()
	}
}

// RequireClientParam rejects requests whose :param differs from the
// authenticated client.
func RequireClientParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, ok := ClientIDFromContext(c)
		if !ok || c.Param(param) != clientID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// ClientIDFromContext retrieves the authenticated client id from the gin context.
func ClientIDFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(clientIDContextKey)
	if !ok {
		return "", false
	}
	clientID, ok := val.(string)
	return clientID, ok && clientID != ""
}

// AuthTokenFromContext retrieves the bearer token captured by the middleware.
func AuthTokenFromContext(c *gin.Context) (string, bool) {
	val, ok := c.Get(authTokenContextKey)
	if !ok {
		return "", false
	}
	token, ok := val.(string)
	return token, ok
}

// extractToken prefers the bearer header over the session cookie and
// reports which one supplied the token.
func (s *Service) extractToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader(s.headerName)
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:]), true
	}
	if token, err := c.Cookie(s.cookieName); err == nil && token != "" {
		return token, false
	}
	return "", false
}
