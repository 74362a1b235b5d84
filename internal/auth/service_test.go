package auth

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"meligy/internal/config"
	"meligy/internal/redis"
	"meligy/internal/storage"
)

func TestAuthIssueValidateRevoke(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertClient(t, db, "client-1")

	svc := NewService(db, nil, time.Hour, nil)
	token, err := svc.IssueToken(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	clientID, err := svc.ValidateToken(context.Background(), token)
	if err != nil || clientID != "client-1" {
		t.Fatalf("ValidateToken failed: id=%s err=%v", clientID, err)
	}
	if err := svc.RevokeToken(context.Background(), token); err != nil {
		t.Fatalf("RevokeToken error: %v", err)
	}
	if _, err := svc.ValidateToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after revoke, got %v", err)
	}

	token2, err := svc.IssueToken(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	if err := svc.RevokeClientTokens(context.Background(), "client-1"); err != nil {
		t.Fatalf("RevokeClientTokens error: %v", err)
	}
	if _, err := svc.ValidateToken(context.Background(), token2); err == nil {
		t.Fatalf("expected error after revoke all")
	}
}

func TestAuthIssueRejectsUnknownClient(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	svc := NewService(db, nil, time.Hour, nil)
	if _, err := svc.IssueToken(context.Background(), "ghost"); err == nil {
		t.Fatalf("expected error for unknown client")
	}
	if _, err := svc.IssueToken(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank client")
	}
}

func TestAuthValidateExpiredToken(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertClient(t, db, "client-2")

	svc := NewService(db, nil, time.Hour, nil)
	base := time.Now()
	svc.now = func() time.Time { return base }
	token, err := svc.IssueToken(context.Background(), "client-2")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	svc.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := svc.ValidateToken(context.Background(), token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	// ensure token removed
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM client_tokens WHERE token = ?`, token).Scan(&count); err != nil {
		t.Fatalf("query tokens: %v", err)
	}
	if count != 0 {
		t.Fatalf("expired token not purged")
	}
}

func TestSweepExpiredRemovesOnlyStaleTokens(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertClient(t, db, "client-3")

	svc := NewService(db, nil, time.Hour, nil)
	base := time.Now()
	svc.now = func() time.Time { return base }
	stale, err := svc.IssueToken(context.Background(), "client-3")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	svc.now = func() time.Time { return base.Add(90 * time.Minute) }
	fresh, err := svc.IssueToken(context.Background(), "client-3")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	n, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept token, got %d", n)
	}
	if _, err := svc.ValidateToken(context.Background(), stale); err == nil {
		t.Fatalf("stale token still valid")
	}
	if id, err := svc.ValidateToken(context.Background(), fresh); err != nil || id != "client-3" {
		t.Fatalf("fresh token invalid: id=%s err=%v", id, err)
	}
}

func TestMiddlewareScopesRequestsToClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := openTestDB(t)
	defer db.Close()
	insertClient(t, db, "client-4")

	svc := NewService(db, nil, time.Hour, nil)
	token, err := svc.IssueToken(context.Background(), "client-4")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	r := gin.New()
	r.GET("/clients/:id", svc.Middleware(), RequireClientParam("id"), func(c *gin.Context) {
		id, _ := ClientIDFromContext(c)
		c.String(http.StatusOK, id)
	})

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no token", "/clients/client-4", "", http.StatusUnauthorized},
		{"bad token", "/clients/client-4", "Bearer nope", http.StatusUnauthorized},
		{"other client", "/clients/client-5", "Bearer " + token, http.StatusForbidden},
		{"own client", "/clients/client-4", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, w.Code)
		}
	}
}

func TestCSRFMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(nil, nil, time.Hour, nil)
	r := gin.New()
	r.Use(svc.CSRFMiddleware())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/x", nil)
	req.AddCookie(&http.Cookie{Name: svc.CSRFCookieName(), Value: "abc"})
	req.Header.Set(svc.CSRFHeaderName(), "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with matching csrf token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected bearer request to bypass csrf, got %d", w.Code)
	}
}

func TestCSRFAppliesToCookieSessions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := openTestDB(t)
	defer db.Close()
	insertClient(t, db, "client-7")

	svc := NewService(db, nil, time.Hour, nil)
	token, err := svc.IssueToken(context.Background(), "client-7")
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}

	r := gin.New()
	group := r.Group("/clients/:id", svc.Middleware(), RequireClientParam("id"), svc.CSRFMiddleware())
	group.GET("/limit", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.POST("/conversations", func(c *gin.Context) { c.Status(http.StatusCreated) })

	cases := []struct {
		name   string
		method string
		path   string
		bearer bool
		csrf   string
		want   int
	}{
		{"cookie read", http.MethodGet, "/clients/client-7/limit", false, "", http.StatusOK},
		{"cookie write without csrf", http.MethodPost, "/clients/client-7/conversations", false, "", http.StatusForbidden},
		{"cookie write mismatched csrf", http.MethodPost, "/clients/client-7/conversations", false, "other", http.StatusForbidden},
		{"cookie write with csrf", http.MethodPost, "/clients/client-7/conversations", false, "pair", http.StatusCreated},
		{"bearer write", http.MethodPost, "/clients/client-7/conversations", true, "", http.StatusCreated},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.bearer {
			req.Header.Set("Authorization", "Bearer "+token)
		} else {
			req.AddCookie(&http.Cookie{Name: svc.AuthCookieName(), Value: token})
			req.AddCookie(&http.Cookie{Name: svc.CSRFCookieName(), Value: "pair"})
		}
		if tc.csrf != "" {
			req.Header.Set(svc.CSRFHeaderName(), tc.csrf)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, w.Code)
		}
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {
				DSN: ":memory:",
			},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func insertClient(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO clients (id, subscribed, created_at) VALUES (?, 0, ?)`, id, time.Now().UTC())
	if err != nil {
		t.Fatalf("insert client: %v", err)
	}
}

func TestAuthTokenCacheUsesRedis(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	insertClient(t, db, "client-10")

	cacheClient, cleanup := newRedisCacheClient(t)
	defer cleanup()

	svc := NewService(db, cacheClient, time.Hour, nil)
	ctx := context.Background()

	token, err := svc.IssueToken(ctx, "client-10")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	raw := cacheClient.Raw()
	if raw == nil {
		t.Fatalf("redis raw client nil")
	}
	key := redisTokenPrefix + token
	got, err := raw.Get(ctx, key).Result()
	if err != nil {
		t.Fatalf("get redis token: %v", err)
	}
	if got != "client-10" {
		t.Fatalf("expected client-10 in rdb, got %s", got)
	}

	_, _ = db.Exec(`DELETE FROM client_tokens WHERE token = ?`, token)
	clientID, err := svc.ValidateToken(ctx, token)
	if err != nil || clientID != "client-10" {
		t.Fatalf("ValidateToken via rdb failed: id=%s err=%v", clientID, err)
	}

	if err := svc.RevokeToken(ctx, token); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if _, err := raw.Get(ctx, key).Result(); err == nil {
		t.Fatalf("expected redis key deleted")
	}
	if _, err := svc.ValidateToken(ctx, token); err == nil {
		t.Fatalf("expected error after revoke and rdb delete")
	}
}

func newRedisCacheClient(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis-backed auth tests")
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("atoi port: %v", err)
	}
	db := 0
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			db = parsed
		}
	}
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Host: host,
			Port: port,
			DB:   db,
		},
	}
	client, err := redis.NewRedisClient(cfg)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if raw := client.Raw(); raw != nil {
		if err := raw.FlushDB(ctx).Err(); err != nil {
			t.Fatalf("flush db: %v", err)
		}
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup
}
