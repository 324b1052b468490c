package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/auth"
	"github.com/set-night/mindchat/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRecover(t *testing.T) {
	r := gin.New()
	r.Use(Recover(), Logging())
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal:api")
}

func TestLoggingSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(Logging())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(rec.Header().Get("X-Request-ID"))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = serve(r, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memoryCounter) Increment(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if m.counts == nil {
		m.counts = map[string]int64{}
	}
	m.counts[key]++
	return m.counts[key], nil
}

func TestRateLimit(t *testing.T) {
	counter := &memoryCounter{}
	r := gin.New()
	r.GET("/", RateLimit(counter, "guest", 2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimitFailsOpen(t *testing.T) {
	for name, counter := range map[string]Counter{
		"disabled":     nil,
		"counter down": &memoryCounter{err: errors.New("redis down")},
	} {
		t.Run(name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", RateLimit(counter, "guest", 0, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })
			assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
		})
	}
}

type userMap map[uuid.UUID]domain.User

func (m userMap) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func TestSessionLoader(t *testing.T) {
	tokens := auth.NewManager("middleware-test-secret-0123", time.Hour)
	known := domain.User{ID: uuid.New(), Email: "user@example.com"}
	users := userMap{known.ID: known}

	r := gin.New()
	r.Use(SessionLoader(tokens, users))
	r.GET("/", RequireSession(domain.SurfaceChat), func(c *gin.Context) {
		c.String(http.StatusOK, GetSession(c).User.Email)
	})

	token, _, err := tokens.Issue(known)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := serve(r, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user@example.com", rec.Body.String())

	// Valid token of an account that no longer exists
	gone, _, err := tokens.Issue(domain.User{ID: uuid.New(), Email: "gone@example.com"})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: gone})
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = serve(r, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized:chat")
}
