package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kimeia/alientu-engine/config"
	"github.com/kimeia/alientu-engine/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-tests",
		AccessTokenTTL: time.Hour,
	})
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth ──

func TestJWTAuth(t *testing.T) {
	mgr := newTestJWT()
	token, err := mgr.GenerateAccessToken("anna", "Anna Ferri")
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.GET("/me", JWTAuth(mgr, nil), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxOperatorID)+"|"+c.GetString(CtxOperatorName))
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"Missing", "", 401},
		{"NotBearer", "Basic abc", 401},
		{"Garbage", "Bearer not-a-token", 401},
		{"Valid", "Bearer " + token, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := do(r, req)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus == 200 && w.Body.String() != "anna|Anna Ferri" {
				t.Errorf("unexpected context values: %s", w.Body.String())
			}
		})
	}
}

// ── RateLimit ──

func TestRateLimit_NoRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.POST("/submit", RateLimit(nil, 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusCreated) })

	for i := 0; i < 3; i++ {
		if w := do(r, httptest.NewRequest("POST", "/submit", nil)); w.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i+1, w.Code)
		}
	}
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc-123_X")
	if w := do(r, req); w.Body.String() != "abc-123_X" || w.Header().Get("X-Request-ID") != "abc-123_X" {
		t.Errorf("expected upstream id to be kept, got %q", w.Body.String())
	}

	for _, bad := range []string{"", "bad id\nlog", strings.Repeat("a", 65)} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Request-ID", bad)
		w := do(r, req)
		if got := w.Body.String(); got == bad || len(got) != 36 {
			t.Errorf("expected generated uuid for %q, got %q", bad, got)
		}
	}
}

// ── CORS ──

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://admin.alientu.it/", "*"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("Origin", "https://admin.alientu.it")
	w := do(r, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "https://admin.alientu.it" ||
		w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Errorf("admin origin should be echoed with credentials: %v", w.Header())
	}

	req = httptest.NewRequest("OPTIONS", "/x", nil)
	req.Header.Set("Origin", "https://www.parrocchia.it")
	w = do(r, req)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("wildcard preflight: got %d %v", w.Code, w.Header())
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("wildcard origin must not allow credentials")
	}
}

func TestCORS_UnknownOriginPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://admin.alientu.it"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("OPTIONS", "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	if w := do(r, req); w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

// ── BodyLimit ──

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(1 << 10))
	read := func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				c.Status(http.StatusRequestEntityTooLarge)
				return
			}
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	}
	r.POST("/admin", read)
	r.POST("/public", BodyLimit(16), read)

	tests := []struct {
		name       string
		path       string
		body       string
		chunked    bool
		wantStatus int
	}{
		{"WithinGlobal", "/admin", strings.Repeat("a", 512), false, 200},
		{"DeclaredTooLarge", "/admin", strings.Repeat("a", 2048), false, 413},
		{"UndeclaredTooLarge", "/admin", strings.Repeat("a", 2048), true, 413},
		{"RouteLimitSmaller", "/public", strings.Repeat("a", 64), false, 413},
		{"RouteLimitOK", "/public", "{}", false, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.path, strings.NewReader(tt.body))
			if tt.chunked {
				req.ContentLength = -1
			}
			if w := do(r, req); w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestBodyLimit_Disabled(t *testing.T) {
	r := gin.New()
	r.POST("/x", BodyLimit(0), func(c *gin.Context) {
		data, _ := c.GetRawData()
		c.String(http.StatusOK, "%d", len(data))
	})

	w := do(r, httptest.NewRequest("POST", "/x", strings.NewReader(strings.Repeat("a", 4096))))
	if w.Code != http.StatusOK || w.Body.String() != "4096" {
		t.Errorf("limit 0 should not restrict the body: %d %s", w.Code, w.Body.String())
	}
}

// ── SecurityHeaders ──

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, httptest.NewRequest("GET", "/x", nil))
	if w.Header().Get("Cache-Control") != "no-store" || w.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("missing security headers: %v", w.Header())
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS should only be set over https")
	}

	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	if w := do(r, req); w.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS behind https proxy")
	}
}
