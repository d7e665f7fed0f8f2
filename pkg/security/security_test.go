package security

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw)
	r.POST("/submit", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func doPost(r *gin.Engine, setup func(req *http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestKeyedRateLimiter_PerKeyBuckets(t *testing.T) {
	limiter := KeyedRateLimiter(3, time.Minute, func(c *gin.Context) string {
		return c.GetHeader("X-User")
	})
	r := newRouter(limiter)

	asUser := func(name string) *httptest.ResponseRecorder {
		return doPost(r, func(req *http.Request) {
			req.Header.Set("X-User", name)
		})
	}

	// 窗口内前三次放行，第四次拒绝
	for i := 0; i < 3; i++ {
		if w := asUser("alice"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}
	if w := asUser("alice"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", w.Code)
	}

	// 不同的键互不影响
	if w := asUser("bob"); w.Code != http.StatusOK {
		t.Fatalf("expected separate bucket for bob, got %d", w.Code)
	}
}

func TestKeyedRateLimiter_EmptyKeyBypasses(t *testing.T) {
	limiter := KeyedRateLimiter(1, time.Minute, func(c *gin.Context) string {
		return c.GetHeader("X-User")
	})
	r := newRouter(limiter)

	// 提不出键的请求不计入任何桶
	for i := 0; i < 5; i++ {
		if w := doPost(r, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected bypass, got %d", i+1, w.Code)
		}
	}
}

func TestRateLimiter_ByClientIP(t *testing.T) {
	r := newRouter(RateLimiter(2, time.Minute))

	fromIP := func(addr string) *httptest.ResponseRecorder {
		return doPost(r, func(req *http.Request) {
			req.RemoteAddr = addr
		})
	}

	for i := 0; i < 2; i++ {
		if w := fromIP("10.0.0.1:5000"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}
	if w := fromIP("10.0.0.1:5000"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for throttled ip, got %d", w.Code)
	}
	if w := fromIP("10.0.0.2:5000"); w.Code != http.StatusOK {
		t.Fatalf("expected fresh bucket for another ip, got %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	send := func(method, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/ping", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(http.MethodGet, "http://localhost:3000")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected origin echoed for whitelisted origin, got %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials header for whitelisted origin")
	}

	w = send(http.MethodGet, "http://evil.example.com")
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin for unknown origin, got %q", got)
	}

	w = send(http.MethodOptions, "http://localhost:3000")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", w.Code)
	}
}

func TestSecureHeaders(t *testing.T) {
	r := gin.New()
	r.Use(Secure())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected nosniff header")
	}
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("expected frame options header")
	}
}
