package middlewares_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TharinduDesh/incidenthub/internal/auth"
	"github.com/TharinduDesh/incidenthub/internal/domain/user"
	"github.com/TharinduDesh/incidenthub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	claims *auth.Claims
	err    error
}

func (f *fakeVerifier) VerifySessionToken(token string) (*auth.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.claims, nil
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func TestRequireSession(t *testing.T) {
	tests := []struct {
		name           string
		cookie         *http.Cookie
		verifier       *fakeVerifier
		wantStatusCode int
	}{
		{
			name:           "missing_cookie",
			verifier:       &fakeVerifier{},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "invalid_token",
			cookie:         &http.Cookie{Name: "session_token", Value: "garbage"},
			verifier:       &fakeVerifier{err: errors.New("bad signature")},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:   "valid_token",
			cookie: &http.Cookie{Name: "session_token", Value: "good"},
			verifier: &fakeVerifier{
				claims: &auth.Claims{UserID: "u-1", Email: "jane@example.com", Role: "user"},
			},
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			m := middlewares.NewSessionMiddleware(tt.verifier, "session_token")

			r := gin.New()
			r.GET("/protected", m.RequireSession(), okHandler)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestRequireSession_AttachesIdentity(t *testing.T) {
	m := middlewares.NewSessionMiddleware(&fakeVerifier{
		claims: &auth.Claims{UserID: "u-1", Email: "jane@example.com", Role: "admin"},
	}, "session_token")

	r := gin.New()
	r.GET("/protected", m.RequireSession(), func(c *gin.Context) {
		id, ok := middlewares.UserIDFromContext(c)
		if !ok || id != "u-1" {
			t.Errorf("user id not attached: %q %v", id, ok)
		}

		email, ok := middlewares.EmailFromContext(c)
		if !ok || email != "jane@example.com" {
			t.Errorf("email not attached: %q %v", email, ok)
		}

		role, ok := middlewares.RoleFromContext(c)
		if !ok || role != user.RoleAdmin {
			t.Errorf("role not attached: %q %v", role, ok)
		}

		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "good"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name           string
		claims         *auth.Claims
		required       user.Role
		wantStatusCode int
	}{
		{
			name:           "admin_passes_admin_gate",
			claims:         &auth.Claims{UserID: "u-1", Role: "admin"},
			required:       user.RoleAdmin,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "admin_passes_user_gate",
			claims:         &auth.Claims{UserID: "u-1", Role: "admin"},
			required:       user.RoleUser,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "user_denied_admin_gate",
			claims:         &auth.Claims{UserID: "u-2", Role: "user"},
			required:       user.RoleAdmin,
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "user_passes_user_gate",
			claims:         &auth.Claims{UserID: "u-2", Role: "user"},
			required:       user.RoleUser,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "unknown_role_denied",
			claims:         &auth.Claims{UserID: "u-3", Role: "superuser"},
			required:       user.RoleUser,
			wantStatusCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			m := middlewares.NewSessionMiddleware(&fakeVerifier{claims: tt.claims}, "session_token")

			r := gin.New()
			r.GET("/gated", m.RequireSession(), m.RequireRole(tt.required), okHandler)

			req := httptest.NewRequest(http.MethodGet, "/gated", nil)
			req.AddCookie(&http.Cookie{Name: "session_token", Value: "good"})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := middlewares.NewRateLimiter(3, time.Minute)

	r := gin.New()
	r.POST("/login", rl.Middleware(middlewares.KeyByIP), okHandler)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 3; i++ {
		if w := do(); w.Code != http.StatusOK {
			t.Fatalf("request %d: got status %d, want 200", i, w.Code)
		}
	}

	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("got status %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected a Retry-After header")
	}
}

func TestRateLimiter_SeparateClients(t *testing.T) {
	rl := middlewares.NewRateLimiter(1, time.Minute)

	r := gin.New()
	r.POST("/login", rl.Middleware(middlewares.KeyByIP), okHandler)

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := do("10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("first client: got %d", w.Code)
	}
	if w := do("10.0.0.2:1234"); w.Code != http.StatusOK {
		t.Fatalf("second client should have its own window, got %d", w.Code)
	}
	if w := do("10.0.0.1:9999"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("same IP different port should share the window, got %d", w.Code)
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequireJSON())
	r.POST("/x", okHandler)
	r.GET("/y", okHandler)

	t.Run("post_without_content_type_rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Body = http.NoBody
		req.ContentLength = 5
		req.Header.Set("Content-Type", "text/plain")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("got status %d, want 415", w.Code)
		}
	})

	t.Run("post_with_json_allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.ContentLength = 5
		req.Header.Set("Content-Type", "application/json; charset=utf-8")

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, want 200", w.Code)
		}
	})

	t.Run("empty_body_post_allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, want 200", w.Code)
		}
	})

	t.Run("get_untouched", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/y", nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, want 200", w.Code)
		}
	})
}
