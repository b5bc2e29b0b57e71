package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TharinduDesh/incidenthub/internal/auth"
	"github.com/TharinduDesh/incidenthub/internal/config"
	"github.com/TharinduDesh/incidenthub/internal/domain/job"
	"github.com/TharinduDesh/incidenthub/internal/domain/user"
	"github.com/TharinduDesh/incidenthub/internal/http/handlers"
	"github.com/TharinduDesh/incidenthub/internal/http/middlewares"
	"github.com/TharinduDesh/incidenthub/internal/jobs"
	"github.com/TharinduDesh/incidenthub/internal/repo/postgres"
	"github.com/TharinduDesh/incidenthub/internal/security"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during tests

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	return config.Config{
		Env:            "test",
		CookieName:     "session_token",
		AdminSignupKey: "let-me-in",
		ClientURL:      "http://localhost:5173",
	}
}

func testJWT() *auth.Manager {
	return auth.NewManager("test-secret", 7*24*time.Hour)
}

// Fake implementations of the handler-side interfaces

type fakeUserStore struct {
	getByEmailFn   func(ctx context.Context, email string) (user.User, error)
	getByIDFn      func(ctx context.Context, id string) (user.User, error)
	consumeVerifFn func(ctx context.Context, code string) (user.User, error)
	setResetFn     func(ctx context.Context, id, token string, expiresAt time.Time) error
	consumeResetFn func(ctx context.Context, token, newHash string) (user.User, error)
	touchLoginFn   func(ctx context.Context, id string) error
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUserStore) ConsumeVerificationToken(ctx context.Context, code string) (user.User, error) {
	if f.consumeVerifFn != nil {
		return f.consumeVerifFn(ctx, code)
	}
	return user.User{}, postgres.ErrTokenInvalid
}

func (f *fakeUserStore) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	if f.setResetFn != nil {
		return f.setResetFn(ctx, id, token, expiresAt)
	}
	return nil
}

func (f *fakeUserStore) ConsumeResetToken(ctx context.Context, token, newHash string) (user.User, error) {
	if f.consumeResetFn != nil {
		return f.consumeResetFn(ctx, token, newHash)
	}
	return user.User{}, postgres.ErrTokenInvalid
}

func (f *fakeUserStore) TouchLastLogin(ctx context.Context, id string) error {
	if f.touchLoginFn != nil {
		return f.touchLoginFn(ctx, id)
	}
	return nil
}

type fakeOnboarder struct {
	createFn func(ctx context.Context, u user.User, jobReq *job.CreateRequest) error

	gotUser user.User
	gotJob  *job.CreateRequest
	called  bool
}

func (f *fakeOnboarder) CreateUserWithJob(ctx context.Context, u user.User, jobReq *job.CreateRequest) error {
	f.called = true
	f.gotUser = u
	f.gotJob = jobReq

	if f.createFn != nil {
		return f.createFn(ctx, u, jobReq)
	}
	return nil
}

type fakeJobsEnqueuer struct {
	createFn func(ctx context.Context, req job.CreateRequest) (job.Job, error)
	created  []job.CreateRequest
}

func (f *fakeJobsEnqueuer) Create(ctx context.Context, req job.CreateRequest) (job.Job, error) {
	f.created = append(f.created, req)

	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return job.New(req), nil
}

func newAuthHandler(users *fakeUserStore, onboarder *fakeOnboarder, jobsRepo *fakeJobsEnqueuer) *handlers.AuthHandler {
	return handlers.NewAuthHandler(users, onboarder, jobsRepo, testJWT(), testConfig(), testLogger())
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// --- SignUp

func TestSignUpHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		onboarderSetup func(*fakeOnboarder)
		wantStatusCode int
		check          func(t *testing.T, f *fakeOnboarder, w *httptest.ResponseRecorder)
	}{
		{
			name:           "success_regular_user",
			body:           `{"email":"jane@example.com","password":"password123","name":"Jane"}`,
			wantStatusCode: http.StatusCreated,
			check: func(t *testing.T, f *fakeOnboarder, w *httptest.ResponseRecorder) {
				if !f.called {
					t.Fatalf("expected onboarder to be called")
				}
				if f.gotUser.Role != user.RoleUser {
					t.Fatalf("got role %q, want %q", f.gotUser.Role, user.RoleUser)
				}
				if f.gotUser.IsVerified {
					t.Fatalf("regular signup must start unverified")
				}
				if f.gotJob == nil || f.gotJob.Type != jobs.TypeVerificationEmail {
					t.Fatalf("expected a verification email job, got %+v", f.gotJob)
				}
				if !strings.Contains(w.Header().Get("Set-Cookie"), "session_token=") {
					t.Fatalf("expected a session cookie, got %q", w.Header().Get("Set-Cookie"))
				}
			},
		},
		{
			name:           "admin_with_valid_secret",
			body:           `{"email":"boss@example.com","password":"password123","name":"Boss","userType":"Admin","secretKey":"let-me-in"}`,
			wantStatusCode: http.StatusCreated,
			check: func(t *testing.T, f *fakeOnboarder, w *httptest.ResponseRecorder) {
				if f.gotUser.Role != user.RoleAdmin {
					t.Fatalf("got role %q, want admin", f.gotUser.Role)
				}
				if !f.gotUser.IsVerified {
					t.Fatalf("admin accounts should be verified at creation")
				}
				if f.gotJob != nil {
					t.Fatalf("admin signup must not enqueue a verification email")
				}
			},
		},
		{
			name:           "admin_with_wrong_secret",
			body:           `{"email":"mallory@example.com","password":"password123","name":"Mallory","userType":"Admin","secretKey":"guess"}`,
			wantStatusCode: http.StatusUnauthorized,
			check: func(t *testing.T, f *fakeOnboarder, w *httptest.ResponseRecorder) {
				if f.called {
					t.Fatalf("nothing should be created on a failed elevation")
				}
			},
		},
		{
			name:           "duplicate_email",
			body:           `{"email":"jane@example.com","password":"password123","name":"Jane"}`,
			onboarderSetup: func(f *fakeOnboarder) {
				f.createFn = func(ctx context.Context, u user.User, jobReq *job.CreateRequest) error {
					return postgres.ErrEmailTaken
				}
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name:           "password_too_short",
			body:           `{"email":"jane@example.com","password":"short","name":"Jane"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "missing_email",
			body:           `{"password":"password123","name":"Jane"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			onboarder := &fakeOnboarder{}
			if tt.onboarderSetup != nil {
				tt.onboarderSetup(onboarder)
			}

			h := newAuthHandler(&fakeUserStore{}, onboarder, &fakeJobsEnqueuer{})

			r := gin.New()
			r.POST("/api/auth/signup", h.SignUp)

			w := doJSON(r, http.MethodPost, "/api/auth/signup", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.check != nil {
				tt.check(t, onboarder, w)
			}
		})
	}
}

// --- Login

func TestLoginHandler(t *testing.T) {
	hash, err := security.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	known := user.User{
		ID:           "u-1",
		Email:        "jane@example.com",
		PasswordHash: hash,
		Name:         "Jane",
		Role:         user.RoleUser,
		IsVerified:   true,
	}

	tests := []struct {
		name           string
		body           string
		storeSetup     func(*fakeUserStore)
		wantStatusCode int
		wantMessage    string
	}{
		{
			name: "success",
			body: `{"email":"jane@example.com","password":"password123"}`,
			storeSetup: func(f *fakeUserStore) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return known, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "unknown_email",
			body:           `{"email":"nobody@example.com","password":"password123"}`,
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "Invalid credentials",
		},
		{
			name: "wrong_password",
			body: `{"email":"jane@example.com","password":"wrong-password"}`,
			storeSetup: func(f *fakeUserStore) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return known, nil
				}
			},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "Invalid credentials",
		},
		{
			name: "store_error",
			body: `{"email":"jane@example.com","password":"password123"}`,
			storeSetup: func(f *fakeUserStore) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return user.User{}, errors.New("db down")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUserStore{}
			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := newAuthHandler(store, &fakeOnboarder{}, &fakeJobsEnqueuer{})

			r := gin.New()
			r.POST("/api/auth/login", h.Login)

			w := doJSON(r, http.MethodPost, "/api/auth/login", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantMessage != "" {
				var resp struct {
					Message string `json:"message"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode body: %v", err)
				}
				if resp.Message != tt.wantMessage {
					t.Fatalf("got message %q, want %q", resp.Message, tt.wantMessage)
				}
			}
		})
	}
}

// Unknown email and wrong password must be indistinguishable.

func TestLoginHandler_NoAccountEnumeration(t *testing.T) {
	hash, err := security.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	withUser := &fakeUserStore{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			return user.User{ID: "u-1", Email: email, PasswordHash: hash}, nil
		},
	}
	withoutUser := &fakeUserStore{}

	run := func(store *fakeUserStore, body string) *httptest.ResponseRecorder {
		h := newAuthHandler(store, &fakeOnboarder{}, &fakeJobsEnqueuer{})
		r := gin.New()
		r.POST("/login", h.Login)
		return doJSON(r, http.MethodPost, "/login", body)
	}

	w1 := run(withoutUser, `{"email":"nobody@example.com","password":"password123"}`)
	w2 := run(withUser, `{"email":"jane@example.com","password":"wrong-password"}`)

	if w1.Code != w2.Code {
		t.Fatalf("status mismatch: %d vs %d", w1.Code, w2.Code)
	}
	if w1.Body.String() != w2.Body.String() {
		t.Fatalf("body mismatch:\n%s\nvs\n%s", w1.Body.String(), w2.Body.String())
	}
}

// --- VerifyEmail

func TestVerifyEmailHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		storeSetup     func(*fakeUserStore)
		wantStatusCode int
		wantWelcome    bool
	}{
		{
			name: "success",
			body: `{"code":"123456"}`,
			storeSetup: func(f *fakeUserStore) {
				f.consumeVerifFn = func(ctx context.Context, code string) (user.User, error) {
					return user.User{ID: "u-1", Email: "jane@example.com", Name: "Jane", IsVerified: true}, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantWelcome:    true,
		},
		{
			name:           "invalid_or_expired_code",
			body:           `{"code":"999999"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "wrong_length",
			body:           `{"code":"123"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUserStore{}
			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}
			enqueuer := &fakeJobsEnqueuer{}

			h := newAuthHandler(store, &fakeOnboarder{}, enqueuer)

			r := gin.New()
			r.POST("/api/auth/verify-email", h.VerifyEmail)

			w := doJSON(r, http.MethodPost, "/api/auth/verify-email", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantWelcome {
				if len(enqueuer.created) != 1 || enqueuer.created[0].Type != jobs.TypeWelcomeEmail {
					t.Fatalf("expected one welcome email job, got %+v", enqueuer.created)
				}
			} else if len(enqueuer.created) != 0 {
				t.Fatalf("no jobs expected, got %+v", enqueuer.created)
			}
		})
	}
}

// --- ForgotPassword / ResetPassword

func TestForgotPasswordHandler(t *testing.T) {
	known := user.User{ID: "u-1", Email: "jane@example.com", Name: "Jane"}

	t.Run("success_sets_token_and_enqueues", func(t *testing.T) {
		var gotToken string
		var gotExpiry time.Time

		store := &fakeUserStore{
			getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
				return known, nil
			},
			setResetFn: func(ctx context.Context, id, token string, expiresAt time.Time) error {
				gotToken = token
				gotExpiry = expiresAt
				return nil
			},
		}
		enqueuer := &fakeJobsEnqueuer{}

		h := newAuthHandler(store, &fakeOnboarder{}, enqueuer)
		r := gin.New()
		r.POST("/api/auth/forgot-password", h.ForgotPassword)

		w := doJSON(r, http.MethodPost, "/api/auth/forgot-password", `{"email":"jane@example.com"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
		}
		if len(gotToken) != 40 {
			t.Fatalf("reset token should be 40 hex chars, got %q", gotToken)
		}
		if remaining := time.Until(gotExpiry); remaining <= 0 || remaining > time.Hour {
			t.Fatalf("expiry should be within the next hour, got %v", gotExpiry)
		}
		if len(enqueuer.created) != 1 || enqueuer.created[0].Type != jobs.TypePasswordResetEmail {
			t.Fatalf("expected one reset email job, got %+v", enqueuer.created)
		}

		var payload jobs.PasswordResetEmailPayload
		if err := json.Unmarshal(enqueuer.created[0].Payload, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if !strings.HasSuffix(payload.ResetURL, "/reset-password/"+gotToken) {
			t.Fatalf("reset URL %q does not end with the issued token", payload.ResetURL)
		}
	})

	t.Run("unknown_email", func(t *testing.T) {
		h := newAuthHandler(&fakeUserStore{}, &fakeOnboarder{}, &fakeJobsEnqueuer{})
		r := gin.New()
		r.POST("/api/auth/forgot-password", h.ForgotPassword)

		w := doJSON(r, http.MethodPost, "/api/auth/forgot-password", `{"email":"nobody@example.com"}`)

		if w.Code != http.StatusNotFound {
			t.Fatalf("got status %d, want 404, body=%s", w.Code, w.Body.String())
		}
	})
}

func TestResetPasswordHandler(t *testing.T) {
	tests := []struct {
		name           string
		token          string
		body           string
		storeSetup     func(*fakeUserStore)
		wantStatusCode int
	}{
		{
			name:  "success",
			token: "abc123",
			body:  `{"password":"newpassword1"}`,
			storeSetup: func(f *fakeUserStore) {
				f.consumeResetFn = func(ctx context.Context, token, newHash string) (user.User, error) {
					if token != "abc123" {
						t.Fatalf("got token %q", token)
					}
					if newHash == "" || newHash == "newpassword1" {
						t.Fatalf("handler must pass a bcrypt hash, got %q", newHash)
					}
					return user.User{ID: "u-1", Email: "jane@example.com"}, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "invalid_or_expired_token",
			token:          "stale",
			body:           `{"password":"newpassword1"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "password_too_short",
			token:          "abc123",
			body:           `{"password":"short"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUserStore{}
			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := newAuthHandler(store, &fakeOnboarder{}, &fakeJobsEnqueuer{})

			r := gin.New()
			r.POST("/api/auth/reset-password/:token", h.ResetPassword)

			w := doJSON(r, http.MethodPost, "/api/auth/reset-password/"+tt.token, tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

// --- Logout

func TestLogoutHandler_ClearsCookie(t *testing.T) {
	h := newAuthHandler(&fakeUserStore{}, &fakeOnboarder{}, &fakeJobsEnqueuer{})

	r := gin.New()
	r.POST("/api/auth/logout", h.Logout)

	w := doJSON(r, http.MethodPost, "/api/auth/logout", "")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	cookie := w.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, "session_token=") || !strings.Contains(cookie, "Max-Age=0") {
		t.Fatalf("expected an expiring session cookie, got %q", cookie)
	}
}

// --- CheckAuth behind the session middleware

func TestCheckAuthHandler(t *testing.T) {
	jwtManager := testJWT()

	known := user.User{ID: "u-1", Email: "jane@example.com", Name: "Jane", Role: user.RoleUser}

	store := &fakeUserStore{
		getByIDFn: func(ctx context.Context, id string) (user.User, error) {
			if id == known.ID {
				return known, nil
			}
			return user.User{}, user.ErrNotFound
		},
	}

	h := handlers.NewAuthHandler(store, &fakeOnboarder{}, &fakeJobsEnqueuer{}, jwtManager, testConfig(), testLogger())
	session := middlewares.NewSessionMiddleware(jwtManager, "session_token")

	r := gin.New()
	r.GET("/api/auth/check-auth", session.RequireSession(), h.CheckAuth)

	t.Run("valid_session", func(t *testing.T) {
		raw, _, err := jwtManager.GenerateSessionToken(known.ID, known.Email, string(known.Role))
		if err != nil {
			t.Fatalf("token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/auth/check-auth", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: raw})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
		}
	})

	t.Run("missing_cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/check-auth", nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("got status %d, want 401", w.Code)
		}
	})

	t.Run("garbage_token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/check-auth", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "not-a-jwt"})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("got status %d, want 401", w.Code)
		}
	})

	t.Run("deleted_account", func(t *testing.T) {
		raw, _, err := jwtManager.GenerateSessionToken("gone", "gone@example.com", "user")
		if err != nil {
			t.Fatalf("token: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/auth/check-auth", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: raw})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("got status %d, want 404", w.Code)
		}
	})
}
