package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/TharinduDesh/incidenthub/internal/auth"
	"github.com/TharinduDesh/incidenthub/internal/config"
	"github.com/TharinduDesh/incidenthub/internal/domain/job"
	"github.com/TharinduDesh/incidenthub/internal/domain/user"
	"github.com/TharinduDesh/incidenthub/internal/http/middlewares"
	"github.com/TharinduDesh/incidenthub/internal/jobs"
	"github.com/TharinduDesh/incidenthub/internal/repo/postgres"
	"github.com/TharinduDesh/incidenthub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	verificationTTL = 24 * time.Hour
	resetTTL        = 1 * time.Hour
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	ConsumeVerificationToken(ctx context.Context, code string) (user.User, error)
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, token, newHash string) (user.User, error)
	TouchLastLogin(ctx context.Context, id string) error
}

// UserOnboarder commits user + verification job atomically.
type UserOnboarder interface {
	CreateUserWithJob(ctx context.Context, u user.User, jobReq *job.CreateRequest) error
}

// JobsEnqueuer schedules follow-up emails outside of a transaction.
// Enqueue failures after a committed state change are logged, never
// surfaced: the user's action already succeeded.
type JobsEnqueuer interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type AuthHandler struct {
	users      UserStore
	onboarding UserOnboarder
	jobs       JobsEnqueuer
	jwt        *auth.Manager
	cfg        config.Config
	log        *slog.Logger
}

func NewAuthHandler(users UserStore, onboarding UserOnboarder, jobsRepo JobsEnqueuer, jwtManager *auth.Manager, cfg config.Config, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:      users,
		onboarding: onboarding,
		jobs:       jobsRepo,
		jwt:        jwtManager,
		cfg:        cfg,
		log:        log,
	}
}

type SignUpRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Name      string `json:"name" binding:"required"`
	UserType  string `json:"userType"`
	SecretKey string `json:"secretKey"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	role := user.ParseRole(req.UserType)

	// Elevated signup is a capability check against injected
	// configuration. Wrong or unset key: nothing is created.
	if role == user.RoleAdmin {
		if h.cfg.AdminSignupKey == "" || req.SecretKey != h.cfg.AdminSignupKey {
			RespondUnauthorized(ctx, "invalid_secret_key", "Invalid secret key")
			return
		}
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         role,
		IsVerified:   role == user.RoleAdmin, // admins are born verified
		LastLoginAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var jobReq *job.CreateRequest

	if role != user.RoleAdmin {
		code, err := security.NewVerificationCode()

		if err != nil {
			RespondInternal(ctx, "Could not create user")
			return
		}

		u.Verification = &user.OneTimeToken{
			Value:     code,
			ExpiresAt: now.Add(verificationTTL),
		}

		payload, err := jobs.VerificationEmailPayload{
			UserID:      u.ID,
			Email:       u.Email,
			Name:        u.Name,
			Code:        code,
			RequestedAt: now,
		}.JSON()

		if err != nil {
			RespondInternal(ctx, "Could not create user")
			return
		}

		jobReq = &job.CreateRequest{
			Type:    jobs.TypeVerificationEmail,
			Payload: payload,
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err = h.onboarding.CreateUserWithJob(cctx, u, jobReq)

	if err != nil {
		if err == postgres.ErrEmailTaken {
			RespondConflict(ctx, "email_taken", "User already exists")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	if err := h.issueSession(ctx, u); err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"user":    u,
	})
}

type VerifyEmailRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

func (h *AuthHandler) VerifyEmail(ctx *gin.Context) {
	var req VerifyEmailRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// One statement: match + expiry check + clear. Wrong code and
	// expired code are indistinguishable to the caller.
	u, err := h.users.ConsumeVerificationToken(cctx, req.Code)

	if err != nil {
		if err == postgres.ErrTokenInvalid {
			RespondBadRequest(ctx, "invalid_code", "Invalid or expired verification code", nil)
			return
		}

		RespondInternal(ctx, "Could not verify email")
		return
	}

	h.enqueueBestEffort(cctx, jobs.TypeWelcomeEmail, jobs.WelcomeEmailPayload{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
	})

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email verified successfully",
		"user":    u,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	// Unknown email and wrong password produce identical responses.
	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if err == user.ErrNotFound {
			RespondBadRequest(ctx, "invalid_credentials", "Invalid credentials", nil)
			return
		}

		RespondInternal(ctx, "Could not log in")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondBadRequest(ctx, "invalid_credentials", "Invalid credentials", nil)
		return
	}

	if err := h.issueSession(ctx, foundUser); err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	if err := h.users.TouchLastLogin(cctx, foundUser.ID); err != nil {
		// login already succeeded from the client's point of view
		h.log.Warn("failed to record last login", "user_id", foundUser.ID, "err", err)
	}

	foundUser.LastLoginAt = time.Now().UTC()

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged in successfully",
		"user":    foundUser,
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.clearSessionCookie(ctx)

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if err == user.ErrNotFound {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not process request")
		return
	}

	token, err := security.NewResetToken()

	if err != nil {
		RespondInternal(ctx, "Could not process request")
		return
	}

	expiresAt := time.Now().UTC().Add(resetTTL)

	if err := h.users.SetResetToken(cctx, foundUser.ID, token, expiresAt); err != nil {
		RespondInternal(ctx, "Could not process request")
		return
	}

	h.enqueueBestEffort(cctx, jobs.TypePasswordResetEmail, jobs.PasswordResetEmailPayload{
		UserID:   foundUser.ID,
		Email:    foundUser.Email,
		ResetURL: h.cfg.ClientURL + "/reset-password/" + token,
	})

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password reset link sent to your email",
	})
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	token := ctx.Param("token")

	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.ConsumeResetToken(cctx, token, hash)

	if err != nil {
		if err == postgres.ErrTokenInvalid {
			RespondBadRequest(ctx, "invalid_token", "Invalid or expired reset token", nil)
			return
		}

		RespondInternal(ctx, "Could not reset password")
		return
	}

	h.enqueueBestEffort(cctx, jobs.TypeResetSuccessEmail, jobs.ResetSuccessEmailPayload{
		UserID: u.ID,
		Email:  u.Email,
	})

	// No session issued here: the user logs in with the new password.
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password reset successful",
	})
}

func (h *AuthHandler) CheckAuth(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)

	if err != nil {
		if err == user.ErrNotFound {
			// token outlived the account
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not check session")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    u,
	})
}

// Helper functions

type jsonPayload interface {
	JSON() (json.RawMessage, error)
}

// enqueueBestEffort schedules a follow-up email after the primary
// state change has committed. A failure here is logged and swallowed:
// the worker-side job is a convenience, the mutation already stuck.
func (h *AuthHandler) enqueueBestEffort(ctx context.Context, jobType string, payload jsonPayload) {
	raw, err := payload.JSON()

	if err != nil {
		h.log.Error("failed to encode email job payload", "type", jobType, "err", err)
		return
	}

	_, err = h.jobs.Create(ctx, job.CreateRequest{
		Type:    jobType,
		Payload: raw,
	})

	if err != nil {
		h.log.Error("failed to enqueue email job", "type", jobType, "err", err)
	}
}

func (h *AuthHandler) issueSession(ctx *gin.Context, u user.User) error {
	raw, expiresAt, err := h.jwt.GenerateSessionToken(u.ID, u.Email, string(u.Role))

	if err != nil {
		return err
	}

	h.setSessionCookie(ctx, raw, expiresAt)

	return nil
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	secure := h.cfg.Env == "prod"

	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.cfg.CookieName,
		raw,
		maxAge,
		"/",
		"",
		secure,
		true, // HttpOnly
	)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		h.cfg.CookieName,
		"",
		-1,
		"/",
		"",
		secure,
		true,
	)
}
