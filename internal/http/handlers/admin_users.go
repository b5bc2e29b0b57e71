package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/TharinduDesh/incidenthub/internal/domain/user"
	"github.com/TharinduDesh/incidenthub/internal/repo/postgres"
	"github.com/TharinduDesh/incidenthub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminUserStore interface {
	List(ctx context.Context) ([]user.User, error)
	Create(ctx context.Context, u user.User) error
	Update(ctx context.Context, id string, upd postgres.UserUpdate) (user.User, error)
	Delete(ctx context.Context, id string) error
}

// AdminUsersHandler is the admin-only user management surface. All
// routes behind it assume the RBAC middleware already verified the
// caller's role.
type AdminUsersHandler struct {
	users AdminUserStore
	log   *slog.Logger
}

func NewAdminUsersHandler(users AdminUserStore, log *slog.Logger) *AdminUsersHandler {
	return &AdminUsersHandler{users: users, log: log}
}

func (h *AdminUsersHandler) ListUsers(ctx *gin.Context) {
	list, err := h.users.List(ctx.Request.Context())

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	if list == nil {
		list = []user.User{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   list,
	})
}

type AdminCreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	UserType string `json:"userType"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// CreateUser provisions an account directly. Unlike self-signup the
// result is verified from the start and no email goes out.
func (h *AdminUsersHandler) CreateUser(ctx *gin.Context) {
	var req AdminCreateUserRequest

	if !BindJSON(ctx, &req) {
		return
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
		Role:         user.ParseRole(req.UserType),
		Phone:        req.Phone,
		Address:      req.Address,
		IsVerified:   true,
		LastLoginAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.users.Create(ctx.Request.Context(), u); err != nil {
		if errors.Is(err, postgres.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email already exists")
			return
		}
		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User created successfully",
		"user":    u,
	})
}

type AdminUpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" binding:"omitempty,email"`
	UserType *string `json:"userType"`
	Password *string `json:"password" binding:"omitempty,min=8"`
}

func (h *AdminUsersHandler) UpdateUser(ctx *gin.Context) {
	var req AdminUpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	upd := postgres.UserUpdate{
		Name:  req.Name,
		Email: req.Email,
	}

	if req.UserType != nil {
		role := user.ParseRole(*req.UserType)
		upd.Role = &role
	}

	if req.Password != nil {
		hash, err := security.HashPassword(*req.Password)
		if err != nil {
			RespondInternal(ctx, "Could not update user")
			return
		}
		upd.PasswordHash = &hash
	}

	updated, err := h.users.Update(ctx.Request.Context(), ctx.Param("id"), upd)

	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrNoFieldsToUpdate):
			RespondBadRequest(ctx, "no_fields", "No valid fields to update", nil)
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, postgres.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email already in use")
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User updated successfully",
		"user":    updated,
	})
}

func (h *AdminUsersHandler) DeleteUser(ctx *gin.Context) {
	err := h.users.Delete(ctx.Request.Context(), ctx.Param("id"))

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User deleted successfully",
	})
}
