package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/TharinduDesh/incidenthub/internal/domain/user"
	"github.com/TharinduDesh/incidenthub/internal/http/middlewares"
	"github.com/TharinduDesh/incidenthub/internal/repo/postgres"
	"github.com/TharinduDesh/incidenthub/internal/security"
	"github.com/gin-gonic/gin"
)

// ProfileHandler lets a signed-in user edit their own record. The
// target id always comes from the session, never from the URL.
type ProfileHandler struct {
	users AdminUserStore
	log   *slog.Logger
}

func NewProfileHandler(users AdminUserStore, log *slog.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, log: log}
}

type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	Password *string `json:"password" binding:"omitempty,min=8"`
}

func (h *ProfileHandler) UpdateProfile(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Not authenticated")
		return
	}

	var req UpdateProfileRequest

	if !BindJSON(ctx, &req) {
		return
	}

	upd := postgres.UserUpdate{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}

	if req.Password != nil {
		hash, err := security.HashPassword(*req.Password)
		if err != nil {
			RespondInternal(ctx, "Could not update profile")
			return
		}
		upd.PasswordHash = &hash
	}

	updated, err := h.users.Update(ctx.Request.Context(), userID, upd)

	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrNoFieldsToUpdate):
			RespondBadRequest(ctx, "no_fields", "No valid fields to update", nil)
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, postgres.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email already in use")
		default:
			RespondInternal(ctx, "Could not update profile")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile updated successfully",
		"user":    updated,
	})
}
