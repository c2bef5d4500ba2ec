package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/avelichko/vidstream/internal/apperrors"
	"github.com/avelichko/vidstream/internal/handlers/render"
	"github.com/avelichko/vidstream/internal/handlers/userctx"
	"github.com/avelichko/vidstream/internal/logger"
	"github.com/avelichko/vidstream/internal/models"
)

type authService interface {
	// Login user by username or email
	// Has to return apperrors.ErrIdentifierRequired if both are empty,
	// apperrors.ErrUserNotFound or apperrors.ErrWrongPassword on failure
	Login(ctx context.Context, identifier string, password string) (models.User, models.TokenPair, error)

	// Rotate the token pair using a refresh token
	// Any verification failure comes back as apperrors.ErrInvalidToken
	RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error)

	Logout(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword string, newPassword string) error

	// Cookie plumbing
	SetTokens(w http.ResponseWriter, pair models.TokenPair)
	ClearTokens(w http.ResponseWriter)
	GetRefresh(r *http.Request) (string, error)
}

type AuthHandler struct {
	auth   authService
	logger logger.Logger
}

func NewAuth(auth authService, l logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: l}
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password" validate:"required"`
	}
	type LoginSuccessResponse struct {
		User         models.PublicUser `json:"user"`
		AccessToken  string            `json:"accessToken"`
		RefreshToken string            `json:"refreshToken"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	identifier := data.Username
	if identifier == "" {
		identifier = data.Email
	}

	user, pair, err := h.auth.Login(r.Context(), identifier, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrIdentifierRequired):
			render.ServiceError(w, "Please provide username or email", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrWrongPassword):
			render.ServiceError(w, "Password is incorrect", http.StatusUnauthorized)
		default:
			h.logger.Error("login failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.auth.SetTokens(w, pair)
	render.JSON(w, LoginSuccessResponse{
		User:         user.Public(),
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
	})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshRequest struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	type RefreshSuccessResponse struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}

	// Prefer the cookie, fall back to the request body
	refresh, err := h.auth.GetRefresh(r)
	if err != nil {
		data, err := render.BindAndValidate[RefreshRequest](w, r)
		if err != nil {
			return
		}
		refresh = data.RefreshToken
	}

	pair, err := h.auth.RefreshPair(r.Context(), refresh)
	if err != nil {
		// No cause details on purpose
		render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	h.auth.SetTokens(w, pair)
	render.JSON(w, RefreshSuccessResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
	})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	type LogoutSuccessResponse struct {
		Message string `json:"message"`
	}

	user, _ := userctx.FromContext(r.Context())

	if err := h.auth.Logout(r.Context(), user.ID); err != nil {
		h.logger.Error("logout failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.auth.ClearTokens(w)
	render.JSON(w, LogoutSuccessResponse{Message: "User logged out successfully"})
}

func (h *AuthHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	type ChangePasswordRequest struct {
		CurrentPassword string `json:"currentPassword" validate:"required"`
		NewPassword     string `json:"newPassword" validate:"required,min=8"`
	}
	type ChangePasswordSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[ChangePasswordRequest](w, r)
	if err != nil {
		return
	}

	user, _ := userctx.FromContext(r.Context())

	err = h.auth.ChangePassword(r.Context(), user.ID, data.CurrentPassword, data.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrWrongPassword):
			render.ServiceError(w, "Password is incorrect", http.StatusUnauthorized)
		default:
			h.logger.Error("password change failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, ChangePasswordSuccessResponse{Message: "Password changed successfully"})
}
