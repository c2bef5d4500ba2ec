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
	"github.com/avelichko/vidstream/internal/service/user"
)

// Multipart form memory limit, bigger files spill to disk
const maxMultipartMemory = 32 << 20

type userService interface {
	Register(ctx context.Context, p user.RegisterParams) (models.User, error)
	UpdateAccount(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, f user.File) (models.User, error)
	UpdateCover(ctx context.Context, userID uuid.UUID, f user.File) (models.User, error)

	// Channel aggregation, viewerID may be nil for anonymous callers
	GetChannelProfile(ctx context.Context, username string, viewerID *uuid.UUID) (models.ChannelProfile, error)
	Subscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error
	Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error
}

type UserHandler struct {
	users  userService
	logger logger.Logger
}

func NewUser(users userService, l logger.Logger) *UserHandler {
	return &UserHandler{users: users, logger: l}
}

func (h *UserHandler) register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		FullName string `json:"fullName" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Username string `json:"username" validate:"required,min=2,max=50"`
		Password string `json:"password" validate:"required,min=8"`
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		render.ServiceError(w, "Expected multipart form data", http.StatusBadRequest)
		return
	}

	data := RegisterRequest{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}
	if err := render.Validate(w, data); err != nil {
		return
	}

	avatar, ok := formFile(r, "avatar")
	if !ok {
		render.ServiceError(w, "Please upload an avatar", http.StatusBadRequest)
		return
	}

	var cover *user.File
	if f, ok := formFile(r, "cover"); ok {
		cover = &f
	}

	created, err := h.users.Register(r.Context(), user.RegisterParams{
		FullName: data.FullName,
		Email:    data.Email,
		Username: data.Username,
		Password: data.Password,
		Avatar:   avatar,
		Cover:    cover,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		default:
			h.logger.Error("registration failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSONWithStatus(w, created.Public(), http.StatusCreated)
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	u, _ := userctx.FromContext(r.Context())
	render.JSON(w, u.Public())
}

func (h *UserHandler) updateAccount(w http.ResponseWriter, r *http.Request) {
	type UpdateAccountRequest struct {
		FullName string `json:"fullName" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
	}

	data, err := render.BindAndValidate[UpdateAccountRequest](w, r)
	if err != nil {
		return
	}

	u, _ := userctx.FromContext(r.Context())

	updated, err := h.users.UpdateAccount(r.Context(), u.ID, data.FullName, data.Email)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "Email already taken", http.StatusConflict)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		default:
			h.logger.Error("account update failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, updated.Public())
}

func (h *UserHandler) updateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateMedia(w, r, "avatar", h.users.UpdateAvatar)
}

func (h *UserHandler) updateCover(w http.ResponseWriter, r *http.Request) {
	h.updateMedia(w, r, "cover", h.users.UpdateCover)
}

func (h *UserHandler) updateMedia(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, userID uuid.UUID, f user.File) (models.User, error),
) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		render.ServiceError(w, "Expected multipart form data", http.StatusBadRequest)
		return
	}

	f, ok := formFile(r, field)
	if !ok {
		render.ServiceError(w, "Please upload a file", http.StatusBadRequest)
		return
	}

	u, _ := userctx.FromContext(r.Context())

	updated, err := update(r.Context(), u.ID, f)
	if err != nil {
		h.logger.Error("media update failed", "field", field, "error", err.Error())
		render.ServiceError(w, "Upload failed", http.StatusInternalServerError)
		return
	}

	render.JSON(w, updated.Public())
}

func (h *UserHandler) channelProfile(w http.ResponseWriter, r *http.Request) {
	type ChannelProfileResponse struct {
		models.PublicUser
		SubscriberCount   int64 `json:"subscriberCount"`
		SubscribedToCount int64 `json:"subscribedToCount"`
		IsSubscribed      bool  `json:"isSubscribed"`
	}

	username := r.PathValue("username")
	if username == "" {
		render.ServiceError(w, "Username is required", http.StatusBadRequest)
		return
	}

	// Viewer is optional: anonymous callers get IsSubscribed=false
	var viewerID *uuid.UUID
	if viewer, ok := userctx.FromContext(r.Context()); ok {
		viewerID = &viewer.ID
	}

	profile, err := h.users.GetChannelProfile(r.Context(), username, viewerID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Channel not found", http.StatusNotFound)
		default:
			h.logger.Error("channel profile failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, ChannelProfileResponse{
		PublicUser:        profile.User,
		SubscriberCount:   profile.SubscriberCount,
		SubscribedToCount: profile.SubscribedToCount,
		IsSubscribed:      profile.IsSubscribed,
	})
}

func (h *UserHandler) subscribe(w http.ResponseWriter, r *http.Request) {
	h.setSubscription(w, r, h.users.Subscribe, "Subscribed successfully")
}

func (h *UserHandler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	h.setSubscription(w, r, h.users.Unsubscribe, "Unsubscribed successfully")
}

func (h *UserHandler) setSubscription(
	w http.ResponseWriter,
	r *http.Request,
	set func(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error,
	message string,
) {
	type SubscriptionResponse struct {
		Message string `json:"message"`
	}

	username := r.PathValue("username")
	if username == "" {
		render.ServiceError(w, "Username is required", http.StatusBadRequest)
		return
	}

	u, _ := userctx.FromContext(r.Context())

	if err := set(r.Context(), u.ID, username); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "Channel not found", http.StatusNotFound)
		default:
			h.logger.Error("subscription change failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, SubscriptionResponse{Message: message})
}

func formFile(r *http.Request, field string) (user.File, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return user.File{}, false
	}

	return user.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     file,
	}, true
}
