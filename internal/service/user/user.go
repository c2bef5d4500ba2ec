package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/avelichko/vidstream/internal/apperrors"
	"github.com/avelichko/vidstream/internal/models"
	"github.com/avelichko/vidstream/internal/repository"
	"github.com/avelichko/vidstream/internal/service/auth"
)

// MediaStorage uploads a file and returns its public URL.
// A failed upload aborts the calling operation, uploads are not retried.
type MediaStorage interface {
	Upload(ctx context.Context, name string, contentType string, r io.Reader) (string, error)
}

// File is an uploaded file taken from a multipart request
type File struct {
	Name        string
	ContentType string
	Content     io.Reader
}

type RegisterParams struct {
	FullName string
	Email    string
	Username string
	Password string

	// Avatar is required, cover is optional
	Avatar File
	Cover  *File
}

type UserService struct {
	hasher  auth.PasswordHasher
	storage repository.Storage
	media   MediaStorage
}

func NewService(hasher auth.PasswordHasher, storage repository.Storage, media MediaStorage) (*UserService, error) {
	if storage == nil || media == nil {
		return nil, errors.New("storage and media storage must not be nil")
	}

	if hasher == nil {
		hasher = auth.BcryptHasher{}
	}

	return &UserService{
		hasher:  hasher,
		storage: storage,
		media:   media,
	}, nil
}

// Register creates a new user: uniqueness check first, then media upload,
// then the insert. Username and email are stored lowercased.
func (s *UserService) Register(ctx context.Context, p RegisterParams) (models.User, error) {
	var user models.User

	username := strings.ToLower(strings.TrimSpace(p.Username))
	email := strings.ToLower(strings.TrimSpace(p.Email))

	// Same matching rule as the login lookup: username or email, either hit
	// means the identifier is taken
	for _, identifier := range []string{username, email} {
		_, err := s.storage.User().GetByIdentifier(ctx, identifier)
		switch {
		case err == nil:
			return user, apperrors.ErrUserAlreadyExists
		case errors.Is(err, apperrors.ErrUserNotFound):
		default:
			return user, err
		}
	}

	avatarURL, err := s.media.Upload(ctx, p.Avatar.Name, p.Avatar.ContentType, p.Avatar.Content)
	if err != nil {
		return user, fmt.Errorf("%w: %w", apperrors.ErrMediaUploadFailed, err)
	}

	var coverURL *string
	if p.Cover != nil {
		url, err := s.media.Upload(ctx, p.Cover.Name, p.Cover.ContentType, p.Cover.Content)
		if err != nil {
			return user, fmt.Errorf("%w: %w", apperrors.ErrMediaUploadFailed, err)
		}
		coverURL = &url
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	// Unique constraints still guard the race between the check above and
	// the insert, conflict maps to the same error
	return s.storage.User().CreateUser(ctx, repository.CreateUserParams{
		Username:       username,
		Email:          email,
		FullName:       p.FullName,
		AvatarURL:      avatarURL,
		CoverURL:       coverURL,
		HashedPassword: hash,
	})
}

func (s *UserService) UpdateAccount(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error) {
	return s.storage.User().UpdateAccount(ctx, userID, fullName, strings.ToLower(strings.TrimSpace(email)))
}

func (s *UserService) UpdateAvatar(ctx context.Context, userID uuid.UUID, f File) (models.User, error) {
	url, err := s.media.Upload(ctx, f.Name, f.ContentType, f.Content)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", apperrors.ErrMediaUploadFailed, err)
	}

	return s.storage.User().SetAvatarURL(ctx, userID, url)
}

func (s *UserService) UpdateCover(ctx context.Context, userID uuid.UUID, f File) (models.User, error) {
	url, err := s.media.Upload(ctx, f.Name, f.ContentType, f.Content)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", apperrors.ErrMediaUploadFailed, err)
	}

	return s.storage.User().SetCoverURL(ctx, userID, url)
}

// GetChannelProfile returns the user as a channel together with
// subscription aggregates. viewerID may be nil for anonymous callers.
func (s *UserService) GetChannelProfile(ctx context.Context, username string, viewerID *uuid.UUID) (models.ChannelProfile, error) {
	var profile models.ChannelProfile

	user, err := s.storage.User().GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return profile, err
	}

	stats, err := s.storage.Subscription().ChannelStats(ctx, user.ID, viewerID)
	if err != nil {
		return profile, err
	}

	return models.ChannelProfile{
		User:              user.Public(),
		SubscriberCount:   stats.SubscriberCount,
		SubscribedToCount: stats.SubscribedToCount,
		IsSubscribed:      stats.IsSubscribed,
	}, nil
}

// Subscribe makes the caller a subscriber of the channel with given username
func (s *UserService) Subscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error {
	channel, err := s.storage.User().GetByUsername(ctx, strings.ToLower(strings.TrimSpace(channelUsername)))
	if err != nil {
		return err
	}

	return s.storage.Subscription().Subscribe(ctx, subscriberID, channel.ID)
}

func (s *UserService) Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelUsername string) error {
	channel, err := s.storage.User().GetByUsername(ctx, strings.ToLower(strings.TrimSpace(channelUsername)))
	if err != nil {
		return err
	}

	return s.storage.Subscription().Unsubscribe(ctx, subscriberID, channel.ID)
}
