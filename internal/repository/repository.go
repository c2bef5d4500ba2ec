package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/avelichko/vidstream/internal/models"
)

type CreateUserParams struct {
	Username       string
	Email          string
	FullName       string
	AvatarURL      string
	CoverURL       *string
	HashedPassword string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If username or email is taken already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id, username or identifier (username OR email, single query).
	// If user not found must return apperrors.ErrUserNotFound
	GetByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (models.User, error)

	// The sole mutator of the stored refresh token. nil clears it (logout)
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error

	// Targeted single column updates, no full record validation involved
	SetPassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error
	SetAvatarURL(ctx context.Context, userID uuid.UUID, url string) (models.User, error)
	SetCoverURL(ctx context.Context, userID uuid.UUID, url string) (models.User, error)

	UpdateAccount(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error)
}

type ChannelStats struct {
	SubscriberCount   int64
	SubscribedToCount int64
	IsSubscribed      bool
}

// Subscription repository interface: subscriber -> channel edges
type SubscriptionRepo interface {
	// Create edge, idempotent: subscribing twice is not an error
	Subscribe(ctx context.Context, subscriberID uuid.UUID, channelID uuid.UUID) error
	Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelID uuid.UUID) error

	// Read-time aggregate over the edges. viewerID may be nil (anonymous
	// caller), IsSubscribed is false then.
	ChannelStats(ctx context.Context, channelID uuid.UUID, viewerID *uuid.UUID) (ChannelStats, error)
}

type Storage interface {
	User() UserRepo
	Subscription() SubscriptionRepo

	// Run fn within single database transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
