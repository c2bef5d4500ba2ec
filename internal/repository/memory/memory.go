// Package memory implements repository.Storage on top of plain maps.
// It backs unit tests that don't need a real postgres.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avelichko/vidstream/internal/apperrors"
	"github.com/avelichko/vidstream/internal/models"
	"github.com/avelichko/vidstream/internal/repository"
)

type edge struct {
	subscriberID uuid.UUID
	channelID    uuid.UUID
}

type Storage struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.User
	edges map[edge]struct{}
}

func NewStorage() *Storage {
	return &Storage{
		users: make(map[uuid.UUID]models.User),
		edges: make(map[edge]struct{}),
	}
}

func (s *Storage) User() repository.UserRepo {
	return (*userRepo)(s)
}

func (s *Storage) Subscription() repository.SubscriptionRepo {
	return (*subscriptionRepo)(s)
}

// InTx runs fn against the same storage. No real transaction semantics,
// single mutex is enough for tests.
func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) error {
	return fn(s)
}

type userRepo Storage

func (r *userRepo) CreateUser(ctx context.Context, arg repository.CreateUserParams) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == arg.Username || u.Email == arg.Email {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}
	}

	user := models.User{
		ID:             uuid.New(),
		CreatedAt:      time.Now(),
		Username:       arg.Username,
		Email:          arg.Email,
		FullName:       arg.FullName,
		AvatarURL:      arg.AvatarURL,
		CoverURL:       arg.CoverURL,
		HashedPassword: arg.HashedPassword,
	}
	r.users[user.ID] = user

	return user, nil
}

func (r *userRepo) GetByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username })
}

func (r *userRepo) GetByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == identifier || u.Email == identifier })
}

func (r *userRepo) SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	return r.update(userID, func(u *models.User) {
		if token == nil {
			u.RefreshToken = nil
			return
		}
		value := *token
		u.RefreshToken = &value
	})
}

func (r *userRepo) SetPassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error {
	return r.update(userID, func(u *models.User) { u.HashedPassword = hashedPassword })
}

func (r *userRepo) SetAvatarURL(ctx context.Context, userID uuid.UUID, url string) (models.User, error) {
	err := r.update(userID, func(u *models.User) { u.AvatarURL = url })
	if err != nil {
		return models.User{}, err
	}
	return r.GetByID(ctx, userID)
}

func (r *userRepo) SetCoverURL(ctx context.Context, userID uuid.UUID, url string) (models.User, error) {
	err := r.update(userID, func(u *models.User) { u.CoverURL = &url })
	if err != nil {
		return models.User{}, err
	}
	return r.GetByID(ctx, userID)
}

func (r *userRepo) UpdateAccount(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.users {
		if id != userID && u.Email == email {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}
	}

	u, ok := r.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}

	u.FullName = fullName
	u.Email = email
	r.users[userID] = u

	return u, nil
}

func (r *userRepo) find(match func(models.User) bool) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, apperrors.ErrUserNotFound
}

func (r *userRepo) update(userID uuid.UUID, mutate func(*models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}

	mutate(&u)
	r.users[userID] = u

	return nil
}

type subscriptionRepo Storage

func (r *subscriptionRepo) Subscribe(ctx context.Context, subscriberID uuid.UUID, channelID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.edges[edge{subscriberID: subscriberID, channelID: channelID}] = struct{}{}
	return nil
}

func (r *subscriptionRepo) Unsubscribe(ctx context.Context, subscriberID uuid.UUID, channelID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.edges, edge{subscriberID: subscriberID, channelID: channelID})
	return nil
}

func (r *subscriptionRepo) ChannelStats(ctx context.Context, channelID uuid.UUID, viewerID *uuid.UUID) (repository.ChannelStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats repository.ChannelStats
	for e := range r.edges {
		if e.channelID == channelID {
			stats.SubscriberCount++
			if viewerID != nil && e.subscriberID == *viewerID {
				stats.IsSubscribed = true
			}
		}
		if e.subscriberID == channelID {
			stats.SubscribedToCount++
		}
	}

	return stats, nil
}
