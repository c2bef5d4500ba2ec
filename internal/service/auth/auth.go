package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/avelichko/vidstream/internal/apperrors"
	"github.com/avelichko/vidstream/internal/models"
	"github.com/avelichko/vidstream/internal/repository"
	"github.com/avelichko/vidstream/internal/service/auth/tokenmanager"
)

const (
	defaultAccessCookieName  = "accessToken"
	defaultRefreshCookieName = "refreshToken"
	defaultAccessHeaderName  = "Authorization"
	defaultAccessAuthScheme  = "Bearer"
)

type Config struct {
	// Hasher to use during login or password change
	// BcryptHasher is used if not set
	Hasher PasswordHasher

	// Cookie and header plumbing, defaults are fine for most cases
	AccessCookieName  string
	RefreshCookieName string
	AccessHeaderName  string
	AccessAuthScheme  string
}

// AuthService orchestrates login, refresh, logout and password change.
// It is the only place allowed to mutate the stored refresh token, which
// keeps the "at most one live refresh token per user" invariant in one spot.
type AuthService struct {
	token   *tokenmanager.TokenManager
	hasher  PasswordHasher
	storage repository.Storage

	accessCookieName  string
	refreshCookieName string
	accessHeaderName  string
	accessAuthScheme  string
}

func NewService(cfg Config, token *tokenmanager.TokenManager, storage repository.Storage) (*AuthService, error) {
	if token == nil || storage == nil {
		return nil, errors.New("token manager and storage must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	setDefault := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefault(&cfg.AccessCookieName, defaultAccessCookieName)
	setDefault(&cfg.RefreshCookieName, defaultRefreshCookieName)
	setDefault(&cfg.AccessHeaderName, defaultAccessHeaderName)
	setDefault(&cfg.AccessAuthScheme, defaultAccessAuthScheme)

	return &AuthService{
		token:             token,
		hasher:            hasher,
		storage:           storage,
		accessCookieName:  cfg.AccessCookieName,
		refreshCookieName: cfg.RefreshCookieName,
		accessHeaderName:  cfg.AccessHeaderName,
		accessAuthScheme:  cfg.AccessAuthScheme,
	}, nil
}

// Login resolves user by username or email, verifies the password and
// issues a fresh token pair. The refresh token is persisted on the user
// record, superseding whatever was there before.
func (s *AuthService) Login(ctx context.Context, identifier string, password string) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return models.User{}, pair, apperrors.ErrIdentifierRequired
	}

	user, err := s.storage.User().GetByIdentifier(ctx, identifier)
	if err != nil {
		return models.User{}, pair, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, pair, apperrors.ErrWrongPassword
	}

	pair, err = s.token.IssuePair(user.ID)
	if err != nil {
		return models.User{}, pair, fmt.Errorf("token could not be issued. Err: %w", err)
	}

	err = s.storage.User().SetRefreshToken(ctx, user.ID, &pair.Refresh.Value)
	if err != nil {
		return models.User{}, pair, fmt.Errorf("can't persist refresh token. Err: %w", err)
	}

	user.RefreshToken = &pair.Refresh.Value
	return user, pair, nil
}

// RefreshPair rotates the token pair: the presented refresh token must both
// verify cryptographically and match the stored one exactly. The second
// condition is what makes logout and rotation effective revocation even
// though the old token stays crypto-valid until expiry.
// Every failure is normalized to apperrors.ErrInvalidToken.
func (s *AuthService) RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	userID, err := s.token.ParseRefresh(refresh)
	if err != nil {
		return pair, apperrors.ErrInvalidToken
	}

	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		user, err := st.User().GetByID(ctx, userID)
		if err != nil {
			return apperrors.ErrInvalidToken
		}

		if user.RefreshToken == nil || *user.RefreshToken != refresh {
			return apperrors.ErrInvalidToken
		}

		pair, err = s.token.IssuePair(user.ID)
		if err != nil {
			return fmt.Errorf("token could not be issued. Err: %w", err)
		}

		return st.User().SetRefreshToken(ctx, user.ID, &pair.Refresh.Value)
	})
	if err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

// Logout clears the stored refresh token unconditionally. No verification:
// the caller is authorized upstream by access token possession.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.storage.User().SetRefreshToken(ctx, userID, nil)
}

// ChangePassword verifies the current password and replaces the hash.
// The stored refresh token is intentionally left as is.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword string, newPassword string) error {
	user, err := s.storage.User().GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.HashedPassword, currentPassword); err != nil {
		return apperrors.ErrWrongPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password. Err: %w", err)
	}

	return s.storage.User().SetPassword(ctx, userID, hash)
}

// Auth authenticates the request by access token taken from the cookie or
// the Authorization header. Any failure, whatever the cause, comes back as
// apperrors.ErrInvalidToken.
func (s *AuthService) Auth(ctx context.Context, r *http.Request) (models.User, error) {
	access := s.readAccess(r)
	if access == "" {
		return models.User{}, apperrors.ErrInvalidToken
	}

	userID, err := s.token.ParseAccess(access)
	if err != nil {
		return models.User{}, apperrors.ErrInvalidToken
	}

	user, err := s.storage.User().GetByID(ctx, userID)
	if err != nil {
		return models.User{}, apperrors.ErrInvalidToken
	}

	return user, nil
}

func (s *AuthService) readAccess(r *http.Request) string {
	if cookie, err := r.Cookie(s.accessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get(s.accessHeaderName)
	scheme := s.accessAuthScheme + " "
	if len(header) > len(scheme) && strings.EqualFold(header[:len(scheme)], scheme) {
		return header[len(scheme):]
	}

	return ""
}

// GetRefresh reads refresh token from the request cookie
func (s *AuthService) GetRefresh(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.refreshCookieName)
	if err != nil || cookie.Value == "" {
		return "", apperrors.ErrInvalidToken
	}
	return cookie.Value, nil
}

// SetTokens writes both tokens as httpOnly secure cookies
func (s *AuthService) SetTokens(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.accessCookieName,
		Value:    pair.Access.Value,
		Expires:  pair.Access.ExpiresAt,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    pair.Refresh.Value,
		Expires:  pair.Refresh.ExpiresAt,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearTokens drops both token cookies
func (s *AuthService) ClearTokens(w http.ResponseWriter) {
	for _, name := range []string{s.accessCookieName, s.refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			Path:     "/",
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
