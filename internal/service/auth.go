package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/hash"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/metrics"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUserNotFound       = repo.ErrUserNotFound
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = tokens.ErrInvalidToken
	ErrExpiredSession     = errors.New("session expired")
	ErrStaleSession       = errors.New("refresh token is not the current one")
)

// SessionTTL is how long a stored refresh token stays usable after it is written.
const SessionTTL = 7 * 24 * time.Hour

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, id string, fields map[string]any) error
	SwapRefreshToken(ctx context.Context, id, current string, fields map[string]any) (bool, error)
}

type AuthService struct {
	Repo    UserRepository
	Tokens  *tokens.Issuer
	Events  events.Publisher
	Topic   string
	Metrics *metrics.Recorder
	Now     func() time.Time
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, email, username, password string) (pair *TokenPair, err error) {
	defer func() { s.Metrics.Observe("register", err) }()
	l := logging.FromContext(ctx).With("svc", "auth.register")
	email = NormalizeEmail(email)

	if _, err := s.Repo.FindByEmail(ctx, email); err == nil {
		l.Warn("register_failed", "reason", "email already registered")
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		l.Error("register_failed", "reason", "lookup failed", "error", err)
		return nil, fmt.Errorf("find user: %w", err)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_failed", "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: pwHash,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_failed", "reason", "email already registered")
			return nil, ErrDuplicateEmail
		}
		l.Error("register_failed", "reason", "cannot create user", "error", err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	pair, err = s.login(ctx, user)
	if err != nil {
		l.Error("register_failed", "reason", "cannot start session", "user_id", user.ID, "error", err)
		return nil, err
	}

	s.publish(ctx, events.UserRegistered, user.ID, user.Email)
	l.Info("user_registered", "user_id", user.ID)
	return pair, nil
}

// ValidateUser checks credentials without touching session state.
func (s *AuthService) ValidateUser(ctx context.Context, email, password string) (user *models.User, err error) {
	defer func() { s.Metrics.Observe("validate", err) }()
	l := logging.FromContext(ctx).With("svc", "auth.validate")

	user, err = s.Repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			l.Warn("validate_failed", "reason", "user not found")
			return nil, ErrUserNotFound
		}
		l.Error("validate_failed", "reason", "lookup failed", "error", err)
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("validate_failed", "reason", "password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login starts a new session for an already validated user. Any earlier refresh token
// stops working.
func (s *AuthService) Login(ctx context.Context, user *models.User) (pair *TokenPair, err error) {
	defer func() { s.Metrics.Observe("login", err) }()

	pair, err = s.login(ctx, user)
	if err != nil {
		logging.FromContext(ctx).Error("login_failed", "user_id", user.ID, "error", err)
		return nil, err
	}
	s.publish(ctx, events.UserLoggedIn, user.ID, user.Email)
	return pair, nil
}

func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.ValidateUser(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.Login(ctx, user)
}

func (s *AuthService) Refresh(ctx context.Context, presented string) (pair *TokenPair, err error) {
	defer func() { s.Metrics.Observe("refresh", err) }()
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := s.Tokens.VerifyRefreshToken(presented)
	if err != nil {
		l.Warn("refresh_failed", "reason", "invalid token", "error", err)
		return nil, ErrInvalidToken
	}

	user, err := s.Repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			l.Warn("refresh_failed", "reason", "user not found", "user_id", claims.Subject)
			return nil, ErrExpiredSession
		}
		l.Error("refresh_failed", "reason", "lookup failed", "error", err)
		return nil, fmt.Errorf("find user: %w", err)
	}

	now := s.now()
	if user.RefreshTokenExpiry == nil || !now.Before(*user.RefreshTokenExpiry) {
		l.Warn("refresh_failed", "reason", "session expired", "user_id", user.ID)
		return nil, ErrExpiredSession
	}
	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(presented)) != 1 {
		l.Warn("refresh_failed", "reason", "stale refresh token", "user_id", user.ID)
		return nil, ErrStaleSession
	}

	pair, err = s.issue(user, now)
	if err != nil {
		l.Error("refresh_failed", "reason", "cannot issue tokens", "error", err)
		return nil, err
	}

	swapped, err := s.Repo.SwapRefreshToken(ctx, user.ID, presented, sessionFields(pair, now))
	if err != nil {
		l.Error("refresh_failed", "reason", "cannot store refresh token", "error", err)
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	if !swapped {
		l.Warn("refresh_failed", "reason", "rotated concurrently", "user_id", user.ID)
		return nil, ErrStaleSession
	}

	s.publish(ctx, events.TokenRefreshed, user.ID, user.Email)
	return pair, nil
}

// Logout drops the stored refresh token. Unknown ids and repeated calls succeed.
func (s *AuthService) Logout(ctx context.Context, userID string) (err error) {
	defer func() { s.Metrics.Observe("logout", err) }()

	if err := s.Repo.Update(ctx, userID, map[string]any{"refresh_token": nil}); err != nil {
		logging.FromContext(ctx).Error("logout_failed", "user_id", userID, "error", err)
		return fmt.Errorf("clear refresh token: %w", err)
	}
	s.publish(ctx, events.UserLoggedOut, userID, "")
	return nil
}

func (s *AuthService) login(ctx context.Context, user *models.User) (*TokenPair, error) {
	now := s.now()
	pair, err := s.issue(user, now)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, user.ID, sessionFields(pair, now)); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return pair, nil
}

func (s *AuthService) issue(user *models.User, now time.Time) (*TokenPair, error) {
	payload := tokens.Payload{
		Subject:  user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.RoleName(),
	}

	access, err := s.Tokens.IssueAccessToken(payload)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.Tokens.IssueRefreshToken(payload)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(s.Tokens.AccessTTL()),
		RefreshExpiresAt: now.Add(s.Tokens.RefreshTTL()),
	}, nil
}

func sessionFields(pair *TokenPair, now time.Time) map[string]any {
	return map[string]any{
		"refresh_token":        pair.RefreshToken,
		"refresh_token_expiry": now.Add(SessionTTL).UTC(),
	}
}

func (s *AuthService) publish(ctx context.Context, typ, userID, email string) {
	if s.Events == nil {
		return
	}
	topic := s.Topic
	if topic == "" {
		topic = events.DefaultTopic
	}
	ev := events.NewUserEvent(typ, userID, email, s.now())
	if err := s.Events.PublishEvent(ctx, topic, userID, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_failed", "event", typ, "user_id", userID, "error", err)
	}
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
