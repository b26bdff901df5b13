package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lexify-app/lexify-server/internal/common"
	"github.com/lexify-app/lexify-server/internal/logging"
	"github.com/lexify-app/lexify-server/internal/server/auth"
	"github.com/lexify-app/lexify-server/internal/server/config"
	"github.com/lexify-app/lexify-server/internal/server/models"
	"github.com/lexify-app/lexify-server/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// WelcomeNotifier dispatches a welcome notification off the request path.
type WelcomeNotifier interface {
	WelcomeAsync(email, name string) <-chan struct{}
}

type UserService struct {
	db                    *sql.DB
	repomanager           repomanager.RepositoryManager
	jwtSecret             []byte
	tokenValidityDuration time.Duration
	notifier              WelcomeNotifier
	logger                logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, notifier WelcomeNotifier, logger logging.Logger) *UserService {
	return &UserService{
		db:                    db,
		repomanager:           m,
		jwtSecret:             []byte(cfg.SecretKey),
		tokenValidityDuration: cfg.TokenValidityDuration,
		notifier:              notifier,
		logger:                logger.With("module", "users"),
	}
}

// SignIn resolves a verified email to an account, creating one on first
// sign-in, and issues an access token. The email arrives already verified by
// the upstream identity provider; this service never sees credentials for
// regular users. New accounts get a welcome notification after the row is
// committed, fire-and-forget.
func (s *UserService) SignIn(ctx context.Context, email, name string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, "", fmt.Errorf("%w: email is required", common.ErrValidation)
	}

	repo := s.repomanager.Users(s.db)

	user, created, err := repo.GetOrCreateByEmail(ctx, email, strings.TrimSpace(name))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	if user.Status == models.StatusSuspended {
		return nil, "", common.ErrSuspended
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidityDuration)
	if err != nil {
		return nil, "", fmt.Errorf("generating token: %w", err)
	}

	if created {
		s.logger.Info(ctx, "new account created", "userID", user.ID)
		if s.notifier != nil {
			s.notifier.WelcomeAsync(user.Email, user.Name)
		}
	}

	return user, token, nil
}

// AdminLogin authenticates an admin-console account with email and password
// and issues an access token. Non-admin accounts are rejected even with a
// valid password.
func (s *UserService) AdminLogin(ctx context.Context, email, password string) (string, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrUnauthorized
		}
		return "", fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	if user.PasswordHash == "" {
		return "", common.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", common.ErrUnauthorized
	}
	if !user.IsAdmin() {
		return "", common.ErrForbidden
	}
	if user.Status == models.StatusSuspended {
		return "", common.ErrSuspended
	}

	return auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidityDuration)
}

// FreshUser loads the account's current role and status from the store.
// Privileged checks never trust claims baked into a token: suspension or
// demotion takes effect on the next request, not at token expiry.
func (s *UserService) FreshUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	return user, nil
}

// SetSuspended toggles the account's suspended flag and returns the updated
// account.
func (s *UserService) SetSuspended(ctx context.Context, userID string, suspended bool) (*models.User, error) {
	status := models.StatusActive
	if suspended {
		status = models.StatusSuspended
	}

	user, err := s.repomanager.Users(s.db).SetStatus(ctx, userID, status)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	s.logger.Info(ctx, "account status changed", "userID", userID, "status", status)
	return user, nil
}

// SetAdminPassword hashes the password with bcrypt and promotes the account
// to the admin role. Used by the operator CLI, not the HTTP surface.
func (s *UserService) SetAdminPassword(ctx context.Context, email, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", common.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	err = s.repomanager.Users(s.db).SetAdminPassword(ctx, strings.ToLower(strings.TrimSpace(email)), string(hash))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	return nil
}
