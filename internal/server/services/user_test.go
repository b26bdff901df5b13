package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lexify-app/lexify-server/internal/common"
	"github.com/lexify-app/lexify-server/internal/logging"
	"github.com/lexify-app/lexify-server/internal/server/auth"
	"github.com/lexify-app/lexify-server/internal/server/config"
	"github.com/lexify-app/lexify-server/internal/server/models"
	usersrepo "github.com/lexify-app/lexify-server/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

type fakeUsersRepo struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
	nextID  int

	getOrCreateErr error
	setStatusErr   error
	setPasswordErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{
		byEmail: map[string]*models.User{},
		byID:    map[string]*models.User{},
	}
}

func (f *fakeUsersRepo) add(u *models.User) *models.User {
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
	return u
}

func (f *fakeUsersRepo) GetOrCreateByEmail(ctx context.Context, email, name string) (*models.User, bool, error) {
	if f.getOrCreateErr != nil {
		return nil, false, f.getOrCreateErr
	}
	if u, ok := f.byEmail[email]; ok {
		return u, false, nil
	}
	f.nextID++
	u := f.add(&models.User{
		ID:     "user-" + string(rune('0'+f.nextID)),
		Email:  email,
		Name:   name,
		Role:   models.RoleUser,
		Status: models.StatusActive,
	})
	return u, true, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) SetStatus(ctx context.Context, id string, status models.UserStatus) (*models.User, error) {
	if f.setStatusErr != nil {
		return nil, f.setStatusErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	u.Status = status
	return u, nil
}

func (f *fakeUsersRepo) SetAdminPassword(ctx context.Context, email, passwordHash string) error {
	if f.setPasswordErr != nil {
		return f.setPasswordErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return common.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.Role = models.RoleAdmin
	return nil
}

func (f *fakeUsersRepo) List(context.Context) ([]*usersrepo.UserWithStats, error) {
	out := make([]*usersrepo.UserWithStats, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, &usersrepo.UserWithStats{User: *u})
	}
	return out, nil
}

func (f *fakeUsersRepo) Count(context.Context) (int64, error) {
	return int64(len(f.byID)), nil
}

type fakeNotifier struct {
	emails []string
}

func (f *fakeNotifier) WelcomeAsync(email, name string) <-chan struct{} {
	f.emails = append(f.emails, email)
	done := make(chan struct{})
	close(done)
	return done
}

func newUserService(t *testing.T, users *fakeUsersRepo, notifier WelcomeNotifier) *UserService {
	t.Helper()
	db, _ := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })
	cfg := &config.Config{
		SecretKey:             "k",
		TokenValidityDuration: time.Hour,
	}
	rm := &fakeRepoManager{users: users, senses: newFakeSensesRepo(), encounters: newFakeEncountersRepo()}
	return NewUserService(db, rm, cfg, notifier, logging.NewDefault())
}

func TestSignIn_CreatesAccountAndNotifies(t *testing.T) {
	users := newFakeUsersRepo()
	notifier := &fakeNotifier{}
	s := newUserService(t, users, notifier)

	user, token, err := s.SignIn(context.Background(), " Alice@Example.COM ", "Alice")
	if err != nil {
		t.Fatalf("SignIn error: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if token == "" {
		t.Fatalf("expected a token")
	}
	if len(notifier.emails) != 1 || notifier.emails[0] != "alice@example.com" {
		t.Fatalf("expected one welcome notification, got %v", notifier.emails)
	}

	uid, err := auth.GetUserIDFromToken(token, []byte("k"))
	if err != nil || uid != user.ID {
		t.Fatalf("token must carry the user id: uid=%q err=%v", uid, err)
	}
}

func TestSignIn_ExistingAccountNotNotified(t *testing.T) {
	users := newFakeUsersRepo()
	users.add(&models.User{ID: "u1", Email: "alice@example.com", Status: models.StatusActive})
	notifier := &fakeNotifier{}
	s := newUserService(t, users, notifier)

	user, _, err := s.SignIn(context.Background(), "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("SignIn error: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("expected existing account, got %q", user.ID)
	}
	if len(notifier.emails) != 0 {
		t.Fatalf("existing accounts must not be re-welcomed: %v", notifier.emails)
	}
}

func TestSignIn_SuspendedRejected(t *testing.T) {
	users := newFakeUsersRepo()
	users.add(&models.User{ID: "u1", Email: "alice@example.com", Status: models.StatusSuspended})
	s := newUserService(t, users, &fakeNotifier{})

	_, _, err := s.SignIn(context.Background(), "alice@example.com", "Alice")
	if !errors.Is(err, common.ErrSuspended) {
		t.Fatalf("expected ErrSuspended, got %v", err)
	}
}

func TestSignIn_EmptyEmail(t *testing.T) {
	s := newUserService(t, newFakeUsersRepo(), &fakeNotifier{})

	_, _, err := s.SignIn(context.Background(), "  ", "x")
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func bcryptHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	return string(h)
}

func TestAdminLogin(t *testing.T) {
	users := newFakeUsersRepo()
	users.add(&models.User{
		ID: "a1", Email: "admin@example.com",
		PasswordHash: bcryptHash(t, "correct horse"),
		Role:         models.RoleAdmin, Status: models.StatusActive,
	})
	users.add(&models.User{
		ID: "u1", Email: "user@example.com",
		PasswordHash: bcryptHash(t, "password123"),
		Role:         models.RoleUser, Status: models.StatusActive,
	})
	s := newUserService(t, users, &fakeNotifier{})

	t.Run("valid admin", func(t *testing.T) {
		token, err := s.AdminLogin(context.Background(), "admin@example.com", "correct horse")
		if err != nil || token == "" {
			t.Fatalf("expected token, got %q err=%v", token, err)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.AdminLogin(context.Background(), "admin@example.com", "wrong")
		if !errors.Is(err, common.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := s.AdminLogin(context.Background(), "ghost@example.com", "whatever")
		if !errors.Is(err, common.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("valid password but not admin", func(t *testing.T) {
		_, err := s.AdminLogin(context.Background(), "user@example.com", "password123")
		if !errors.Is(err, common.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestFreshUser(t *testing.T) {
	users := newFakeUsersRepo()
	users.add(&models.User{ID: "u1", Email: "a@b", Role: models.RoleUser, Status: models.StatusActive})
	s := newUserService(t, users, &fakeNotifier{})

	u, err := s.FreshUser(context.Background(), "u1")
	if err != nil || u.ID != "u1" {
		t.Fatalf("FreshUser: %v %v", u, err)
	}

	_, err = s.FreshUser(context.Background(), "missing")
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown id, got %v", err)
	}
}

func TestSetSuspended_Toggle(t *testing.T) {
	users := newFakeUsersRepo()
	users.add(&models.User{ID: "u1", Email: "a@b", Status: models.StatusActive})
	s := newUserService(t, users, &fakeNotifier{})

	u, err := s.SetSuspended(context.Background(), "u1", true)
	if err != nil || u.Status != models.StatusSuspended {
		t.Fatalf("suspend: %+v err=%v", u, err)
	}

	u, err = s.SetSuspended(context.Background(), "u1", false)
	if err != nil || u.Status != models.StatusActive {
		t.Fatalf("unsuspend: %+v err=%v", u, err)
	}

	_, err = s.SetSuspended(context.Background(), "missing", true)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetAdminPassword(t *testing.T) {
	users := newFakeUsersRepo()
	users.add(&models.User{ID: "u1", Email: "admin@example.com", Role: models.RoleUser})
	s := newUserService(t, users, &fakeNotifier{})

	t.Run("too short", func(t *testing.T) {
		err := s.SetAdminPassword(context.Background(), "admin@example.com", "short")
		if !errors.Is(err, common.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("promotes and hashes", func(t *testing.T) {
		err := s.SetAdminPassword(context.Background(), "admin@example.com", "correct horse")
		if err != nil {
			t.Fatalf("SetAdminPassword error: %v", err)
		}
		u := users.byEmail["admin@example.com"]
		if u.Role != models.RoleAdmin {
			t.Fatalf("expected promotion to admin, got %v", u.Role)
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse")) != nil {
			t.Fatalf("stored hash must verify the password")
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		err := s.SetAdminPassword(context.Background(), "ghost@example.com", "correct horse")
		if !errors.Is(err, common.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
