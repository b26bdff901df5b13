package users

import (
	"context"

	"github.com/lexify-app/lexify-server/internal/server/models"
)

// UserWithStats is an admin-console list row: the account plus how many
// senses it has saved.
type UserWithStats struct {
	models.User
	SenseCount int64
}

type Repository interface {
	// GetOrCreateByEmail returns the account for a verified email, creating
	// it on first sign-in. The second result is true when a new row was
	// inserted.
	GetOrCreateByEmail(ctx context.Context, email, name string) (*models.User, bool, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetStatus(ctx context.Context, id string, status models.UserStatus) (*models.User, error)
	// SetAdminPassword stores a bcrypt hash and promotes the account to ADMIN.
	SetAdminPassword(ctx context.Context, email, passwordHash string) error
	List(ctx context.Context) ([]*UserWithStats, error)
	Count(ctx context.Context) (int64, error)
}
