package preferences

import (
	"context"

	"github.com/lexify-app/lexify-server/internal/server/models"
)

type Repository interface {
	// GetOrCreate returns the user's preferences, inserting a defaults row on
	// first access.
	GetOrCreate(ctx context.Context, userID string) (*models.Preference, error)
	Upsert(ctx context.Context, p *models.Preference) (*models.Preference, error)
}
