package encounters

import (
	"context"

	"github.com/lexify-app/lexify-server/internal/server/models"
)

type Repository interface {
	// FindMatch returns the encounter matching (senseID, sourceURL, context)
	// exactly, or common.ErrNotFound. Position is not part of the match and
	// context must already be in canonical form ("" for absent).
	FindMatch(ctx context.Context, senseID, sourceURL, contextText string) (*models.Encounter, error)
	// GetOrCreate inserts the encounter unless its duplicate key is already
	// present, in which case the existing row is returned unchanged.
	GetOrCreate(ctx context.Context, enc *models.Encounter) (*models.Encounter, error)
	ListBySense(ctx context.Context, senseID string) ([]models.Encounter, error)
	// ListAllAsc returns every encounter ordered by creation time ascending,
	// for the maintenance sweep.
	ListAllAsc(ctx context.Context) ([]*models.Encounter, error)
	Delete(ctx context.Context, id string) error
}
