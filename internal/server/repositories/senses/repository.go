package senses

import (
	"context"

	"github.com/lexify-app/lexify-server/internal/server/models"
)

// WordCount is one row of the admin top-words analytics.
type WordCount struct {
	Word  string
	Count int64
}

type Repository interface {
	// GetOrCreate returns the existing sense for (userID, senseHash) or
	// inserts a new one with the submitted word/meaning text. Safe under
	// concurrent invocation for the same key: the insert is a single
	// ON CONFLICT DO NOTHING statement and the loser re-reads the winner.
	GetOrCreate(ctx context.Context, userID, senseHash, word, meaning string) (*models.Sense, error)
	GetByKey(ctx context.Context, userID, senseHash string) (*models.Sense, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Sense, error)
	RecentByUser(ctx context.Context, userID string, limit int) ([]*models.Sense, error)
	// History returns the user's senses newest-first, each with its
	// encounters newest-first.
	History(ctx context.Context, userID string) ([]*models.HistoryEntry, error)
	Count(ctx context.Context) (int64, error)
	TopWords(ctx context.Context, limit int) ([]WordCount, error)
}
