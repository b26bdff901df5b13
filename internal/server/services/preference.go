package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/lexify-app/lexify-server/internal/common"
	"github.com/lexify-app/lexify-server/internal/server/models"
	"github.com/lexify-app/lexify-server/internal/server/repositories/repomanager"
)

// PreferenceUpdate carries the writable preference fields.
type PreferenceUpdate struct {
	TargetLanguage string
	AutoSave       bool
	ShowPhonetics  bool
}

// PreferenceService serves per-user extension settings through a small
// in-process read-through cache. Preferences are read on every page the
// extension touches, so the hot path avoids the database.
type PreferenceService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       *ristretto.Cache[string, *models.Preference]
}

func NewPreferenceService(db *sql.DB, m repomanager.RepositoryManager) *PreferenceService {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *models.Preference]{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to create preference cache: %v", err))
	}

	return &PreferenceService{
		db:          db,
		repomanager: m,
		cache:       cache,
	}
}

// Get returns the user's preferences, creating a defaults row on first
// access.
func (s *PreferenceService) Get(ctx context.Context, userID string) (*models.Preference, error) {
	if p, found := s.cache.Get(userID); found {
		return p, nil
	}

	p, err := s.repomanager.Preferences(s.db).GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	s.cache.Set(userID, p, 1)
	return p, nil
}

// Update stores the new preference values and refreshes the cache with the
// stored row.
func (s *PreferenceService) Update(ctx context.Context, userID string, upd PreferenceUpdate) (*models.Preference, error) {
	p, err := s.repomanager.Preferences(s.db).Upsert(ctx, &models.Preference{
		UserID:         userID,
		TargetLanguage: upd.TargetLanguage,
		AutoSave:       upd.AutoSave,
		ShowPhonetics:  upd.ShowPhonetics,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	s.cache.Set(userID, p, 1)
	return p, nil
}

// Close releases the cache's background resources.
func (s *PreferenceService) Close() {
	s.cache.Close()
}
