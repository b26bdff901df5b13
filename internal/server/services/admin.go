package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lexify-app/lexify-server/internal/common"
	"github.com/lexify-app/lexify-server/internal/logging"
	"github.com/lexify-app/lexify-server/internal/server/models"
	"github.com/lexify-app/lexify-server/internal/server/repositories/repomanager"
	"github.com/lexify-app/lexify-server/internal/server/repositories/senses"
	"github.com/lexify-app/lexify-server/internal/server/repositories/users"
)

// ActivityReader exposes the activity counters used by the admin overview.
type ActivityReader interface {
	DailyActive(ctx context.Context) (int64, error)
	MonthlyActive(ctx context.Context) (int64, error)
}

// OverviewStats is the admin dashboard headline block.
type OverviewStats struct {
	TotalUsers    int64
	TotalSenses   int64
	DailyActive   int64
	MonthlyActive int64
}

// UserDetail is one account with its most recent saves.
type UserDetail struct {
	User         *models.User
	RecentSenses []*models.Sense
}

type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	activity    ActivityReader
	logger      logging.Logger
}

func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, activity ActivityReader, logger logging.Logger) *AdminService {
	return &AdminService{
		db:          db,
		repomanager: m,
		activity:    activity,
		logger:      logger.With("module", "admin"),
	}
}

// Overview returns the dashboard counters. Activity counters are best-effort:
// when Redis is unreachable they come back as zero and the failure is logged,
// the database counters still load.
func (s *AdminService) Overview(ctx context.Context) (*OverviewStats, error) {
	stats := &OverviewStats{}

	var err error
	if stats.TotalUsers, err = s.repomanager.Users(s.db).Count(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	if stats.TotalSenses, err = s.repomanager.Senses(s.db).Count(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	if s.activity != nil {
		if stats.DailyActive, err = s.activity.DailyActive(ctx); err != nil {
			s.logger.Warn(ctx, "activity counter unavailable", "error", err)
		}
		if stats.MonthlyActive, err = s.activity.MonthlyActive(ctx); err != nil {
			s.logger.Warn(ctx, "activity counter unavailable", "error", err)
		}
	}

	return stats, nil
}

// Users lists every account with its sense count.
func (s *AdminService) Users(ctx context.Context) ([]*users.UserWithStats, error) {
	list, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	return list, nil
}

// recentSenseLimit bounds the per-user detail view.
const recentSenseLimit = 20

// UserDetail returns one account with its latest saves.
func (s *AdminService) UserDetail(ctx context.Context, userID string) (*UserDetail, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	recent, err := s.repomanager.Senses(s.db).RecentByUser(ctx, userID, recentSenseLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	return &UserDetail{User: user, RecentSenses: recent}, nil
}

// TopWords returns the most saved words across all users.
func (s *AdminService) TopWords(ctx context.Context, limit int) ([]senses.WordCount, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	top, err := s.repomanager.Senses(s.db).TopWords(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	return top, nil
}
