// Package services implements the application layer: use cases composed from
// repositories, executed inside dbx transactions where atomicity matters.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lexify-app/lexify-server/internal/common"
	"github.com/lexify-app/lexify-server/internal/dbx"
	"github.com/lexify-app/lexify-server/internal/logging"
	"github.com/lexify-app/lexify-server/internal/sensekey"
	"github.com/lexify-app/lexify-server/internal/server/config"
	"github.com/lexify-app/lexify-server/internal/server/models"
	"github.com/lexify-app/lexify-server/internal/server/repositories/repomanager"
)

// Occurrence is one submission from the extension: a word, the meaning the
// user picked, and where it was seen. Context is a pointer so "absent" and
// "empty sentence" can both arrive from the wire; they are treated as the
// same canonical value.
type Occurrence struct {
	Word      string
	Meaning   string
	SourceURL string
	Position  string
	Context   *string
}

// SaveResult reports what one save produced: the stored sense and encounter,
// with flags telling whether each was created by this call or already existed.
type SaveResult struct {
	Sense            *models.Sense
	Encounter        *models.Encounter
	CreatedSense     bool
	CreatedEncounter bool
}

// SweepReport summarizes one duplicate-encounter sweep. When Err is set,
// Deleted counts the removals that committed before the failure and
// FailedGroup names the (senseID, sourceURL, context) group being processed.
type SweepReport struct {
	Scanned     int
	Deleted     int
	FailedGroup string
	Err         error
}

type HistoryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	saveTimeout time.Duration
	logger      logging.Logger
}

func NewHistoryService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *HistoryService {
	return &HistoryService{
		db:          db,
		repomanager: m,
		saveTimeout: cfg.SaveTimeout,
		logger:      logger.With("module", "history"),
	}
}

// canonicalContext maps a missing or empty context to the single canonical
// "no context" value so the duplicate key never splits on representation.
func canonicalContext(c *string) string {
	if c == nil {
		return ""
	}
	return *c
}

// SaveOccurrence records one word occurrence atomically: the sense is found
// or created by its content identity, then the encounter is matched on
// (sense, source URL, context) and created only when no match exists.
// Position is stored but never participates in matching. Duplicate
// submissions return the already-stored rows unchanged.
func (s *HistoryService) SaveOccurrence(ctx context.Context, userID string, occ Occurrence) (*SaveResult, error) {
	word := strings.TrimSpace(occ.Word)
	meaning := strings.TrimSpace(occ.Meaning)
	sourceURL := strings.TrimSpace(occ.SourceURL)

	if word == "" {
		return nil, fmt.Errorf("%w: word is required", common.ErrValidation)
	}
	if meaning == "" {
		return nil, fmt.Errorf("%w: meaning is required", common.ErrValidation)
	}
	if sourceURL == "" {
		return nil, fmt.Errorf("%w: sourceUrl is required", common.ErrValidation)
	}

	senseHash := sensekey.Derive(word, meaning)
	contextText := canonicalContext(occ.Context)

	result := &SaveResult{}

	err := dbx.WithTxTimeout(ctx, s.db, s.saveTimeout, func(ctx context.Context, tx dbx.DBTX) error {
		senseRepo := s.repomanager.Senses(tx)
		encounterRepo := s.repomanager.Encounters(tx)

		sense, err := senseRepo.GetByKey(ctx, userID, senseHash)
		if errors.Is(err, common.ErrNotFound) {
			result.CreatedSense = true
			sense, err = senseRepo.GetOrCreate(ctx, userID, senseHash, word, meaning)
		}
		if err != nil {
			return fmt.Errorf("storing sense: %w", err)
		}
		result.Sense = sense

		enc, err := encounterRepo.FindMatch(ctx, sense.ID, sourceURL, contextText)
		if err == nil {
			result.Encounter = enc
			return nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("matching encounter: %w", err)
		}

		result.CreatedEncounter = true
		enc, err = encounterRepo.GetOrCreate(ctx, &models.Encounter{
			SenseID:   sense.ID,
			SourceURL: sourceURL,
			Position:  occ.Position,
			Context:   contextText,
		})
		if err != nil {
			return fmt.Errorf("storing encounter: %w", err)
		}
		result.Encounter = enc
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	s.logger.Debug(ctx, "occurrence saved",
		"userID", userID,
		"senseID", result.Sense.ID,
		"newSense", result.CreatedSense,
		"newEncounter", result.CreatedEncounter)

	return result, nil
}

// UserHistory returns the user's senses newest-first, each carrying its
// encounters newest-first. A user with no saves gets an empty slice, not an
// error.
func (s *HistoryService) UserHistory(ctx context.Context, userID string) ([]*models.HistoryEntry, error) {
	entries, err := s.repomanager.Senses(s.db).History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}
	return entries, nil
}

// sweepKey is the duplicate-group identity used by the maintenance sweep.
// It must agree with the encounter match key: position is excluded.
func sweepKey(e *models.Encounter) string {
	return e.SenseID + "\x00" + e.SourceURL + "\x00" + e.Context
}

// CountDuplicateEncounters reports what a sweep would delete without
// touching any rows.
func (s *HistoryService) CountDuplicateEncounters(ctx context.Context) *SweepReport {
	report := &SweepReport{}

	all, err := s.repomanager.Encounters(s.db).ListAllAsc(ctx)
	if err != nil {
		report.Err = fmt.Errorf("%w: %v", common.ErrPersistence, err)
		return report
	}
	report.Scanned = len(all)

	seen := make(map[string]struct{}, len(all))
	for _, enc := range all {
		key := sweepKey(enc)
		if _, dup := seen[key]; dup {
			report.Deleted++
			continue
		}
		seen[key] = struct{}{}
	}

	return report
}

// SweepDuplicateEncounters removes encounters that duplicate an earlier one
// within the same (sense, source URL, context) group, keeping the earliest
// row of each group. Running it on a clean store deletes nothing; running it
// twice is the same as running it once. It scans outside the request path and
// stops at the first failed deletion, reporting progress so far.
func (s *HistoryService) SweepDuplicateEncounters(ctx context.Context) *SweepReport {
	report := &SweepReport{}

	repo := s.repomanager.Encounters(s.db)

	all, err := repo.ListAllAsc(ctx)
	if err != nil {
		report.Err = fmt.Errorf("%w: %v", common.ErrPersistence, err)
		return report
	}
	report.Scanned = len(all)

	seen := make(map[string]struct{}, len(all))
	for _, enc := range all {
		key := sweepKey(enc)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			continue
		}

		if err := repo.Delete(ctx, enc.ID); err != nil {
			// A row deleted concurrently is not a failure: the sweep's goal
			// for that row is already met.
			if errors.Is(err, common.ErrNotFound) {
				continue
			}
			report.FailedGroup = fmt.Sprintf("sense=%s url=%s context=%q", enc.SenseID, enc.SourceURL, enc.Context)
			report.Err = fmt.Errorf("%w: deleting duplicate encounter %s: %v", common.ErrPersistence, enc.ID, err)
			return report
		}
		report.Deleted++
	}

	s.logger.Info(ctx, "duplicate sweep finished", "scanned", report.Scanned, "deleted", report.Deleted)
	return report
}
