// Package senses provides the PostgreSQL-backed store of unique
// (word, meaning) pairs per user, addressed by (user_id, sense_hash).
package senses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lexify-app/lexify-server/internal/common"
	"github.com/lexify-app/lexify-server/internal/dbx"
	"github.com/lexify-app/lexify-server/internal/server/models"
)

// PostgresRepository implements sense storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetOrCreate inserts the sense if (userID, senseHash) is unseen and returns
// the stored row either way. A raw unique-violation would abort an open
// transaction, so the insert uses ON CONFLICT DO NOTHING;  when the insert
// returns no row the winner's row is re-read. Read-committed re-snapshots per
// statement, so the re-read sees a concurrently committed winner.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, userID, senseHash, word, meaning string) (*models.Sense, error) {
	query := `
		INSERT INTO senses (id, user_id, sense_hash, word, meaning)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, sense_hash) DO NOTHING
		RETURNING id, created_at
	`

	sense := &models.Sense{
		UserID:    userID,
		SenseHash: senseHash,
		Word:      word,
		Meaning:   meaning,
	}

	err := r.db.QueryRowContext(ctx, query,
		uuid.New().String(), userID, senseHash, word, meaning).Scan(&sense.ID, &sense.CreatedAt)
	if err == nil {
		return sense, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	// Lost the race (or the sense already existed): return the stored row,
	// preserving its original word/meaning casing.
	existing, err := r.GetByKey(ctx, userID, senseHash)
	if err != nil {
		return nil, fmt.Errorf("re-read after conflict: %w", err)
	}
	return existing, nil
}

func (r *PostgresRepository) GetByKey(ctx context.Context, userID, senseHash string) (*models.Sense, error) {
	query := `
		SELECT id, user_id, sense_hash, word, meaning, created_at FROM senses
		WHERE user_id = $1 AND sense_hash = $2
	`

	sense := &models.Sense{}
	err := r.db.QueryRowContext(ctx, query, userID, senseHash).Scan(
		&sense.ID, &sense.UserID, &sense.SenseHash, &sense.Word, &sense.Meaning, &sense.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return sense, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Sense, error) {
	query := `
		SELECT id, user_id, sense_hash, word, meaning, created_at FROM senses
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`
	return r.querySenses(ctx, query, userID)
}

func (r *PostgresRepository) RecentByUser(ctx context.Context, userID string, limit int) ([]*models.Sense, error) {
	query := `
		SELECT id, user_id, sense_hash, word, meaning, created_at FROM senses
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2
	`
	return r.querySenses(ctx, query, userID, limit)
}

func (r *PostgresRepository) querySenses(ctx context.Context, query string, args ...any) ([]*models.Sense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select senses: %w", err)
	}
	defer rows.Close()

	var result []*models.Sense
	for rows.Next() {
		var item models.Sense
		if err := rows.Scan(&item.ID, &item.UserID, &item.SenseHash, &item.Word, &item.Meaning, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// History assembles the dashboard view in a single join: senses newest-first,
// encounters newest-first within each sense. The join is LEFT so a sense
// whose encounter insert is still pending in another transaction is not
// dropped from the view.
func (r *PostgresRepository) History(ctx context.Context, userID string) ([]*models.HistoryEntry, error) {
	query := `
		SELECT s.id, s.user_id, s.sense_hash, s.word, s.meaning, s.created_at,
		       e.id, e.source_url, e.position, e.context, e.created_at
		FROM senses s
		LEFT JOIN encounters e ON e.sense_id = s.id
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC, s.id, e.created_at DESC, e.id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}
	defer rows.Close()

	var result []*models.HistoryEntry
	var current *models.HistoryEntry

	for rows.Next() {
		var s models.Sense
		var encID, encURL, encPos, encCtx sql.NullString
		var encCreated sql.NullTime

		if err := rows.Scan(
			&s.ID, &s.UserID, &s.SenseHash, &s.Word, &s.Meaning, &s.CreatedAt,
			&encID, &encURL, &encPos, &encCtx, &encCreated,
		); err != nil {
			return nil, err
		}

		if current == nil || current.Sense.ID != s.ID {
			current = &models.HistoryEntry{Sense: s}
			result = append(result, current)
		}

		if encID.Valid {
			current.Encounters = append(current.Encounters, models.Encounter{
				ID:        encID.String,
				SenseID:   s.ID,
				SourceURL: encURL.String,
				Position:  encPos.String,
				Context:   encCtx.String,
				CreatedAt: encCreated.Time,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM senses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) TopWords(ctx context.Context, limit int) ([]WordCount, error) {
	query := `
		SELECT lower(word), COUNT(*) AS cnt FROM senses
		GROUP BY lower(word)
		ORDER BY cnt DESC, lower(word)
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select top words: %w", err)
	}
	defer rows.Close()

	var result []WordCount
	for rows.Next() {
		var wc WordCount
		if err := rows.Scan(&wc.Word, &wc.Count); err != nil {
			return nil, err
		}
		result = append(result, wc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
