// Package encounters provides the PostgreSQL-backed store of observed
// occurrences of a sense, deduplicated on (sense_id, source_url, context).
package encounters

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

// PostgresRepository implements encounter storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindMatch(ctx context.Context, senseID, sourceURL, contextText string) (*models.Encounter, error) {
	query := `
		SELECT id, sense_id, source_url, position, context, created_at FROM encounters
		WHERE sense_id = $1 AND source_url = $2 AND context = $3
	`

	enc := &models.Encounter{}
	err := r.db.QueryRowContext(ctx, query, senseID, sourceURL, contextText).Scan(
		&enc.ID, &enc.SenseID, &enc.SourceURL, &enc.Position, &enc.Context, &enc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return enc, nil
}

// GetOrCreate inserts the encounter; on a duplicate (sense_id, source_url,
// context) key the existing row is returned with its original position and
// creation time. Same single-statement conflict handling as the senses repo,
// so a lost race inside an open transaction does not abort it.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, enc *models.Encounter) (*models.Encounter, error) {
	query := `
		INSERT INTO encounters (id, sense_id, source_url, position, context)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sense_id, source_url, context) DO NOTHING
		RETURNING id, created_at
	`

	created := &models.Encounter{
		SenseID:   enc.SenseID,
		SourceURL: enc.SourceURL,
		Position:  enc.Position,
		Context:   enc.Context,
	}

	err := r.db.QueryRowContext(ctx, query,
		uuid.New().String(), enc.SenseID, enc.SourceURL, enc.Position, enc.Context).
		Scan(&created.ID, &created.CreatedAt)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db error: %w", err)
	}

	existing, err := r.FindMatch(ctx, enc.SenseID, enc.SourceURL, enc.Context)
	if err != nil {
		return nil, fmt.Errorf("re-read after conflict: %w", err)
	}
	return existing, nil
}

func (r *PostgresRepository) ListBySense(ctx context.Context, senseID string) ([]models.Encounter, error) {
	query := `
		SELECT id, sense_id, source_url, position, context, created_at FROM encounters
		WHERE sense_id = $1
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.QueryContext(ctx, query, senseID)
	if err != nil {
		return nil, fmt.Errorf("failed to select encounters: %w", err)
	}
	defer rows.Close()

	var result []models.Encounter
	for rows.Next() {
		var item models.Encounter
		if err := rows.Scan(&item.ID, &item.SenseID, &item.SourceURL, &item.Position, &item.Context, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ListAllAsc(ctx context.Context) ([]*models.Encounter, error) {
	query := `
		SELECT id, sense_id, source_url, position, context, created_at FROM encounters
		ORDER BY created_at ASC, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select encounters: %w", err)
	}
	defer rows.Close()

	var result []*models.Encounter
	for rows.Next() {
		var item models.Encounter
		if err := rows.Scan(&item.ID, &item.SenseID, &item.SourceURL, &item.Position, &item.Context, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM encounters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
