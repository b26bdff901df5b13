// Package preferences provides the PostgreSQL-backed store of per-user
// extension settings.
package preferences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lexify-app/lexify-server/internal/common"
	"github.com/lexify-app/lexify-server/internal/dbx"
	"github.com/lexify-app/lexify-server/internal/server/models"
)

// PostgresRepository implements preference storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const prefColumns = `user_id, target_language, auto_save, show_phonetics, updated_at`

func scanPref(row *sql.Row) (*models.Preference, error) {
	p := &models.Preference{}
	err := row.Scan(&p.UserID, &p.TargetLanguage, &p.AutoSave, &p.ShowPhonetics, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) GetOrCreate(ctx context.Context, userID string) (*models.Preference, error) {
	query := `
		INSERT INTO preferences (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING ` + prefColumns

	p, err := scanPref(r.db.QueryRowContext(ctx, query, userID))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	existing, err := scanPref(r.db.QueryRowContext(ctx,
		`SELECT `+prefColumns+` FROM preferences WHERE user_id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("re-read after conflict: %w", err)
	}
	return existing, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Preference) (*models.Preference, error) {
	query := `
		INSERT INTO preferences (user_id, target_language, auto_save, show_phonetics)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET
			target_language = EXCLUDED.target_language,
			auto_save = EXCLUDED.auto_save,
			show_phonetics = EXCLUDED.show_phonetics,
			updated_at = now()
		RETURNING ` + prefColumns

	return scanPref(r.db.QueryRowContext(ctx, query, p.UserID, p.TargetLanguage, p.AutoSave, p.ShowPhonetics))
}
