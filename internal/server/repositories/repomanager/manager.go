package repomanager

import (
	"context"
	"database/sql"

	"github.com/lexify-app/lexify-server/internal/dbx"
	"github.com/lexify-app/lexify-server/internal/server/repositories/encounters"
	"github.com/lexify-app/lexify-server/internal/server/repositories/preferences"
	"github.com/lexify-app/lexify-server/internal/server/repositories/senses"
	"github.com/lexify-app/lexify-server/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a specific DBTX, so services
// can use the same repository code inside and outside transactions.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Senses(db dbx.DBTX) senses.Repository
	Encounters(db dbx.DBTX) encounters.Repository
	Preferences(db dbx.DBTX) preferences.Repository
}
