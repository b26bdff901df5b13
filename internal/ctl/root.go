// Package ctl implements the lexifyctl operator CLI: database migrations,
// the duplicate-encounter sweep, and admin account management. These run
// against the database directly and never pass through the HTTP surface.
package ctl

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/lexify-app/lexify-server/internal/logging"
	"github.com/lexify-app/lexify-server/internal/server/config"
	"github.com/lexify-app/lexify-server/internal/server/repositories/repomanager"
)

// RootOptions holds global flags shared by all subcommands.
type RootOptions struct {
	DatabaseDSN string
}

// NewRootCommand creates the lexifyctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	defaults := &config.Config{}
	defaults.LoadDefaults()

	cmd := &cobra.Command{
		Use:           "lexifyctl",
		Short:         "Operator tooling for the Lexify server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DatabaseDSN, "dsn", defaults.DatabaseDSN, "PostgreSQL DSN")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewSetAdminPasswordCommand(opts))

	return cmd
}

// openDB connects and verifies the database configured by the global flag.
func openDB(ctx context.Context, opts *RootOptions) (*sql.DB, error) {
	db, err := sql.Open("pgx", opts.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

func newRepoManager() repomanager.RepositoryManager {
	return repomanager.NewPostgresRepositoryManager()
}

func newLogger() logging.Logger {
	return logging.NewDefault()
}
