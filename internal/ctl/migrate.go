package ctl

import (
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command, which applies the embedded
// schema migrations and exits.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := openDB(ctx, opts)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := newRepoManager().RunMigrations(ctx, db); err != nil {
				return err
			}

			cmd.Println("migrations applied")
			return nil
		},
	}
}
