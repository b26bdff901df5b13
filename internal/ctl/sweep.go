package ctl

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/lexify-app/lexify-server/internal/server/config"
	"github.com/lexify-app/lexify-server/internal/server/services"
)

// NewSweepCommand creates the sweep command, which removes encounters that
// duplicate an earlier one within the same (word, source, context) group.
// The live save path already prevents duplicates; the sweep repairs data
// imported from older deployments or touched outside the API.
func NewSweepCommand(opts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete duplicate encounters, keeping the earliest of each group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := openDB(ctx, opts)
			if err != nil {
				return err
			}
			defer db.Close()

			cfg := &config.Config{SaveTimeout: 5 * time.Second}
			svc := services.NewHistoryService(db, newRepoManager(), cfg, newLogger())

			if dryRun {
				report := svc.CountDuplicateEncounters(ctx)
				if report.Err != nil {
					return report.Err
				}
				cmd.Printf("scanned %d encounters, %d duplicates would be deleted\n", report.Scanned, report.Deleted)
				return nil
			}

			report := svc.SweepDuplicateEncounters(ctx)
			if report.Err != nil {
				cmd.Printf("sweep failed after %d deletions (group %s)\n", report.Deleted, report.FailedGroup)
				return report.Err
			}

			cmd.Printf("scanned %d encounters, deleted %d duplicates\n", report.Scanned, report.Deleted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report duplicates without deleting them")

	return cmd
}
