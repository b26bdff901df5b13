package ctl

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lexify-app/lexify-server/internal/server/config"
	"github.com/lexify-app/lexify-server/internal/server/services"
)

// readPassword is a seam so tests can feed a password without a terminal.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

// NewSetAdminPasswordCommand creates the set-admin-password command, which
// sets a console password for the given account and promotes it to admin.
// The password is prompted for, never taken from argv.
func NewSetAdminPasswordCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-admin-password <email>",
		Short: "Set an admin-console password and promote the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			email := args[0]

			cmd.Print("Password: ")
			password, err := readPassword()
			cmd.Println()
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}

			cmd.Print("Repeat password: ")
			confirm, err := readPassword()
			cmd.Println()
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}

			if string(password) != string(confirm) {
				return errors.New("passwords do not match")
			}

			db, err := openDB(ctx, opts)
			if err != nil {
				return err
			}
			defer db.Close()

			cfg := &config.Config{TokenValidityDuration: time.Hour}
			svc := services.NewUserService(db, newRepoManager(), cfg, nil, newLogger())

			if err := svc.SetAdminPassword(ctx, email, string(password)); err != nil {
				return err
			}

			cmd.Printf("admin password set for %s\n", email)
			return nil
		},
	}
}
