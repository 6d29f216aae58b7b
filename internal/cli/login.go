package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and print the token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("PORTAL_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("--email and a password (--password or PORTAL_PASSWORD env) are required")
			}

			tokens, role, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}

			out := cmd.OutOrStdout()
			if role != "" {
				fmt.Fprintf(out, "# signed in as %s\n", role)
			}
			fmt.Fprintf(out, "export PORTAL_ACCESS_TOKEN=%s\n", tokens.Access)
			fmt.Fprintf(out, "export PORTAL_REFRESH_TOKEN=%s\n", tokens.Refresh)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (or PORTAL_PASSWORD env)")
	return cmd
}
