package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bookshelf/internal/identity"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a token accepted by the hmac identity provider",
		Long: `Issue an HS256 bearer token signed with AUTH_SECRET.
Only useful when the API runs with IDENTITY_PROVIDER=hmac.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("AUTH_SECRET")
			if secret == "" {
				return errors.New("AUTH_SECRET is not set")
			}
			if subject == "" {
				return errors.New("--subject is required")
			}
			token, err := identity.IssueToken(secret, subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Owner id carried in the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
