package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"formcraft/internal/core/auth"
	"formcraft/internal/core/config"
	"formcraft/pkg/utils"
)

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash stored for a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := utils.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var uid, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token (e.g. for the admin API)",
		Long: `Issue a token with the configured jwt.secret and issuer.

Examples:
  formctl token --uid ops --role admin`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read(configPath)
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.JWT.Secret) == "" {
				return fmt.Errorf("jwt.secret is not set (APP_JWT_SECRET)")
			}
			tok, err := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL()).Issue(uid, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "subject user id")
	cmd.Flags().StringVar(&role, "role", "user", "role claim (user | admin)")
	_ = cmd.MarkFlagRequired("uid")
	return cmd
}
