package cli

import (
	"fmt"
	"time"

	"notes-app/src/config"
	"notes-app/src/service"

	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenTTL     string
)

// tokenCmd 開発用にセッショントークンを発行する（本番は外部の認証基盤が発行）
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a session token for local development",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, err := time.ParseDuration(tokenTTL)
		if err != nil {
			return fmt.Errorf("invalid --ttl: %w", err)
		}

		cfg := config.LoadConfig()
		token, err := service.NewSessionService(cfg.Auth.JWTSecret, "notes-app").GenerateAccessToken(tokenSubject, ttl)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "local-user", "user identifier stored in the token")
	tokenCmd.Flags().StringVar(&tokenTTL, "ttl", "12h", "token lifetime")
}
