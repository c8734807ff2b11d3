package main

import (
	"fmt"
	"time"
	"tutor-ai/config"
	"tutor-ai/internal/utils"

	"github.com/spf13/cobra"
)

var tokenTTL time.Duration

// tokenCmd mints a bearer token for trusted tooling
var tokenCmd = &cobra.Command{
	Use:   "token [user-id]",
	Short: "Issue a bearer token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = time.Minute * time.Duration(config.Env.JWTExpirationMinutes)
		}
		token, err := utils.NewJWTService(config.Env.JWTSecret, ttl).GenerateToken(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), *token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to JWT_EXPIRATION_MINUTES)")
}
