package main

import (
	"fmt"
	"os"
	"tutor-ai/config"
	"tutor-ai/pkg/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tutor-ai",
	Short: "Tutor AI backend",
	Long: `Tutor AI serves chat sessions with tutoring agents, their live workspace
(notes, flashcards, slides, CV), guided scenarios and file attachments.

Run without arguments to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(); err != nil {
			return fmt.Errorf("failed to load environment variables: %w", err)
		}
		if _, err := logger.Init(config.IsDevelopment()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
