package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"profile-matcher/internal/logger"
)

var (
	envFile string
	debug   bool
	log     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "matchctl",
	Short: "Operational tooling for the profile matcher",
	Long: `matchctl works against the same stores and embedding provider as the API.

Example usage:
  matchctl backfill u1 u2 u3          # compute and cache vectors for these users
  cat ids.txt | matchctl backfill     # ids from stdin, one per line
  matchctl score a.yaml b.yaml        # compare two profile files without any store`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && envFile != ".env" {
			return fmt.Errorf("failed to load env file: %w", err)
		}

		var err error
		log, err = logger.New(false, debug)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")
}
