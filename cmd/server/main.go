// Command server runs the contacts API, its migrations and the mail worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/contacts-api/internal/config"
	"github.com/iliyamo/contacts-api/internal/logging"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "contacts-api",
	Short:         "Contacts REST backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load() // .env is optional; real env wins
		var err error
		if cfg, err = config.Load(cmd.Context()); err != nil {
			return err
		}
		logging.Setup(cfg.LogLevel, cfg.IsDev(), os.Stderr)
		return nil
	},
	// Running the binary without a subcommand starts the API.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("exit")
		stop()
		os.Exit(1)
	}
}
