package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/contacts-api/internal/mail"
	"github.com/iliyamo/contacts-api/internal/queue"
)

var mailWorkerCmd = &cobra.Command{
	Use:   "mail-worker",
	Short: "Send queued emails over SMTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		sender, err := mail.NewSMTPSender(cfg.Mail)
		if err != nil {
			return err
		}
		log.Info().Str("queue", cfg.Mail.Queue).Msg("mail worker started")
		err = queue.NewConsumer(cfg.Mail.AMQPURL, cfg.Mail.Queue, sender).Run(cmd.Context())
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("mail worker stopped")
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(mailWorkerCmd)
}
