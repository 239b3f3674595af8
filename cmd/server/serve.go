package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/contacts-api/internal/cache"
	"github.com/iliyamo/contacts-api/internal/config"
	"github.com/iliyamo/contacts-api/internal/database"
	"github.com/iliyamo/contacts-api/internal/handler"
	"github.com/iliyamo/contacts-api/internal/mail"
	"github.com/iliyamo/contacts-api/internal/queue"
	"github.com/iliyamo/contacts-api/internal/repository"
	"github.com/iliyamo/contacts-api/internal/repository/memory"
	"github.com/iliyamo/contacts-api/internal/router"
	"github.com/iliyamo/contacts-api/internal/service"
	"github.com/iliyamo/contacts-api/internal/storage"
	"github.com/iliyamo/contacts-api/internal/token"
	"github.com/iliyamo/contacts-api/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// stores picks the persistence backend named by STORE_DRIVER. The returned
// db is nil for the memory driver.
func stores(cfg config.Config) (service.UserStore, service.ContactStore, *sql.DB, error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn().Msg("using in-memory store; data is lost on restart")
		m := memory.New()
		return m.Users(), m.Contacts(), nil, nil
	case "mysql", "":
		db, err := database.Open(cfg.DB)
		if err != nil {
			return nil, nil, nil, err
		}
		return repository.NewUserRepo(db), repository.NewContactRepo(db), db, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

// mailer picks how verification and reset emails leave the API process.
func mailer(cfg config.MailConfig) (mail.Sender, error) {
	switch cfg.Delivery {
	case "queue":
		return queue.NewPublisher(cfg.AMQPURL, cfg.Queue), nil
	case "log":
		return mail.LogSender{}, nil
	case "direct", "":
		return mail.NewSMTPSender(cfg)
	}
	return nil, fmt.Errorf("unknown MAIL_DELIVERY %q", cfg.Delivery)
}

func serve(ctx context.Context) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	if cfg.HTTP.PublicURL() == "" {
		log.Warn().Msg("APP_BASE_URL unset; email links use the request host")
	}
	users, contacts, db, err := stores(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	checks := map[string]handler.Pinger{}
	if db != nil {
		defer db.Close()
		checks["mysql"] = db.PingContext
	}

	// A nil *redis.Client must stay a nil interface below.
	var rdb redis.Cmdable
	if client := config.NewRedisClient(cfg.Redis); client != nil {
		defer client.Close()
		rdb = client
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	} else {
		log.Warn().Str("addr", cfg.Redis.Address()).Msg("redis unreachable; cache and rate limiting disabled")
	}

	var backend cache.Cache = cache.Noop{}
	if rdb != nil && cfg.Cache.Enabled {
		backend = cache.NewRedis(rdb)
	}
	store := cache.New(backend, cfg.Cache.Prefix, cfg.Cache.TTL)

	sender, err := mailer(cfg.Mail)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}

	var avatars service.AvatarStorage
	if cfg.Storage.Enabled() {
		mc, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		if err := mc.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("object storage bucket: %w", err)
		}
		avatars = mc
	}

	tokens := token.New(cfg.JWTSecret, token.TTLs{
		Access:        cfg.Tokens.AccessTTL,
		Refresh:       cfg.Tokens.RefreshTTL,
		EmailVerify:   cfg.Tokens.EmailTTL,
		PasswordReset: cfg.Tokens.ResetTTL,
	})
	hasher := utils.BcryptHasher{Cost: cfg.BcryptCost}

	e := router.New(router.Deps{
		Auth:      service.NewAuthService(users, tokens, hasher, sender, store, cfg.DefaultAvatar),
		Contacts:  service.NewContactService(contacts, store),
		Users:     service.NewUserService(users, avatars, store),
		Redis:     rdb,
		RateLimit: cfg.RateLimit,
		HTTP:      cfg.HTTP,
		Checks:    checks,
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("listening")
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
