package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shogunlabs/reports-api/internal/api"
	"github.com/shogunlabs/reports-api/internal/infrastructure/blob"
	"github.com/shogunlabs/reports-api/internal/infrastructure/config"
	mongodb "github.com/shogunlabs/reports-api/internal/infrastructure/db/mongo"
	redisdb "github.com/shogunlabs/reports-api/internal/infrastructure/db/redis"
	"github.com/shogunlabs/reports-api/internal/infrastructure/mail"
	"github.com/shogunlabs/reports-api/internal/infrastructure/queue"
	"github.com/shogunlabs/reports-api/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := mongodb.NewUserRepository(db).EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	opts := api.Options{
		Mongo:     db,
		JWTSecret: cfg.JWTSecret,
		LeadInbox: cfg.LeadInbox,
		Logger:    log,
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer func() { _ = rdb.Close() }()
		opts.Redis = rdb
	} else {
		log.Warn().Msg("REDIS_ADDR not set, rate limits are process-local")
	}

	blobs, err := blob.NewS3Store(ctx, blob.Config{
		Bucket:       cfg.Blob.Bucket,
		Region:       cfg.Blob.Region,
		Endpoint:     cfg.Blob.Endpoint,
		AccessKey:    cfg.Blob.AccessKey,
		SecretKey:    cfg.Blob.SecretKey,
		UsePathStyle: cfg.Blob.UsePathStyle,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("blob store unavailable")
	}
	opts.Blobs = blobs

	dispatcher := queue.NewMailDispatcher(0, mail.NewLogMailer(log), log)
	dispatcher.Start(ctx)
	opts.Mailer = dispatcher

	e := api.NewRouter(opts)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("reports api listening")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
