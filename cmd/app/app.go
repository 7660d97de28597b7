package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vietanh2810/checkin-api/internal/api"
	"github.com/vietanh2810/checkin-api/internal/clock"
	"github.com/vietanh2810/checkin-api/internal/config"
	"github.com/vietanh2810/checkin-api/internal/credential"
	"github.com/vietanh2810/checkin-api/internal/db"
	"github.com/vietanh2810/checkin-api/internal/logger"
	"github.com/vietanh2810/checkin-api/internal/service"
)

const configPath = "./cmd/app/config.yml"

func Start() error {
	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}
	defer func() { _ = zap.L().Sync() }()

	config.Watch(configPath, func(updated *config.AppConfig, err error) {
		if err != nil {
			zap.L().Warn("ignoring config reload", zap.Error(err))
			return
		}
		logger.SetLevel(updated.API.Environment)
		zap.L().Info("config reloaded", zap.String("environment", updated.API.Environment))
	})

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := clock.Real{}
	store, closeStore, err := openStore(ctx, conf, c)
	if err != nil {
		return fmt.Errorf("failed to initialize credential store -> %w", err)
	}
	defer closeStore()

	hub := service.NewFeedHub()
	go hub.Run(ctx)

	s, err := api.NewServer(conf, postgresDB, store, hub, c)
	if err != nil {
		return fmt.Errorf("failed to initialize server -> %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + s.Config.API.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		zap.L().Info(fmt.Sprintf("starting server at %v", srv.Addr),
			zap.String("credential_store", conf.Checkin.Store))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err = <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start the server -> %w", err)
		}
	case <-ctx.Done():
		zap.L().Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err = srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed -> %w", err)
		}
		zap.L().Info("server stopped gracefully")
	}

	return nil
}

// openStore picks the credential store named by checkin.store.
func openStore(ctx context.Context, conf *config.AppConfig, c clock.Clock) (credential.Store, func(), error) {
	if conf.Checkin.Store != config.StoreRedis {
		return credential.NewMemoryStore(conf.Checkin.TokenTTL, c), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("client.Ping -> %w", err)
	}

	closeFn := func() {
		if err := client.Close(); err != nil {
			zap.L().Warn("failed to close redis client", zap.Error(err))
		}
	}

	return credential.NewRedisStore(client, conf.Checkin.TokenTTL, c), closeFn, nil
}
