package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/fieldops/internal/auth"
	"github.com/gosuda/fieldops/internal/config"
	"github.com/gosuda/fieldops/internal/secrets"
	"github.com/gosuda/fieldops/internal/server"
	"github.com/gosuda/fieldops/internal/storage"
	"github.com/gosuda/fieldops/internal/store/postgres"
	redisstore "github.com/gosuda/fieldops/internal/store/redis"
	"github.com/gosuda/fieldops/internal/upload"
)

const (
	secretsTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Database.CredentialsARN != "" {
		if err := loadDBCredentials(ctx, cfg); err != nil {
			return err
		}
	}

	if cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := postgres.New(ctx, cfg.Database.DSN(), postgres.Options{
		MaxConns:     int32(cfg.Database.MaxConns), //nolint:gosec // bounds checked above
		QueryTimeout: cfg.Database.QueryTimeout,
		Location:     loc,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer sessions.Close()

	objects, err := storage.New(ctx, storage.Config{
		Backend:      storage.Backend(cfg.Storage.Backend),
		LocalPath:    cfg.Storage.LocalPath,
		S3Bucket:     cfg.Storage.S3Bucket,
		Region:       cfg.AWS.Region,
		AWSAccessKey: cfg.AWS.AccessKeyID,
		AWSSecretKey: cfg.AWS.SecretAccessKey,
	})
	if err != nil {
		return err
	}

	authSvc := auth.NewService(store.Users(), sessions, cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	uploader := upload.NewUploader(store.Photos(), objects, cfg.Storage.Timeout)

	srv, err := server.New(ctx, cfg, server.Deps{
		Store:    store,
		Auth:     authSvc,
		Uploader: uploader,
		Health: map[string]server.Pinger{
			"postgres": store,
			"redis":    sessions,
		},
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("env", cfg.AppEnv).
		Str("storage", cfg.Storage.Backend).
		Str("timezone", loc.String()).
		Msg("starting server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("stopped")
	return nil
}

func setupLogging(c config.LogConfig) {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || c.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	switch c.Format {
	case "text", "console":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	default:
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}

// loadDBCredentials replaces the database connection settings with the
// values stored in Secrets Manager. Empty secret fields keep the env values.
func loadDBCredentials(ctx context.Context, cfg *config.Config) error {
	awsCfg, err := storage.LoadAWSConfig(ctx, cfg.AWS.Region, cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey)
	if err != nil {
		return fmt.Errorf("db credentials: %w", err)
	}

	loader := secrets.NewDBCredentialLoader(secretsmanager.NewFromConfig(awsCfg), cfg.Database.CredentialsARN, secretsTimeout)
	creds, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("db credentials: %w", err)
	}

	port, err := creds.PortNumber()
	if err != nil {
		return fmt.Errorf("db credentials: %w", err)
	}

	db := &cfg.Database
	if creds.Host != "" {
		db.Host = creds.Host
	}
	if port != 0 {
		db.Port = port
	}
	if creds.Username != "" {
		db.User = creds.Username
	}
	if creds.Password != "" {
		db.Password = creds.Password
	}
	if creds.DBName != "" {
		db.DBName = creds.DBName
	}

	log.Info().Str("host", db.Host).Str("dbname", db.DBName).Msg("database credentials loaded from secrets manager")
	return nil
}
