// Command migrate creates the schema and provisions the admin account.
package main

import (
	"context"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"docarchive/internal/auth"
	"docarchive/internal/config"
	"docarchive/internal/database"
	"docarchive/internal/database/migration"
	"docarchive/internal/logger"
	"docarchive/internal/repository/postgres"
	"docarchive/internal/service"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.Location())
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("migrate_failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("migrate_done")
}

func run(cfg *config.AppConfig, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		return err
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	authSvc := service.NewAuthService(postgres.NewUserPostgres(db), tokens, log)

	return migration.SeedAdmin(ctx, authSvc, log, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword)
}
