package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/brunotavares/sorrisodigital-backend/pkg/config"
	"github.com/brunotavares/sorrisodigital-backend/pkg/db"
	"github.com/brunotavares/sorrisodigital-backend/pkg/db/models"
	"github.com/brunotavares/sorrisodigital-backend/pkg/logger"
	"github.com/brunotavares/sorrisodigital-backend/pkg/migrate"
	"github.com/brunotavares/sorrisodigital-backend/pkg/security"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	// Flags
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate|seed-admin")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")

	// Command-specific flags
	name := flag.String("name", "", "migration name (for create), admin display name (for seed-admin)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	email := flag.String("email", "", "admin email (for seed-admin)")

	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	// Commands that do NOT require DB
	switch *cmd {
	case "create":
		if *name == "" {
			fmt.Fprintln(os.Stderr, "missing -name for create")
			os.Exit(1)
		}
		logg.Info(ctx, "migrate ready")
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create migration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		logg.Info(ctx, "migrate ready")
		if err := migrate.ValidateDir(*dir); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	// Everything else needs DB
	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up":
		if err := migrate.Run(ctx, sqlDB, *dir, "up"); err != nil {
			fmt.Fprintf(os.Stderr, "goose up failed: %v\n", err)
			os.Exit(1)
		}

	case "down":
		if err := migrate.Run(ctx, sqlDB, *dir, "down"); err != nil {
			fmt.Fprintf(os.Stderr, "goose down failed: %v\n", err)
			os.Exit(1)
		}

	case "status":
		if err := migrate.Run(ctx, sqlDB, *dir, "status"); err != nil {
			fmt.Fprintf(os.Stderr, "goose status failed: %v\n", err)
			os.Exit(1)
		}

	case "version":
		if *version == "" {
			fmt.Fprintln(os.Stderr, "missing -version for version command")
			os.Exit(1)
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, *dir, *version); err != nil {
			fmt.Fprintf(os.Stderr, "goose version migrate failed: %v\n", err)
			os.Exit(1)
		}

	case "seed-admin":
		if *email == "" {
			fmt.Fprintln(os.Stderr, "missing -email for seed-admin")
			os.Exit(1)
		}
		if err := seedAdmin(ctx, dbClient.DB(), cfg, *email, *name); err != nil {
			fmt.Fprintf(os.Stderr, "seed-admin failed: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

// seedAdmin creates an active admin user with a generated temporary password
// and prints the password once to stdout. Existing emails are left untouched.
func seedAdmin(ctx context.Context, gdb *gorm.DB, cfg *config.Config, email, name string) error {
	var existing models.AdminUser
	err := gdb.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return fmt.Errorf("admin user already exists: %s", email)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	tempPassword, err := security.GenerateTempPassword(20)
	if err != nil {
		return err
	}
	hash, err := security.HashPassword(tempPassword, cfg.Password)
	if err != nil {
		return err
	}
	if name == "" {
		name = email
	}

	admin := models.AdminUser{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := gdb.WithContext(ctx).Create(&admin).Error; err != nil {
		return err
	}

	fmt.Println("created admin user:", email)
	fmt.Println("temporary password:", tempPassword)
	return nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
