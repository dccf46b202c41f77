package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/partstrack-backend/pkg/config"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	if err := newRootCmd(logg).ExecuteContext(context.Background()); err != nil {
		logg.Error(context.Background(), "migrate failed", err)
		os.Exit(1)
	}
}

func newRootCmd(logg *logger.Logger) *cobra.Command {
	var dir string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the partstrack goose migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", "", "migrations directory (default: embedded for up/down/status/to, "+migrate.DefaultDir+" for create/validate)")
	diskDir := func() string {
		if dir == "" {
			return migrate.DefaultDir
		}
		return dir
	}

	withDB := func(command string) *cobra.Command {
		return &cobra.Command{
			Use:   command,
			Short: fmt.Sprintf("Run goose %s", command),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWithDB(cmd.Context(), logg, func(ctx context.Context, sqlDB *sql.DB) error {
					return migrate.Run(ctx, sqlDB, dir, command)
				})
			},
		}
	}

	toCmd := &cobra.Command{
		Use:   "to <version>",
		Short: "Migrate up or down to the given YYYYMMDDHHMMSS version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithDB(cmd.Context(), logg, func(ctx context.Context, sqlDB *sql.DB) error {
				return migrate.MigrateToVersion(ctx, sqlDB, dir, args[0])
			})
		},
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(diskDir(), args[0], time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check migration filenames and goose annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrate.ValidateDir(diskDir()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration validation passed")
			return nil
		},
	}

	root.AddCommand(withDB("up"), withDB("down"), withDB("status"), toCmd, createCmd, validateCmd)
	return root
}

func runWithDB(ctx context.Context, logg *logger.Logger, fn func(context.Context, *sql.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DB.IsSQLite() {
		return fmt.Errorf("goose migrations target postgres; sqlite schemas are auto-migrated by the api")
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql.DB: %w", err)
	}

	logg.Info(ctx, "migrate ready")
	return fn(ctx, sqlDB)
}
