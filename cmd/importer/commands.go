package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/angelmondragon/partstrack-backend/internal/app"
	"github.com/angelmondragon/partstrack-backend/internal/ingestion"
	"github.com/angelmondragon/partstrack-backend/pkg/config"
	"github.com/angelmondragon/partstrack-backend/pkg/db"
	"github.com/angelmondragon/partstrack-backend/pkg/logger"
	"github.com/angelmondragon/partstrack-backend/pkg/migrate"
	"github.com/angelmondragon/partstrack-backend/pkg/redis"
	"github.com/angelmondragon/partstrack-backend/pkg/types"
)

type importOptions struct {
	sheetIndex int
	actorID    string
	actorName  string
}

// runtime holds the clients opened for commands that touch the database.
type runtime struct {
	services *app.Services
	closers  []io.Closer
}

func (r *runtime) Close() error {
	var err error
	for i := len(r.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, r.closers[i].Close())
	}
	return err
}

func newRootCmd(logg *logger.Logger) *cobra.Command {
	var opts importOptions

	root := &cobra.Command{
		Use:           "importer",
		Short:         "Parse, validate and apply bill register workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().IntVar(&opts.sheetIndex, "sheet", 0, "Zero-based worksheet index")

	parseCmd := &cobra.Command{
		Use:   "parse <file>",
		Args:  cobra.ExactArgs(1),
		Short: "Print the parsed bill tree without touching the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			bills, err := parseFile(args[0], opts.sheetIndex)
			if err != nil {
				return err
			}
			parts, serials := ingestion.Counts(bills)
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"bills":        bills,
				"totalBills":   len(bills),
				"totalParts":   parts,
				"totalSerials": serials,
			})
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Args:  cobra.ExactArgs(1),
		Short: "Report bills and serials that already exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			bills, err := parseFile(args[0], opts.sheetIndex)
			if err != nil {
				return err
			}
			rt, err := openRuntime(cmd.Context(), logg, opts)
			if err != nil {
				return err
			}
			defer closeRuntime(cmd.Context(), logg, rt)

			report, err := rt.services.Ingestion.Validate(cmd.Context(), bills)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	applyCmd := &cobra.Command{
		Use:   "apply <file>",
		Args:  cobra.ExactArgs(1),
		Short: "Import every new bill in the workbook",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.actorID) == "" {
				return fmt.Errorf("--actor is required for apply")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			bills, err := parseFile(args[0], opts.sheetIndex)
			if err != nil {
				return err
			}
			rt, err := openRuntime(cmd.Context(), logg, opts)
			if err != nil {
				return err
			}
			defer closeRuntime(cmd.Context(), logg, rt)

			result, err := rt.services.Ingestion.Import(cmd.Context(), bills, types.NewActor(opts.actorID, opts.actorName))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	applyCmd.Flags().StringVar(&opts.actorID, "actor", "", "Actor id recorded on created serials and movements")
	applyCmd.Flags().StringVar(&opts.actorName, "actor-name", "", "Actor display name")

	root.AddCommand(parseCmd, validateCmd, applyCmd)
	return root
}

func parseFile(path string, sheetIndex int) ([]ingestion.Bill, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return ingestion.Parser{SheetIndex: sheetIndex}.Parse(f)
}

func openRuntime(ctx context.Context, logg *logger.Logger, opts importOptions) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Import.SheetIndex = opts.sheetIndex

	rt := &runtime{}
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	rt.closers = append(rt.closers, dbClient)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return nil, multierr.Append(fmt.Errorf("dev migrations: %w", err), rt.Close())
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		if redisClient, err = redis.New(ctx, cfg.Redis, logg); err != nil {
			return nil, multierr.Append(fmt.Errorf("bootstrap redis: %w", err), rt.Close())
		}
		rt.closers = append(rt.closers, redisClient)
	}

	rt.services, err = app.NewServices(app.ServiceParams{
		Config: cfg,
		Logger: logg,
		DB:     dbClient,
		Locker: redis.NewLocker(redisClient),
	})
	if err != nil {
		return nil, multierr.Append(err, rt.Close())
	}
	return rt, nil
}

func closeRuntime(ctx context.Context, logg *logger.Logger, rt *runtime) {
	if err := rt.Close(); err != nil {
		logg.Error(ctx, "error closing clients", err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
