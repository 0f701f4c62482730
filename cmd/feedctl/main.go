package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/config"
	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore"
	"github.com/mamadbah2/dairyfeed/internal/service/monitor"
	"github.com/mamadbah2/dairyfeed/internal/service/nutrition"
	"github.com/mamadbah2/dairyfeed/pkg/logger"
	"github.com/mamadbah2/dairyfeed/pkg/redisstore"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env bundles what every command needs. The caller must defer close().
type env struct {
	cfg    *config.Config
	store  *gormstore.Store
	logger *zap.Logger
}

func (e *env) close() {
	_ = e.store.Close()
	_ = e.logger.Sync()
}

func newEnv(cmd *cobra.Command) (*env, error) {
	envFile, _ := cmd.Flags().GetString("env")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	store, err := gormstore.Open(cfg.Database, log.Named("repo.gorm"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &env{cfg: cfg, store: store, logger: log}, nil
}

var rootCmd = &cobra.Command{
	Use:          "feedctl",
	Short:        "Maintenance commands for the dairy feed service",
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.store.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date")
		return nil
	},
}

var checkStockCmd = &cobra.Command{
	Use:   "check-stock",
	Short: "Run the feed stock threshold sweep once",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		var opts []monitor.Option
		if e.cfg.Redis.Enabled() {
			redisClient, err := redisstore.New(cmd.Context(), e.cfg.Redis)
			if err != nil {
				return fmt.Errorf("connecting to redis: %w", err)
			}
			defer func() { _ = redisClient.Close() }()
			opts = append(opts, monitor.WithLocker(redisClient))
		}

		result, err := monitor.NewService(e.store, e.logger.Named("svc.monitor"), opts...).Sweep(cmd.Context())
		if err != nil {
			return err
		}
		printSweep(cmd, result)
		return nil
	},
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute [daily-feed-id]",
	Short: "Rebuild cached nutrient totals of one session or, with --all, of every session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all == (len(args) == 1) {
			return fmt.Errorf("pass either a daily feed id or --all")
		}

		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		svc := nutrition.NewService(e.store, e.logger.Named("svc.nutrition"))
		if all {
			n, err := svc.RepairAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recomputed %d sessions\n", n)
			return nil
		}

		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid daily feed id %q", args[0])
		}
		row, err := svc.Repair(cmd.Context(), uint(id))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %d: protein %s, energy %s, fiber %s\n",
			row.DailyFeedID, row.TotalProtein.StringFixed(2), row.TotalEnergy.StringFixed(2), row.TotalFiber.StringFixed(2))
		return nil
	},
}

func printSweep(cmd *cobra.Command, result *monitor.SweepResult) {
	out := cmd.OutOrStdout()
	if result.Skipped {
		fmt.Fprintln(out, "Another sweep is running, skipped")
		return
	}
	fmt.Fprintf(out, "Checked %d feeds, %d at or below minimum, %d new notifications\n",
		result.Checked, result.BelowThreshold, result.Created)
	for _, n := range result.Notifications {
		fmt.Fprintf(out, "  %s\n", n.Message)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "Path to a .env file")
	recomputeCmd.Flags().Bool("all", false, "Recompute every session")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(checkStockCmd)
	rootCmd.AddCommand(recomputeCmd)
}
