package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sgrunder/contagion/internal/engine"
	"github.com/sgrunder/contagion/internal/events"
	"github.com/sgrunder/contagion/internal/population"
	"github.com/sgrunder/contagion/internal/replay"
	"github.com/sgrunder/contagion/internal/rng"
	"github.com/sgrunder/contagion/internal/scenario"
	"github.com/sgrunder/contagion/internal/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "contagion",
		Short:         "Agent based epidemic simulation over mobility traces",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "scenario file (yaml)")

	root.AddCommand(newRunCmd(&configPath))
	root.AddCommand(newRunsCmd(&configPath))
	root.AddCommand(newInfectionsCmd(&configPath))
	root.AddCommand(newCurveCmd(&configPath))

	return root
}

func newRunCmd(configPath *string) *cobra.Command {
	var (
		label           string
		days            int
		seed            uint64
		persistContacts bool
		noDB            bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := scenario.Load(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("days") {
				cfg.Days = days
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}

			logger := newLogger(cfg.LogLevel)

			source, err := replay.BuildSynthetic(cfg, rng.New(cfg.Seed+1))
			if err != nil {
				return fmt.Errorf("failed to build mobility trace: %w", err)
			}

			var (
				db       *sqlite.DB
				reporter *sqlite.Reporter
				runID    string
			)
			if !noDB && cfg.DBPath != "" {
				db, err = openDB(cfg.DBPath)
				if err != nil {
					return err
				}
				defer db.Close()

				run, err := sqlite.NewRunStore(db).CreateRun(
					cmd.Context(), label, cfg.Seed, cfg.Days, cfg.Population.Size)
				if err != nil {
					return err
				}
				runID = run.ID
				reporter = sqlite.NewReporter(db, run.ID, logger)
				reporter.PersistContacts = persistContacts
				logger.Info("run registered", "id", run.ID, "db", cfg.DBPath)
			}

			sim, err := newEngine(cfg, source, reporter, logger)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context(), logger)
			defer cancel()

			reports, err := sim.Run(ctx)
			if err != nil {
				return err
			}

			if reporter != nil {
				for _, rep := range reports {
					if err := reporter.SaveDayReport(cmd.Context(), rep); err != nil {
						return err
					}
				}
				if err := sqlite.NewRunStore(db).FinishRun(cmd.Context(), runID); err != nil {
					return err
				}
			}

			printReports(cmd.OutOrStdout(), reports)
			return nil
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "run", "label stored with the run")
	cmd.Flags().IntVar(&days, "days", 0, "override the scenario's day count")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "override the scenario's seed")
	cmd.Flags().BoolVar(&persistContacts, "contacts", false, "persist raw contacts (large)")
	cmd.Flags().BoolVar(&noDB, "no-db", false, "run without persistence")

	return cmd
}

func newRunsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List persisted runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDBFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := sqlite.NewRunStore(db).ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tSEED\tDAYS\tPOPULATION\tFINISHED")
			for _, r := range runs {
				finished := "running"
				if r.FinishedAt != nil {
					finished = r.FinishedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
					r.ID, r.Label, r.Seed, r.Days, r.Population, finished)
			}
			return w.Flush()
		},
	}
}

func newInfectionsCmd(configPath *string) *cobra.Command {
	var day int

	cmd := &cobra.Command{
		Use:   "infections <run-id>",
		Short: "List confirmed infections of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDBFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			infections, err := sqlite.NewQueryStore(db).ListInfections(cmd.Context(), args[0], day)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DAY\tTIME\tTARGET\tINFECTOR\tCONTAINER\tTYPE\tSTRAIN")
			for _, ev := range infections {
				fmt.Fprintf(w, "%d\t%.0f\t%d\t%d\t%s\t%s\t%s\n",
					ev.Day, ev.Time, ev.Target, ev.Infector, ev.ContainerID, ev.InfectionType, ev.Strain)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&day, "day", -1, "restrict to one day")
	return cmd
}

func newCurveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "curve <run-id>",
		Short: "Show the per-day status counts of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDBFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer db.Close()

			counts, err := sqlite.NewQueryStore(db).DayCurve(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DAY\tSTATUS\tCOUNT")
			for _, sc := range counts {
				if sc.Count == 0 {
					continue
				}
				fmt.Fprintf(w, "%d\t%s\t%d\n", sc.Day, sc.Status, sc.Count)
			}
			return w.Flush()
		},
	}
}

func newEngine(cfg *scenario.Scenario, source replay.Source, reporter *sqlite.Reporter, logger *slog.Logger) (*engine.Engine, error) {
	if reporter == nil {
		return engine.New(cfg, source, events.Discard{}, logger)
	}
	return engine.New(cfg, source, reporter, logger)
}

func printReports(out io.Writer, reports []*events.DayReport) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tSUSCEPTIBLE\tINFECTED\tRECOVERED\tQUARANTINED")
	for _, rep := range reports {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\n",
			rep.Day,
			rep.ByStatus[population.Susceptible],
			rep.TotalInfected(),
			rep.ByStatus[population.Recovered],
			rep.InQuarantineFull+rep.InQuarantineHome)
	}
	w.Flush()
}

func openDBFromConfig(configPath string) (*sqlite.DB, error) {
	cfg, err := scenario.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("no dbPath configured")
	}
	return openDB(cfg.DBPath)
}

func openDB(path string) (*sqlite.DB, error) {
	if err := ensureDBDir(path); err != nil {
		return nil, fmt.Errorf("failed to prepare database path: %w", err)
	}
	db, err := sqlite.New(path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-stop:
			logger.Info("shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
