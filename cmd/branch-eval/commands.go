package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hochfrequenz/branch-eval/internal/batch"
	"github.com/hochfrequenz/branch-eval/internal/config"
	"github.com/hochfrequenz/branch-eval/internal/domain"
	"github.com/hochfrequenz/branch-eval/internal/report"
	"github.com/hochfrequenz/branch-eval/internal/runstore"
)

const missingArgsMessage = "name of the test to execute and output folder missing"

const runLong = `Evaluate every candidate branch against TEST-TARGET and copy the
ARTIFACT-SUBDIR outputs of passing branches into the log directory.
"run cleanup" is the same as the cleanup command.`

var (
	showReport    string
	historyLimit  int
	historyRun    string
	historyBranch string
	scheduleCron  string
	scheduleMax   int
	initForce     bool
)

func init() {
	// run command
	runCmd := &cobra.Command{
		Use:   "run TEST-TARGET ARTIFACT-SUBDIR | run cleanup",
		Short: "Evaluate every candidate branch",
		Long:  runLong,
		Args:  cobra.MaximumNArgs(2),
		RunE:  runRun,
	}
	rootCmd.AddCommand(runCmd)

	// cleanup command
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete the local branches of all candidates and the report",
		Args:  cobra.NoArgs,
		RunE:  runCleanup,
	}
	rootCmd.AddCommand(cleanupCmd)

	// show command
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print an existing report",
		Args:  cobra.NoArgs,
		RunE:  runShow,
	}
	showCmd.Flags().StringVar(&showReport, "report", "", "report path (default from config)")
	rootCmd.AddCommand(showCmd)

	// history command
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list (0 for all)")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "show the results of one run")
	historyCmd.Flags().StringVar(&historyBranch, "branch", "", "show every recorded result of one branch")
	rootCmd.AddCommand(historyCmd)

	// schedule command
	scheduleCmd := &cobra.Command{
		Use:   "schedule TEST-TARGET ARTIFACT-SUBDIR",
		Short: "Repeat evaluation runs on a cron schedule",
		Args:  cobra.ExactArgs(2),
		RunE:  runSchedule,
	}
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron expression (default from config)")
	scheduleCmd.Flags().IntVar(&scheduleMax, "max-runs", 0, "stop after this many runs (0 runs forever)")
	rootCmd.AddCommand(scheduleCmd)

	// init command
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a " + config.LocalConfigName + " with the defaults into the repo",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runRun(cmd *cobra.Command, args []string) error {
	if len(args) == 1 && args[0] == string(domain.ModeCleanup) {
		return runCleanup(cmd, nil)
	}
	if len(args) < 2 {
		fmt.Fprintln(cmd.OutOrStdout(), missingArgsMessage)
		return nil
	}

	cfg, repo, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	_, err = job{
		cfg:            cfg,
		repo:           repo,
		mode:           domain.ModeEvaluate,
		testTarget:     args[0],
		artifactSubdir: args[1],
		console:        cmd.OutOrStdout(),
	}.execute(ctx)
	return err
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, repo, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	_, err = job{
		cfg:     cfg,
		repo:    repo,
		mode:    domain.ModeCleanup,
		console: cmd.OutOrStdout(),
	}.execute(ctx)
	return err
}

func runShow(cmd *cobra.Command, args []string) error {
	path := showReport
	if path == "" {
		cfg, repo, err := loadConfig()
		if err != nil {
			return err
		}
		path = config.ResolveIn(repo, cfg.General.ReportPath)
	}

	records, err := report.ReadCSV(path)
	if err != nil {
		return fmt.Errorf("loading report: %w", err)
	}
	return report.Summary(cmd.OutOrStdout(), records)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := runstore.New(cfg.General.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	switch {
	case historyRun != "":
		run, err := store.GetRun(historyRun)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no run %s recorded", historyRun)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "run %s (%s) started %s, took %s\n",
			run.ID, run.Mode, humanize.Time(run.StartedAt), run.Duration().Round(time.Second))
		if run.TestTarget != "" {
			fmt.Fprintf(out, "test %s, artifacts %s\n", run.TestTarget, run.ArtifactSubdir)
		}
		records, err := store.GetResults(historyRun)
		if err != nil {
			return err
		}
		return report.Summary(out, records)
	case historyBranch != "":
		records, err := store.BranchHistory(historyBranch)
		if err != nil {
			return err
		}
		return report.Summary(out, records)
	}

	runs, err := store.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tTARGET\tSTARTED\tDURATION\tCANDIDATES\tCOMPILED\tPASSED")
	for _, r := range runs {
		target := r.TestTarget
		if target == "" {
			target = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.Mode, target, humanize.Time(r.StartedAt),
			r.Duration().Round(time.Second), r.Candidates, r.Compiled, r.Passed)
	}
	return w.Flush()
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, repo, err := loadConfig()
	if err != nil {
		return err
	}

	expr := scheduleCron
	if expr == "" {
		expr = cfg.Schedule.Cron
	}
	if expr == "" {
		return fmt.Errorf("no cron expression: pass --cron or set schedule.cron")
	}

	sched, err := batch.NewScheduler(expr, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	j := job{
		cfg:            cfg,
		repo:           repo,
		mode:           domain.ModeEvaluate,
		testTarget:     args[0],
		artifactSubdir: args[1],
		console:        cmd.OutOrStdout(),
	}

	next := sched.NextRun(time.Now())
	fmt.Fprintf(cmd.OutOrStdout(), "next run %s (%s)\n", humanize.Time(next), next.Format(time.RFC1123))

	runs := 0
	err = sched.Start(ctx, func(ctx context.Context) error {
		_, err := j.execute(ctx)
		runs++
		if scheduleMax > 0 && runs >= scheduleMax {
			sched.Stop()
		}
		return err
	})
	if errors.Is(err, context.Canceled) {
		logger.Info("schedule stopped", zap.String("cron", expr))
		err = nil
	}

	if last, n := sched.LastRun(); n > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d scheduled runs, last finished %s\n", n, humanize.Time(last))
	}
	return err
}

func runInit(cmd *cobra.Command, args []string) error {
	repo, err := filepath.Abs(repoDir)
	if err != nil {
		return err
	}
	path := filepath.Join(repo, config.LocalConfigName)

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Default().Save(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "created", path)
	return nil
}
