package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hochfrequenz/branch-eval/internal/config"
	"github.com/hochfrequenz/branch-eval/internal/domain"
	"github.com/hochfrequenz/branch-eval/internal/evallog"
	"github.com/hochfrequenz/branch-eval/internal/evaluator"
	"github.com/hochfrequenz/branch-eval/internal/notify"
	"github.com/hochfrequenz/branch-eval/internal/report"
	"github.com/hochfrequenz/branch-eval/internal/runstore"
	"github.com/hochfrequenz/branch-eval/internal/workspace"
)

// loadConfig returns the configuration and the absolute working tree. An
// explicit --config wins, then a .branch-eval.toml above the repo, then the
// global file.
func loadConfig() (*config.Config, string, error) {
	repo, err := filepath.Abs(repoDir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving repo: %w", err)
	}

	path := configPath
	if path == "" {
		if local, ok := config.FindLocalConfig(repo); ok {
			path = local
		} else {
			path = config.DefaultConfigPath()
		}
	}
	logger.Debug("loading config", zap.String("path", path))

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, repo, nil
}

// job is one evaluate or cleanup invocation
type job struct {
	cfg            *config.Config
	repo           string
	mode           domain.Mode
	testTarget     string
	artifactSubdir string
	console        io.Writer
}

func (j job) newEvaluator() *evaluator.Evaluator {
	ws := workspace.New(j.repo, nil, logger)
	sink := evallog.NewSink(config.ResolveIn(j.repo, j.cfg.General.LogDir))
	opts := evaluator.Options{
		Baseline:       j.cfg.General.Baseline,
		Remote:         j.cfg.General.Remote,
		TestTarget:     j.testTarget,
		ArtifactSubdir: j.artifactSubdir,
		OutputsDir:     j.cfg.General.OutputsDir,
		ReportPath:     j.cfg.General.ReportPath,
		BuildCommand:   j.cfg.Pipeline.BuildCommand,
		TestCommand:    j.cfg.Pipeline.TestCommand,
		MergeStrategy:  domain.MergeStrategy(j.cfg.Pipeline.MergeStrategy),
	}
	return evaluator.New(ws, sink, opts, j.console, logger)
}

// execute runs the job, then records it in the history database and sends
// notifications. Only the run itself can fail the command.
func (j job) execute(ctx context.Context) (*evaluator.Outcome, error) {
	out, err := j.newEvaluator().Run(ctx, j.mode)
	if err != nil {
		return nil, err
	}

	if err := j.record(out); err != nil {
		logger.Warn("recording run history", zap.String("run", out.Run.ID), zap.Error(err))
	}

	notifier := notify.FromSettings(j.cfg.Notifications.Desktop, j.cfg.Notifications.SlackWebhook)
	if err := notifier.Send(notify.RunNotification(&out.Run)); err != nil {
		logger.Warn("sending notification", zap.String("run", out.Run.ID), zap.Error(err))
	}

	if j.mode == domain.ModeEvaluate {
		if err := report.Summary(j.console, out.Records); err != nil {
			return out, err
		}
	}
	fmt.Fprintf(j.console, "finished in %s\n", out.Run.Duration().Round(time.Millisecond))
	return out, nil
}

func (j job) record(out *evaluator.Outcome) error {
	if j.cfg.General.DatabasePath == "" {
		return nil
	}
	store, err := runstore.New(j.cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordRun(&out.Run, out.Records)
}
