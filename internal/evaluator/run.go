package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hochfrequenz/branch-eval/internal/domain"
	"github.com/hochfrequenz/branch-eval/internal/refs"
	"github.com/hochfrequenz/branch-eval/internal/report"
	"github.com/hochfrequenz/branch-eval/internal/results"
)

// Outcome is everything a finished run produced
type Outcome struct {
	Run           domain.Run
	Records       []domain.Record
	ReportWritten bool
	ReportRemoved bool
}

// Run enumerates candidates and either evaluates or deletes each of them.
// Stage failures never surface here; only problems with the log directory
// or the report file, or a cancelled context, abort the run.
func (e *Evaluator) Run(ctx context.Context, mode domain.Mode) (*Outcome, error) {
	out := &Outcome{
		Run: domain.Run{
			ID:             uuid.New().String(),
			Mode:           mode,
			TestTarget:     e.opts.TestTarget,
			ArtifactSubdir: e.opts.ArtifactSubdir,
			StartedAt:      time.Now(),
		},
	}
	logger := e.logger.With(zap.String("run", out.Run.ID), zap.String("mode", string(mode)))

	if err := e.sink.Reset(); err != nil {
		return nil, err
	}

	candidates := refs.NewEnumerator(e.ws, e.opts.Remote, e.opts.Baseline).Candidates(ctx)
	logger.Info("candidates enumerated", zap.Int("count", len(candidates)))

	table := results.NewTable()
	handles := make([]results.Handle, len(candidates))
	for i, c := range candidates {
		handles[i] = table.Append(c, domain.Identifier(c))
	}

	if mode == domain.ModeCleanup {
		// The checked-out branch cannot be deleted, so leave the candidates first
		e.checkoutBaseline(ctx, logger)
	}

	for i, branch := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch mode {
		case domain.ModeCleanup:
			e.deleteBranch(ctx, logger, branch)
		default:
			e.Evaluate(ctx, table, handles[i], branch)
		}
	}

	e.checkoutBaseline(ctx, logger)

	out.Records = table.Records()
	switch mode {
	case domain.ModeCleanup:
		removed, err := report.Remove(e.opts.ReportPath)
		if err != nil {
			return nil, err
		}
		if removed {
			fmt.Fprintln(e.console, "deleted", e.opts.ReportPath)
		}
		out.ReportRemoved = removed
	default:
		if err := report.WriteCSV(e.opts.ReportPath, out.Records); err != nil {
			return nil, err
		}
		fmt.Fprintln(e.console, "created", e.opts.ReportPath)
		out.ReportWritten = true
	}

	out.Run.FinishedAt = time.Now()
	out.Run.Tally(out.Records)
	logger.Info("run finished",
		zap.Int("candidates", out.Run.Candidates),
		zap.Int("compiled", out.Run.Compiled),
		zap.Int("passed", out.Run.Passed),
		zap.Duration("duration", out.Run.Duration()))
	return out, nil
}

func (e *Evaluator) checkoutBaseline(ctx context.Context, logger *zap.Logger) {
	fmt.Fprintf(e.console, "+ checking out %s\n", e.opts.Baseline)
	if err := e.ws.Checkout(ctx, e.console, e.opts.Baseline); err != nil {
		e.failure("checkout of %s failed", e.opts.Baseline)
		logger.Warn("checking out baseline", zap.String("baseline", e.opts.Baseline), zap.Error(err))
	}
}

func (e *Evaluator) deleteBranch(ctx context.Context, logger *zap.Logger, branch string) {
	if err := e.ws.DeleteBranch(ctx, e.console, branch); err != nil {
		e.failure("delete failed on %s", branch)
		logger.Warn("deleting branch", zap.String("branch", branch), zap.Error(err))
	}
}
