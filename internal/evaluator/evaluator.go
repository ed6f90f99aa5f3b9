// Package evaluator drives the per-branch pipeline: checkout, merge the
// baseline, build, run the named test, copy artifacts, reset. Every stage is
// a hard gate for its branch and never for the run as a whole.
package evaluator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hochfrequenz/branch-eval/internal/domain"
	"github.com/hochfrequenz/branch-eval/internal/evallog"
	"github.com/hochfrequenz/branch-eval/internal/results"
	"github.com/hochfrequenz/branch-eval/internal/workspace"
)

// errSkipped marks a stage that had nothing to do
var errSkipped = errors.New("stage skipped")

// Options configures one run
type Options struct {
	Baseline       string
	Remote         string
	TestTarget     string
	ArtifactSubdir string
	OutputsDir     string
	ReportPath     string
	BuildCommand   string
	TestCommand    string
	MergeStrategy  domain.MergeStrategy
}

// Evaluator runs the pipeline against a single workspace. It must not be
// shared between goroutines: every stage mutates the same working tree.
type Evaluator struct {
	ws      *workspace.Workspace
	sink    *evallog.Sink
	opts    Options
	console io.Writer
	logger  *zap.Logger
	keep    []string
}

// New creates an Evaluator. Relative OutputsDir and ReportPath are taken
// relative to the workspace root.
func New(ws *workspace.Workspace, sink *evallog.Sink, opts Options, console io.Writer, logger *zap.Logger) *Evaluator {
	if console == nil {
		console = io.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MergeStrategy == "" {
		opts.MergeStrategy = domain.MergeOurs
	}
	opts.OutputsDir = resolve(ws.Dir(), opts.OutputsDir)
	opts.ReportPath = resolve(ws.Dir(), opts.ReportPath)

	return &Evaluator{
		ws:      ws,
		sink:    sink,
		opts:    opts,
		console: console,
		logger:  logger,
		keep:    cleanExcludes(ws.Dir(), sink.Dir(), opts.ReportPath),
	}
}

type step struct {
	stage    domain.Stage
	announce string
	run      func(ctx context.Context, out io.Writer) error
	onPass   func() error
}

// Evaluate runs all stages for branch, updating the row behind h as it goes.
// It returns the results of the stages that were attempted.
func (e *Evaluator) Evaluate(ctx context.Context, table *results.Table, h results.Handle, branch string) []domain.StageResult {
	blog, err := e.sink.Open(branch)
	if err != nil {
		e.failure("could not open log for %s: %v", branch, err)
		e.logger.Error("opening branch log", zap.String("branch", branch), zap.Error(err))
		return nil
	}
	defer blog.Close()

	steps := []step{
		{
			stage:    domain.StageCheckout,
			announce: fmt.Sprintf("+ checking out branch: %s", branch),
			run: func(ctx context.Context, out io.Writer) error {
				return e.ws.Checkout(ctx, out, branch)
			},
		},
		{
			stage:    domain.StageMerge,
			announce: fmt.Sprintf("++ merging %s into %s", e.opts.Baseline, branch),
			run: func(ctx context.Context, out io.Writer) error {
				return e.ws.Merge(ctx, out, e.opts.Baseline, string(e.opts.MergeStrategy))
			},
		},
		{
			stage:    domain.StageBuild,
			announce: fmt.Sprintf("++ building %s", branch),
			run: func(ctx context.Context, out io.Writer) error {
				return e.ws.Shell(ctx, out, e.opts.BuildCommand)
			},
			onPass: func() error { return table.SetCompile(h) },
		},
		{
			stage:    domain.StageTest,
			announce: fmt.Sprintf("++ testing %s", branch),
			run: func(ctx context.Context, out io.Writer) error {
				return e.ws.Shell(ctx, out, e.opts.TestCommand, e.opts.TestTarget)
			},
			onPass: func() error { return table.SetTest(h) },
		},
		{
			stage: domain.StageCopy,
			run: func(ctx context.Context, out io.Writer) error {
				return e.copyArtifacts(out, branch)
			},
		},
		{
			stage:    domain.StageReset,
			announce: fmt.Sprintf("++ resetting %s", branch),
			run: func(ctx context.Context, out io.Writer) error {
				if err := e.ws.ResetHard(ctx, out); err != nil {
					return err
				}
				return e.ws.Clean(ctx, out, e.keep...)
			},
		},
	}

	var stageResults []domain.StageResult
	for _, s := range steps {
		res := e.runStage(ctx, blog, table, h, branch, s)
		stageResults = append(stageResults, res)
		if !res.Succeeded {
			break
		}
	}
	return stageResults
}

func (e *Evaluator) runStage(ctx context.Context, blog *evallog.BranchLog, table *results.Table, h results.Handle, branch string, s step) domain.StageResult {
	table.MarkReached(h, s.stage)
	if err := blog.Banner(s.stage); err != nil {
		e.logger.Warn("writing banner", zap.String("branch", branch), zap.Error(err))
	}
	if s.announce != "" {
		fmt.Fprintln(e.console, s.announce)
	}

	var captured bytes.Buffer
	start := time.Now()
	err := s.run(ctx, io.MultiWriter(blog, &captured))
	res := domain.StageResult{
		Stage:    s.stage,
		Output:   captured.String(),
		Duration: time.Since(start),
	}

	if errors.Is(err, errSkipped) {
		res.Succeeded = true
		res.Skipped = true
		return res
	}
	if err == nil && s.onPass != nil {
		err = s.onPass()
	}
	if err != nil {
		res.Err = err
		table.MarkFailed(h, s.stage)
		fmt.Fprintf(blog, "\n###### %s failed on %s: %v\n", s.stage, branch, err)
		e.failure("%s failed on %s", s.stage, branch)
		e.logger.Warn("stage failed",
			zap.String("branch", branch),
			zap.String("stage", string(s.stage)),
			zap.Duration("duration", res.Duration),
			zap.Error(err))
		return res
	}

	res.Succeeded = true
	e.logger.Debug("stage passed",
		zap.String("branch", branch),
		zap.String("stage", string(s.stage)),
		zap.Duration("duration", res.Duration))
	return res
}

// copyArtifacts copies <outputs>/<subdir> into the branch's log folder.
// A missing source directory is a skip, not a failure.
func (e *Evaluator) copyArtifacts(out io.Writer, branch string) error {
	src := filepath.Join(e.opts.OutputsDir, e.opts.ArtifactSubdir)
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() || e.opts.ArtifactSubdir == "" {
		fmt.Fprintln(e.console, "++ no output files to copy")
		fmt.Fprintf(out, "no output directory at %s\n", src)
		return errSkipped
	}

	fmt.Fprintln(e.console, "++ copying output files")
	dst := e.sink.ArtifactDir(branch)
	n, err := copyDir(src, dst)
	if err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	fmt.Fprintf(out, "copied %d files from %s to %s\n", n, src, dst)
	return nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// cleanExcludes turns paths inside the working tree into anchored patterns
// for git clean -e, so the run's own outputs survive the reset stage.
func cleanExcludes(root string, paths ...string) []string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil
	}
	var patterns []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(resolve(root, p))
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absRoot, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		patterns = append(patterns, "/"+filepath.ToSlash(rel))
	}
	return patterns
}
