package workspace

import (
	"bytes"
	"context"
	"io"

	"go.uber.org/zap"
)

// Checkout switches the working tree to branch
func (w *Workspace) Checkout(ctx context.Context, out io.Writer, branch string) error {
	return w.Git(ctx, out, "checkout", branch)
}

// Merge merges branch into the current HEAD using the given -X strategy
// option. Editor prompts are disabled so the merge commit never blocks.
func (w *Workspace) Merge(ctx context.Context, out io.Writer, branch, strategy string) error {
	return w.Exec(ctx, out, Command{
		Name: "git",
		Args: []string{"merge", "-X" + strategy, branch},
		Env:  []string{"GIT_MERGE_AUTOEDIT=no"},
	})
}

// ResetHard discards all tracked changes, including an uncommitted merge
func (w *Workspace) ResetHard(ctx context.Context, out io.Writer) error {
	return w.Git(ctx, out, "reset", "--hard")
}

// Clean removes untracked files and directories. Paths in keep are excluded
// so the run's own log directory and report survive between branches.
func (w *Workspace) Clean(ctx context.Context, out io.Writer, keep ...string) error {
	args := []string{"clean", "-fd"}
	for _, k := range keep {
		if k == "" {
			continue
		}
		args = append(args, "-e", k)
	}
	return w.Git(ctx, out, args...)
}

// DeleteBranch force-deletes a local branch
func (w *Workspace) DeleteBranch(ctx context.Context, out io.Writer, branch string) error {
	return w.Git(ctx, out, "branch", "-D", branch)
}

// RemoteRefs lists the short names of all remote-tracking refs of remote,
// one per line, exactly as git prints them. Output produced before a
// failure is still returned alongside the error.
func (w *Workspace) RemoteRefs(ctx context.Context, remote string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	err := w.exec(ctx, &stdout, &stderr, Command{
		Name: "git",
		Args: []string{"for-each-ref", "--format='%(refname:lstrip=3)'", "refs/remotes/" + remote + "/"},
	})
	if err != nil {
		w.logger.Warn("listing remote refs failed",
			zap.String("remote", remote),
			zap.String("stderr", stderr.String()),
			zap.Error(err))
	}
	return stdout.Bytes(), err
}
