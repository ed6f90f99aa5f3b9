// Package workspace wraps the git working tree that every branch evaluation
// runs in. A Workspace is owned by exactly one run loop; concurrent use is
// unsafe because all stages mutate the same checkout.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Command is one external process invocation
type Command struct {
	Name string
	Args []string
	Env  []string
}

// String renders the command roughly as a shell would show it
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner starts a command in dir, streams its output and returns the exit
// code. err is only set when the process could not run at all.
type Runner interface {
	Run(ctx context.Context, dir string, cmd Command, stdout, stderr io.Writer) (exitCode int, err error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run implements Runner
func (ExecRunner) Run(ctx context.Context, dir string, c Command, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("running %s: %w", c, err)
}

// ExitError reports a command that ran but exited non-zero
type ExitError struct {
	Command Command
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// Workspace is the exclusive handle on a repository working tree
type Workspace struct {
	dir    string
	runner Runner
	logger *zap.Logger
}

// New creates a Workspace rooted at dir
func New(dir string, runner Runner, logger *zap.Logger) *Workspace {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{dir: dir, runner: runner, logger: logger}
}

// Dir returns the working tree root
func (w *Workspace) Dir() string {
	return w.dir
}

// Exec runs cmd in the working tree with stdout and stderr both going to
// out. A non-zero exit is returned as *ExitError.
func (w *Workspace) Exec(ctx context.Context, out io.Writer, cmd Command) error {
	if out == nil {
		out = io.Discard
	}
	return w.exec(ctx, out, out, cmd)
}

func (w *Workspace) exec(ctx context.Context, stdout, stderr io.Writer, cmd Command) error {
	w.logger.Debug("exec", zap.String("dir", w.dir), zap.Stringer("cmd", cmd))

	code, err := w.runner.Run(ctx, w.dir, cmd, stdout, stderr)
	if err != nil {
		return err
	}
	if code != 0 {
		w.logger.Debug("exec failed", zap.Stringer("cmd", cmd), zap.Int("exit_code", code))
		return &ExitError{Command: cmd, Code: code}
	}
	return nil
}

// Git runs a git subcommand in the working tree
func (w *Workspace) Git(ctx context.Context, out io.Writer, args ...string) error {
	return w.Exec(ctx, out, Command{Name: "git", Args: args})
}

// Shell runs a command line through sh -c. Extra args are passed as
// positional parameters and appended to the line as "$@", so they reach the
// command unsplit and unexpanded.
func (w *Workspace) Shell(ctx context.Context, out io.Writer, line string, args ...string) error {
	script := line
	if len(args) > 0 {
		script = line + ` "$@"`
	}
	shArgs := append([]string{"-c", script, "sh"}, args...)
	return w.Exec(ctx, out, Command{Name: "sh", Args: shArgs})
}
