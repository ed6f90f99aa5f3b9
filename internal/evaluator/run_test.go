package evaluator

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hochfrequenz/branch-eval/internal/domain"
	"github.com/hochfrequenz/branch-eval/internal/evallog"
	"github.com/hochfrequenz/branch-eval/internal/workspace"
)

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %s", args, out)
	}
	return string(out)
}

func commitFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	git(t, dir, "add", name)
	git(t, dir, "commit", "-m", "add "+name)
}

// setupSubmissions builds a repository whose origin carries three candidate
// branches: one that passes, one without the file the test looks for, and
// one with unrelated history that cannot be merged.
func setupSubmissions(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	remote := t.TempDir()

	git(t, remote, "init", "--bare")
	git(t, dir, "init")
	git(t, dir, "symbolic-ref", "HEAD", "refs/heads/master")
	git(t, dir, "config", "user.email", "test@test.com")
	git(t, dir, "config", "user.name", "Test")
	git(t, dir, "remote", "add", "origin", remote)

	commitFile(t, dir, "README.md", "# Task")

	git(t, dir, "checkout", "-b", "123-fix")
	commitFile(t, dir, "PASS", "solution")
	git(t, dir, "checkout", "master")

	git(t, dir, "checkout", "-b", "111-partial")
	commitFile(t, dir, "Solution.java", "class Solution {}")
	git(t, dir, "checkout", "master")

	git(t, dir, "checkout", "--orphan", "789-bad")
	git(t, dir, "rm", "-rf", "--cached", ".")
	os.Remove(filepath.Join(dir, "README.md"))
	commitFile(t, dir, "other.txt", "unrelated")
	git(t, dir, "checkout", "master")

	// Baseline moves on after the candidates branched, so merging is real work
	commitFile(t, dir, "BASE.txt", "baseline update")

	git(t, dir, "push", "origin", "master", "123-fix", "111-partial", "789-bad")
	git(t, dir, "branch", "-D", "123-fix", "111-partial", "789-bad")

	return dir
}

func newGitEvaluator(t *testing.T, dir string, console *bytes.Buffer) (*Evaluator, *evallog.Sink) {
	t.Helper()
	ws := workspace.New(dir, nil, nil)
	sink := evallog.NewSink(filepath.Join(dir, "eval-logs"))
	opts := Options{
		Baseline:       "master",
		Remote:         "origin",
		TestTarget:     "PASS",
		ArtifactSubdir: "unit",
		OutputsDir:     "outputs",
		ReportPath:     "report.csv",
		BuildCommand:   "mkdir -p outputs/unit && echo '{}' > outputs/unit/result.json",
		TestCommand:    "test -f",
		MergeStrategy:  domain.MergeOurs,
	}
	return New(ws, sink, opts, console, nil), sink
}

func TestRun_RealRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := setupSubmissions(t)
	console := &bytes.Buffer{}
	eval, sink := newGitEvaluator(t, dir, console)

	out, err := eval.Run(context.Background(), domain.ModeEvaluate)
	require.NoError(t, err, console.String())

	require.Len(t, out.Records, 3, console.String())
	assertTestImpliesCompile(t, out.Records)

	pass := recordFor(t, out.Records, "123-fix")
	assert.True(t, pass.Compile)
	assert.True(t, pass.Test)
	assert.True(t, pass.Completed())

	partial := recordFor(t, out.Records, "111-partial")
	assert.Equal(t, "111", partial.ID)
	assert.True(t, partial.Compile)
	assert.False(t, partial.Test)
	assert.Equal(t, domain.StageTest, partial.Failed)

	bad := recordFor(t, out.Records, "789-bad")
	assert.False(t, bad.Compile)
	assert.Equal(t, domain.StageMerge, bad.Failed)

	// Every attempted stage leaves a banner in the branch log
	log, err := os.ReadFile(sink.LogPath("123-fix"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "MERGE")

	// Artifacts were copied before the reset wiped outputs/
	_, err = os.Stat(filepath.Join(sink.ArtifactDir("123-fix"), "result.json"))
	assert.NoError(t, err, "artifacts should be copied for the passing branch")
	_, err = os.Stat(filepath.Join(sink.ArtifactDir("111-partial"), "result.json"))
	assert.True(t, os.IsNotExist(err), "no copy after a failed test")

	branch := strings.TrimSpace(git(t, dir, "rev-parse", "--abbrev-ref", "HEAD"))
	assert.Equal(t, "master", branch)

	report, err := os.ReadFile(filepath.Join(dir, "report.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "123-fix,123,1,1,reset,")

	// Cleanup removes the local branches the evaluation created and the report
	console.Reset()
	cleanup, err := eval.Run(context.Background(), domain.ModeCleanup)
	require.NoError(t, err, console.String())
	assert.Len(t, cleanup.Records, 3)
	assert.True(t, cleanup.ReportRemoved)

	local := git(t, dir, "branch", "--list")
	for _, b := range []string{"123-fix", "111-partial", "789-bad"} {
		assert.NotContains(t, local, b)
	}
	_, err = os.Stat(filepath.Join(dir, "report.csv"))
	assert.True(t, os.IsNotExist(err))
}

// setupConflict builds a repository where candidate 5-x and the baseline
// both rewrite the same line of Sol.txt after branching.
func setupConflict(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	remote := t.TempDir()

	git(t, remote, "init", "--bare")
	git(t, dir, "init")
	git(t, dir, "symbolic-ref", "HEAD", "refs/heads/master")
	git(t, dir, "config", "user.email", "test@test.com")
	git(t, dir, "config", "user.name", "Test")
	git(t, dir, "remote", "add", "origin", remote)

	commitFile(t, dir, "Sol.txt", "original\n")

	git(t, dir, "checkout", "-b", "5-x")
	commitFile(t, dir, "Sol.txt", "candidate\n")
	git(t, dir, "checkout", "master")

	commitFile(t, dir, "Sol.txt", "baseline\n")

	git(t, dir, "push", "origin", "master", "5-x")
	git(t, dir, "branch", "-D", "5-x")

	return dir
}

func TestRun_MergeConflictPolicy(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	tests := []struct {
		name     string
		strategy domain.MergeStrategy
		want     string
	}{
		{"ours keeps the candidate", domain.MergeOurs, "candidate"},
		{"theirs keeps the baseline", domain.MergeTheirs, "baseline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupConflict(t)
			console := &bytes.Buffer{}
			opts := Options{
				Baseline:      "master",
				Remote:        "origin",
				TestTarget:    "Sol.txt",
				OutputsDir:    "outputs",
				ReportPath:    "report.csv",
				BuildCommand:  "true",
				TestCommand:   "grep -qx " + tt.want,
				MergeStrategy: tt.strategy,
			}
			eval := New(workspace.New(dir, nil, nil), evallog.NewSink(filepath.Join(dir, "eval-logs")), opts, console, nil)

			out, err := eval.Run(context.Background(), domain.ModeEvaluate)
			require.NoError(t, err, console.String())
			require.Len(t, out.Records, 1)

			rec := out.Records[0]
			assert.Equal(t, domain.StageNone, rec.Failed, console.String())
			assert.True(t, rec.Test, "test should see the %s side of the conflict", tt.want)
			assert.True(t, rec.Completed())

			// The merge commit stays on the local candidate branch after the reset
			merged := git(t, dir, "show", "5-x:Sol.txt")
			assert.Equal(t, tt.want+"\n", merged)
			parents := strings.Fields(git(t, dir, "log", "-1", "--format=%P", "5-x"))
			assert.Len(t, parents, 2, "baseline should have been merged with a merge commit")
		})
	}
}
