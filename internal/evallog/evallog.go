// Package evallog manages the per-run log directory and the per-branch log
// files the pipeline stages append to.
package evallog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hochfrequenz/branch-eval/internal/domain"
)

const (
	// IgnoreFile keeps machine-readable artifacts in the log dir out of git
	IgnoreFile    = ".gitignore"
	ignorePattern = "*.json"

	bannerWidth = 79
)

var bannerRule = strings.Repeat("#", bannerWidth)

// Sink owns the log directory for one run
type Sink struct {
	dir string
}

// NewSink creates a Sink rooted at dir
func NewSink(dir string) *Sink {
	return &Sink{dir: dir}
}

// Dir returns the log directory
func (s *Sink) Dir() string {
	return s.dir
}

// Reset deletes the log directory with everything from previous runs and
// recreates it with only the ignore marker inside.
func (s *Sink) Reset() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("removing log dir: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, IgnoreFile), []byte(ignorePattern), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", IgnoreFile, err)
	}
	return nil
}

// LogPath returns the log file path for branch
func (s *Sink) LogPath(branch string) string {
	return filepath.Join(s.dir, filepath.FromSlash(branch)+".log")
}

// ArtifactDir returns where a branch's build outputs are copied to
func (s *Sink) ArtifactDir(branch string) string {
	return filepath.Join(s.dir, filepath.FromSlash(branch))
}

// Open creates an empty log file for branch
func (s *Sink) Open(branch string) (*BranchLog, error) {
	path := s.LogPath(branch)
	// Branch names like team/42-x nest one directory deeper
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log dir for %s: %w", branch, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log for %s: %w", branch, err)
	}
	return &BranchLog{f: f, path: path}, nil
}

// BranchLog is an append-only log for one branch
type BranchLog struct {
	f    *os.File
	path string
}

// Write appends raw command output
func (l *BranchLog) Write(p []byte) (int, error) {
	return l.f.Write(p)
}

// Banner writes the framing lines that open a stage section
func (l *BranchLog) Banner(stage domain.Stage) error {
	_, err := fmt.Fprintf(l.f, "%s\n%s\n%s\n", bannerRule, stage.Banner(), bannerRule)
	return err
}

// Path returns the file path of the log
func (l *BranchLog) Path() string {
	return l.path
}

// Close closes the underlying file
func (l *BranchLog) Close() error {
	return l.f.Close()
}
