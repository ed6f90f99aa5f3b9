package domain

import (
	"strings"
	"time"
)

// IDDelimiter separates the submission identifier from the rest of a branch name
const IDDelimiter = "-"

// Identifier derives the submission id from a branch name: everything before
// the first delimiter, or the whole name when there is none.
func Identifier(branch string) string {
	id, _, _ := strings.Cut(branch, IDDelimiter)
	return id
}

// Record is the evaluation outcome for one candidate branch
type Record struct {
	Branch  string
	ID      string
	Compile bool
	Test    bool
	// Reached is the furthest stage that was attempted
	Reached Stage
	// Failed is the stage that aborted the branch, empty if none did
	Failed Stage
}

// NewRecord creates a record with both flags unset
func NewRecord(branch string) *Record {
	return &Record{
		Branch: branch,
		ID:     Identifier(branch),
	}
}

// Completed reports whether every pipeline stage ran without failure
func (r *Record) Completed() bool {
	return r.Failed == StageNone && r.Reached == StageReset
}

// StageResult is the outcome of running a single pipeline stage
type StageResult struct {
	Stage     Stage
	Succeeded bool
	Skipped   bool
	Output    string
	Err       error
	Duration  time.Duration
}
