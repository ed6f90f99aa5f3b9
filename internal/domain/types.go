package domain

import "strings"

// Stage is one step of the per-branch evaluation pipeline
type Stage string

const (
	StageNone     Stage = ""
	StageCheckout Stage = "checkout"
	StageMerge    Stage = "merge"
	StageBuild    Stage = "build"
	StageTest     Stage = "test"
	StageCopy     Stage = "copy"
	StageReset    Stage = "reset"
)

// Pipeline lists the stages in execution order
var Pipeline = []Stage{
	StageCheckout,
	StageMerge,
	StageBuild,
	StageTest,
	StageCopy,
	StageReset,
}

// Banner returns the stage name as written into branch logs
func (s Stage) Banner() string {
	return strings.ToUpper(string(s))
}

// Index returns the position of the stage in the pipeline, or -1
func (s Stage) Index() int {
	for i, st := range Pipeline {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseStage converts a stored stage name back into a Stage
func ParseStage(s string) Stage {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	if st.Index() < 0 {
		return StageNone
	}
	return st
}

// Mode selects what a run does with the enumerated candidates
type Mode string

const (
	ModeEvaluate Mode = "evaluate"
	ModeCleanup  Mode = "cleanup"
)

// MergeStrategy is the -X option handed to git merge
type MergeStrategy string

const (
	// MergeOurs keeps the checked-out candidate's side of conflicting hunks
	MergeOurs MergeStrategy = "ours"
	// MergeTheirs keeps the baseline's side of conflicting hunks
	MergeTheirs MergeStrategy = "theirs"
)

// Valid reports whether the strategy is one git understands for -X
func (m MergeStrategy) Valid() bool {
	return m == MergeOurs || m == MergeTheirs
}
