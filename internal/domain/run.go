package domain

import "time"

// Run represents one invocation of the harness over all candidates
type Run struct {
	ID             string
	Mode           Mode
	TestTarget     string
	ArtifactSubdir string
	StartedAt      time.Time
	FinishedAt     time.Time
	Candidates     int
	Compiled       int
	Passed         int
}

// Duration returns how long the run took
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Tally fills the candidate, compiled and passed counters from records
func (r *Run) Tally(records []Record) {
	r.Candidates = len(records)
	r.Compiled = 0
	r.Passed = 0
	for _, rec := range records {
		if rec.Compile {
			r.Compiled++
		}
		if rec.Test {
			r.Passed++
		}
	}
}
