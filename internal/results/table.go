// Package results holds the in-memory evaluation table for one run.
package results

import (
	"fmt"

	"github.com/hochfrequenz/branch-eval/internal/domain"
)

// Handle is a stable key for one row of a Table
type Handle int

// Table maps handles to mutable records and remembers append order.
// It is not safe for concurrent use; the run loop is its only writer.
type Table struct {
	order   []Handle
	records map[Handle]*domain.Record
	next    Handle
}

// NewTable creates an empty Table
func NewTable() *Table {
	return &Table{records: make(map[Handle]*domain.Record)}
}

// Append adds a record for branch with both flags false
func (t *Table) Append(branch, id string) Handle {
	h := t.next
	t.next++

	rec := domain.NewRecord(branch)
	rec.ID = id
	t.records[h] = rec
	t.order = append(t.order, h)
	return h
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.order)
}

// Get returns a copy of the record behind h
func (t *Table) Get(h Handle) (domain.Record, bool) {
	rec, ok := t.records[h]
	if !ok {
		return domain.Record{}, false
	}
	return *rec, true
}

// SetCompile marks the branch as built
func (t *Table) SetCompile(h Handle) error {
	rec, err := t.lookup(h)
	if err != nil {
		return err
	}
	rec.Compile = true
	return nil
}

// SetTest marks the branch as having passed its test. A branch that did not
// compile cannot pass, so that combination is rejected.
func (t *Table) SetTest(h Handle) error {
	rec, err := t.lookup(h)
	if err != nil {
		return err
	}
	if !rec.Compile {
		return fmt.Errorf("record %q: test cannot pass before compile", rec.Branch)
	}
	rec.Test = true
	return nil
}

// MarkReached records that stage was attempted
func (t *Table) MarkReached(h Handle, stage domain.Stage) error {
	rec, err := t.lookup(h)
	if err != nil {
		return err
	}
	rec.Reached = stage
	return nil
}

// MarkFailed records the stage that aborted the branch
func (t *Table) MarkFailed(h Handle, stage domain.Stage) error {
	rec, err := t.lookup(h)
	if err != nil {
		return err
	}
	rec.Failed = stage
	return nil
}

// Records returns all rows in append order
func (t *Table) Records() []domain.Record {
	out := make([]domain.Record, 0, len(t.order))
	for _, h := range t.order {
		out = append(out, *t.records[h])
	}
	return out
}

func (t *Table) lookup(h Handle) (*domain.Record, error) {
	rec, ok := t.records[h]
	if !ok {
		return nil, fmt.Errorf("unknown result handle %d", h)
	}
	return rec, nil
}
