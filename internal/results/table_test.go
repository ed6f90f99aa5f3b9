package results

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hochfrequenz/branch-eval/internal/domain"
)

func TestTable_AppendOrder(t *testing.T) {
	table := NewTable()
	table.Append("123-fix", "123")
	table.Append("456-feat", "456")
	table.Append("123-other", "123")

	records := table.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "123-fix", records[0].Branch)
	assert.Equal(t, "456-feat", records[1].Branch)
	assert.Equal(t, "123-other", records[2].Branch)
	// Identifiers are not unique
	assert.Equal(t, records[0].ID, records[2].ID)
	assert.Equal(t, 3, table.Len())
}

func TestTable_DefaultsFalse(t *testing.T) {
	table := NewTable()
	h := table.Append("789-bad", "789")

	rec, ok := table.Get(h)
	require.True(t, ok)
	assert.False(t, rec.Compile)
	assert.False(t, rec.Test)
	assert.Equal(t, domain.StageNone, rec.Reached)
}

func TestTable_SetFlags(t *testing.T) {
	table := NewTable()
	a := table.Append("1-a", "1")
	b := table.Append("2-b", "2")

	require.NoError(t, table.SetCompile(b))
	require.NoError(t, table.SetTest(b))

	recA, _ := table.Get(a)
	recB, _ := table.Get(b)
	assert.False(t, recA.Compile, "mutating one row must not touch another")
	assert.True(t, recB.Compile)
	assert.True(t, recB.Test)
}

func TestTable_TestRequiresCompile(t *testing.T) {
	table := NewTable()
	h := table.Append("111-partial", "111")

	err := table.SetTest(h)
	assert.Error(t, err)

	rec, _ := table.Get(h)
	assert.False(t, rec.Test)
}

func TestTable_Stages(t *testing.T) {
	table := NewTable()
	h := table.Append("789-bad", "789")

	require.NoError(t, table.MarkReached(h, domain.StageMerge))
	require.NoError(t, table.MarkFailed(h, domain.StageMerge))

	rec, _ := table.Get(h)
	assert.Equal(t, domain.StageMerge, rec.Reached)
	assert.Equal(t, domain.StageMerge, rec.Failed)
}

func TestTable_UnknownHandle(t *testing.T) {
	table := NewTable()

	assert.Error(t, table.SetCompile(Handle(7)))
	_, ok := table.Get(Handle(7))
	assert.False(t, ok)
}

func TestTable_RecordsAreCopies(t *testing.T) {
	table := NewTable()
	h := table.Append("1-a", "1")

	records := table.Records()
	records[0].Compile = true

	rec, _ := table.Get(h)
	assert.False(t, rec.Compile)
}

func TestTable_Empty(t *testing.T) {
	table := NewTable()
	assert.Empty(t, table.Records())
	assert.NotNil(t, table.Records())
}
