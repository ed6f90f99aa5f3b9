package evallog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hochfrequenz/branch-eval/internal/domain"
)

func TestSink_ResetRemovesResidue(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "eval-logs")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "old-branch"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.log"), []byte("old"), 0644))

	sink := NewSink(dir)
	require.NoError(t, sink.Reset())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, IgnoreFile, entries[0].Name())

	data, err := os.ReadFile(filepath.Join(dir, IgnoreFile))
	require.NoError(t, err)
	assert.Equal(t, "*.json", string(data))
}

func TestSink_ResetCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "eval-logs")

	require.NoError(t, NewSink(dir).Reset())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestBranchLog_BannersAndOutput(t *testing.T) {
	sink := NewSink(t.TempDir())
	log, err := sink.Open("123-fix")
	require.NoError(t, err)

	require.NoError(t, log.Banner(domain.StageCheckout))
	log.Write([]byte("Switched to branch '123-fix'\n"))
	require.NoError(t, log.Banner(domain.StageMerge))
	require.NoError(t, log.Close())

	data, err := os.ReadFile(sink.LogPath("123-fix"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 7)
	rule := strings.Repeat("#", 79)
	assert.Equal(t, rule, lines[0])
	assert.Equal(t, "CHECKOUT", lines[1])
	assert.Equal(t, rule, lines[2])
	assert.Equal(t, "Switched to branch '123-fix'", lines[3])
	assert.Equal(t, "MERGE", lines[5])
}

func TestBranchLog_NestedBranchName(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir)

	log, err := sink.Open("team/42-thing")
	require.NoError(t, err)
	defer log.Close()

	assert.Equal(t, filepath.Join(dir, "team", "42-thing.log"), log.Path())
	assert.Equal(t, filepath.Join(dir, "team", "42-thing"), sink.ArtifactDir("team/42-thing"))
	_, err = os.Stat(log.Path())
	assert.NoError(t, err)
}

func TestSink_OpenTruncates(t *testing.T) {
	sink := NewSink(t.TempDir())

	first, err := sink.Open("1-a")
	require.NoError(t, err)
	first.Write([]byte("first run\n"))
	first.Close()

	second, err := sink.Open("1-a")
	require.NoError(t, err)
	second.Close()

	data, _ := os.ReadFile(sink.LogPath("1-a"))
	assert.Empty(t, data)
}
