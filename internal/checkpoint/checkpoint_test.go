package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndCounts(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err, "Failed to open journal")
	defer store.Close()

	require.NoError(t, store.Record("cs", "0001.json", "https://cs.example.edu/a", StatusAccepted, 0, ""))
	require.NoError(t, store.Record("cs", "0002.json", "https://cs.example.edu/b", StatusDuplicate, -1, "near-duplicate of doc 0"))
	require.NoError(t, store.Record("cs", "0003.json", "", StatusOversize, -1, "exceeds max file size"))

	counts, err := store.Counts()
	require.NoError(t, err)

	assert.Equal(t, 1, counts[StatusAccepted])
	assert.Equal(t, 1, counts[StatusDuplicate])
	assert.Equal(t, 1, counts[StatusOversize])
}

func TestCountsOnEmptyJournal(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	counts, err := store.Counts()
	require.NoError(t, err)
	assert.Empty(t, counts)
}
