package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncCmd_FlushesDirtyNotes(t *testing.T) {
	ws, _, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand(t, "sync")

	assert.NoError(t, err)
	assert.True(t, ws.flushed)
	assert.Contains(t, out, "Synced 1 notes.")
}

func TestSyncCmd_NothingToSync(t *testing.T) {
	ws, _, _, cleanup := setupTestServices()
	defer cleanup()
	for i := range ws.docs {
		ws.docs[i].IsDirty = false
	}

	out, err := runCommand(t, "sync")

	assert.NoError(t, err)
	assert.False(t, ws.flushed)
	assert.Contains(t, out, "All notes are in sync.")
}
