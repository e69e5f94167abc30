package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Note Command Tests

func TestNoteCmd_Use(t *testing.T) {
	assert.Equal(t, "note", noteCmd.Use)
}

func TestNoteCmd_HasSubcommands(t *testing.T) {
	commands := noteCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "list")
	assert.Contains(t, commandNames, "create")
	assert.Contains(t, commandNames, "show")
	assert.Contains(t, commandNames, "rename")
	assert.Contains(t, commandNames, "edit")
	assert.Contains(t, commandNames, "archive")
	assert.Contains(t, commandNames, "archived")
	assert.Contains(t, commandNames, "restore")
	assert.Contains(t, commandNames, "delete")
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestNoteListCmd(t *testing.T) {
	_, _, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand(t, "note", "list")

	assert.NoError(t, err)
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "* doc-1") // active marker
	assert.Contains(t, out, "(unsynced)")
	assert.Contains(t, out, "Total: 2 notes")
}

func TestNoteCreateCmd(t *testing.T) {
	ws, _, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand(t, "note", "create", "Travel plans")

	assert.NoError(t, err)
	assert.Contains(t, out, "Created note")
	assert.Equal(t, []string{"Travel plans"}, ws.created)
}

func TestNoteShowCmd(t *testing.T) {
	_, _, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand(t, "note", "show", "doc-1")

	assert.NoError(t, err)
	assert.Contains(t, out, "Note: doc-1")
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "milk")
}

func TestNoteShowCmd_UnknownID(t *testing.T) {
	_, _, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand(t, "note", "show", "nope")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "note not found")
}

func TestNoteRenameCmd(t *testing.T) {
	ws, _, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand(t, "note", "rename", "doc-1", "Shopping")

	assert.NoError(t, err)
	assert.Equal(t, "Shopping", ws.renamed["doc-1"])
}

func TestNoteRenameCmd_RequiresTwoArgs(t *testing.T) {
	_, err := runCommand(t, "note", "rename", "doc-1")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestNoteEditCmd_FromStdin(t *testing.T) {
	ws, _, _, cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetIn(strings.NewReader("new body"))
	defer rootCmd.SetIn(nil)

	_, err := runCommand(t, "note", "edit", "doc-1")

	assert.NoError(t, err)
	assert.Equal(t, "new body", ws.edited["doc-1"])
}

func TestNoteArchiveCmd(t *testing.T) {
	ws, _, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand(t, "note", "archive", "doc-2")

	assert.NoError(t, err)
	assert.Contains(t, out, "Archived note doc-2")
	assert.Equal(t, []string{"doc-2"}, ws.archivedIDs)
}

func TestNoteArchivedCmd(t *testing.T) {
	_, _, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand(t, "note", "archived")

	assert.NoError(t, err)
	assert.Contains(t, out, "doc-9")
	assert.Contains(t, out, "Old plans")
	assert.Contains(t, out, "Total: 1 archived notes")
}

func TestNoteRestoreCmd(t *testing.T) {
	ws, _, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand(t, "note", "restore", "doc-9")

	assert.NoError(t, err)
	assert.Equal(t, []string{"doc-9"}, ws.restored)
}

func TestNoteDeleteCmd(t *testing.T) {
	ws, _, _, cleanup := setupTestServices()
	ws.removed = 3
	defer cleanup()

	out, err := runCommand(t, "note", "delete", "doc-9")

	assert.NoError(t, err)
	assert.Contains(t, out, "3 attachments removed")
	assert.Equal(t, []string{"doc-9"}, ws.deleted)
}
