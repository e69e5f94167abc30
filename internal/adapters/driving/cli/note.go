package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Manage notes",
	Long:  `List, create, edit, archive, restore, or delete notes.`,
}

var noteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes in the working set",
	Args:  cobra.NoArgs,
	RunE:  runNoteList,
}

var noteCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a new note",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNoteCreate,
}

var noteShowCmd = &cobra.Command{
	Use:   "show [note-id]",
	Short: "Print a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteShow,
}

var noteRenameCmd = &cobra.Command{
	Use:   "rename [note-id] [title]",
	Short: "Rename a note",
	Args:  cobra.ExactArgs(2),
	RunE:  runNoteRename,
}

var noteEditCmd = &cobra.Command{
	Use:   "edit [note-id]",
	Short: "Replace a note's content",
	Long:  `Replaces the note body with the contents of --file, or stdin when no file is given.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteEdit,
}

var noteArchiveCmd = &cobra.Command{
	Use:   "archive [note-id]",
	Short: "Archive a note",
	Long:  `Pushes pending edits to the backend, then moves the note into the archive and purges its local copy.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteArchive,
}

var noteArchivedCmd = &cobra.Command{
	Use:   "archived",
	Short: "List archived notes",
	Args:  cobra.NoArgs,
	RunE:  runNoteArchived,
}

var noteRestoreCmd = &cobra.Command{
	Use:   "restore [note-id]",
	Short: "Restore an archived note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteRestore,
}

var noteDeleteCmd = &cobra.Command{
	Use:   "delete [note-id]",
	Short: "Permanently delete an archived note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteDelete,
}

// editFile is a flag for the edit command.
var editFile string

func init() {
	noteEditCmd.Flags().StringVarP(&editFile, "file", "f", "", "Read the new content from a file instead of stdin")

	noteCmd.AddCommand(noteListCmd)
	noteCmd.AddCommand(noteCreateCmd)
	noteCmd.AddCommand(noteShowCmd)
	noteCmd.AddCommand(noteRenameCmd)
	noteCmd.AddCommand(noteEditCmd)
	noteCmd.AddCommand(noteArchiveCmd)
	noteCmd.AddCommand(noteArchivedCmd)
	noteCmd.AddCommand(noteRestoreCmd)
	noteCmd.AddCommand(noteDeleteCmd)
	rootCmd.AddCommand(noteCmd)
}

func runNoteList(cmd *cobra.Command, _ []string) error {
	if workspace == nil {
		return errors.New("workspace not configured")
	}

	docs := workspace.Documents()
	if len(docs) == 0 {
		cmd.Println("No notes.")
		return nil
	}

	activeID := ""
	if active := workspace.Active(); active != nil {
		activeID = active.ID
	}

	for i := range docs {
		marker := " "
		if docs[i].ID == activeID {
			marker = "*"
		}
		dirty := ""
		if docs[i].IsDirty {
			dirty = " (unsynced)"
		}
		cmd.Printf("%s %s  %s%s\n", marker, docs[i].ID, docs[i].Title, dirty)
		cmd.Printf("    Updated: %s\n", docs[i].UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	cmd.Printf("\nTotal: %d notes\n", len(docs))
	return nil
}

func runNoteCreate(cmd *cobra.Command, args []string) error {
	if workspace == nil {
		return errors.New("workspace not configured")
	}

	title := ""
	if len(args) == 1 {
		title = args[0]
	}

	doc, err := workspace.Create(context.Background(), title)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	cmd.Printf("Created note %s\n", doc.ID)
	return nil
}

func runNoteShow(cmd *cobra.Command, args []string) error {
	if workspace == nil {
		return errors.New("workspace not configured")
	}

	for _, doc := range workspace.Documents() {
		if doc.ID != args[0] {
			continue
		}
		cmd.Printf("Note: %s\n\n", doc.ID)
		cmd.Printf("  Title:    %s\n", doc.Title)
		cmd.Printf("  Updated:  %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
		if !doc.SyncedAt.IsZero() {
			cmd.Printf("  Synced:   %s\n", doc.SyncedAt.Format("2006-01-02 15:04:05"))
		}
		if doc.IsDirty {
			cmd.Println("  Pending:  local edits not yet synced")
		}
		cmd.Printf("\n%s\n", doc.Content)
		return nil
	}

	return fmt.Errorf("note not found: %s", args[0])
}

func runNoteRename(cmd *cobra.Command, args []string) error {
	if workspace == nil {
		return errors.New("workspace not configured")
	}

	if err := workspace.Rename(context.Background(), args[0], args[1]); err != nil {
		return fmt.Errorf("failed to rename note: %w", err)
	}

	cmd.Printf("Renamed note %s\n", args[0])
	return nil
}

func runNoteEdit(cmd *cobra.Command, args []string) error {
	if workspace == nil {
		return errors.New("workspace not configured")
	}

	var content []byte
	var err error
	if editFile != "" {
		content, err = os.ReadFile(editFile)
	} else {
		content, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	if err := workspace.UpdateContent(context.Background(), args[0], string(content)); err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}

	cmd.Printf("Updated note %s\n", args[0])
	return nil
}

func runNoteArchive(cmd *cobra.Command, args []string) error {
	if workspace == nil {
		return errors.New("workspace not configured")
	}

	if err := workspace.Archive(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to archive note: %w", err)
	}

	cmd.Printf("Archived note %s\n", args[0])
	return nil
}

func runNoteArchived(cmd *cobra.Command, _ []string) error {
	if workspace == nil {
		return errors.New("workspace not configured")
	}

	archived := workspace.Archived()
	if len(archived) == 0 {
		cmd.Println("No archived notes.")
		return nil
	}

	for i := range archived {
		cmd.Printf("%s  %s\n", archived[i].ID, archived[i].Title)
		cmd.Printf("    Archived: %s\n", archived[i].ArchivedAt.Format("2006-01-02 15:04:05"))
	}

	cmd.Printf("\nTotal: %d archived notes\n", len(archived))
	return nil
}

func runNoteRestore(cmd *cobra.Command, args []string) error {
	if workspace == nil {
		return errors.New("workspace not configured")
	}

	if err := workspace.Restore(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to restore note: %w", err)
	}

	cmd.Printf("Restored note %s\n", args[0])
	return nil
}

func runNoteDelete(cmd *cobra.Command, args []string) error {
	if workspace == nil {
		return errors.New("workspace not configured")
	}

	removed, err := workspace.DeleteForever(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	cmd.Printf("Deleted note %s (%d attachments removed)\n", args[0], removed)
	return nil
}
