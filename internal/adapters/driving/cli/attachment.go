package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/amanami-takumi/aquarius/internal/core/ports/driving"
)

var attachmentCmd = &cobra.Command{
	Use:   "attachment",
	Short: "Manage note attachments",
	Long:  `List, add, or remove attachments on a note.`,
}

var attachmentListCmd = &cobra.Command{
	Use:   "list [note-id]",
	Short: "List attachments for a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttachmentList,
}

var attachmentAddCmd = &cobra.Command{
	Use:   "add [note-id] [file]...",
	Short: "Upload files as attachments",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAttachmentAdd,
}

var attachmentRemoveCmd = &cobra.Command{
	Use:   "remove [note-id] [attachment-id]",
	Short: "Remove an attachment",
	Args:  cobra.ExactArgs(2),
	RunE:  runAttachmentRemove,
}

func init() {
	attachmentCmd.AddCommand(attachmentListCmd)
	attachmentCmd.AddCommand(attachmentAddCmd)
	attachmentCmd.AddCommand(attachmentRemoveCmd)
	rootCmd.AddCommand(attachmentCmd)
}

func runAttachmentList(cmd *cobra.Command, args []string) error {
	if attachmentLib == nil {
		return errors.New("attachment library not configured")
	}

	noteID := args[0]
	if err := attachmentLib.Load(context.Background(), noteID); err != nil {
		return fmt.Errorf("failed to load attachments: %w", err)
	}
	attachmentLib.Wait()

	if err := attachmentLib.Err(); err != nil {
		cmd.Printf("Warning: attachment list may be stale: %v\n\n", err)
	}

	entries := attachmentLib.Entries()
	if len(entries) == 0 {
		cmd.Printf("No attachments on note %s\n", noteID)
		return nil
	}

	for i := range entries {
		origin := "remote"
		if entries[i].FromCache {
			origin = "cached"
		}
		cmd.Printf("%s  %s\n", entries[i].ID, entries[i].Filename)
		cmd.Printf("    Type:    %s (%d bytes)\n", entries[i].ContentType, entries[i].Size)
		cmd.Printf("    Display: %s [%s, %s]\n", entries[i].DisplayURL, entries[i].DisplayVariant, origin)
	}

	cmd.Printf("\nTotal: %d attachments\n", len(entries))
	return nil
}

func runAttachmentAdd(cmd *cobra.Command, args []string) error {
	if attachmentLib == nil {
		return errors.New("attachment library not configured")
	}

	noteID := args[0]
	paths := args[1:]

	uploads := make([]driving.AttachmentUpload, 0, len(paths))
	handles := make([]*os.File, 0, len(paths))
	defer func() {
		for _, f := range handles {
			f.Close()
		}
	}()

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		handles = append(handles, f)

		contentType := mime.TypeByExtension(filepath.Ext(path))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		uploads = append(uploads, driving.AttachmentUpload{
			Filename:    filepath.Base(path),
			ContentType: contentType,
			Body:        f,
		})
	}

	if err := attachmentLib.Load(context.Background(), noteID); err != nil {
		return fmt.Errorf("failed to load attachments: %w", err)
	}
	attachmentLib.Wait()

	if err := attachmentLib.Add(context.Background(), noteID, uploads); err != nil {
		return fmt.Errorf("failed to upload: %w", err)
	}

	cmd.Printf("Uploaded %d attachments to note %s\n", len(uploads), noteID)
	return nil
}

func runAttachmentRemove(cmd *cobra.Command, args []string) error {
	if attachmentLib == nil {
		return errors.New("attachment library not configured")
	}

	noteID, attachmentID := args[0], args[1]

	if err := attachmentLib.Load(context.Background(), noteID); err != nil {
		return fmt.Errorf("failed to load attachments: %w", err)
	}
	attachmentLib.Wait()

	if err := attachmentLib.Remove(context.Background(), noteID, attachmentID); err != nil {
		return fmt.Errorf("failed to remove attachment: %w", err)
	}

	cmd.Printf("Removed attachment %s\n", attachmentID)
	return nil
}
