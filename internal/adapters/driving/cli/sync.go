package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push pending edits to the backend now",
	Long:  `Persists every note with unsynced local edits immediately, instead of waiting for the background timers.`,
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if workspace == nil {
		return errors.New("workspace not configured")
	}

	dirty := 0
	for _, doc := range workspace.Documents() {
		if doc.IsDirty {
			dirty++
		}
	}

	if dirty == 0 {
		cmd.Println("All notes are in sync.")
		return nil
	}

	if err := workspace.Flush(context.Background()); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	cmd.Printf("Synced %d notes.\n", dirty)
	return nil
}
