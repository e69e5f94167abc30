package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export or import a backend backup",
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Ask the backend to build a backup archive",
	Args:  cobra.NoArgs,
	RunE:  runBackupExport,
}

var backupImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Upload a previously exported backup archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupImport,
}

// exportOutput is a flag for the export command.
var exportOutput string

func init() {
	backupExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Download the archive to a file instead of printing its URL")

	backupCmd.AddCommand(backupExportCmd)
	backupCmd.AddCommand(backupImportCmd)
	rootCmd.AddCommand(backupCmd)
}

func runBackupExport(cmd *cobra.Command, _ []string) error {
	if remoteStore == nil {
		return errors.New("backend client not configured")
	}

	ctx := context.Background()
	url, err := remoteStore.ExportDocuments(ctx)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if exportOutput == "" {
		cmd.Printf("Backup archive available at: %s\n", url)
		return nil
	}

	data, err := remoteStore.Download(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to download archive: %w", err)
	}
	if err := os.WriteFile(exportOutput, data, 0600); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}

	cmd.Printf("Backup written to %s (%d bytes)\n", exportOutput, len(data))
	return nil
}

func runBackupImport(cmd *cobra.Command, args []string) error {
	if remoteStore == nil {
		return errors.New("backend client not configured")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	if err := remoteStore.ImportArchive(context.Background(), filepath.Base(args[0]), f); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	cmd.Println("Backup imported. Run 'aquarius note list' to see the restored notes.")
	return nil
}
