// Package cli is the cobra command surface. Commands talk to the core
// through the driving ports; wiring happens in cmd/aquarius before
// Execute runs.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/amanami-takumi/aquarius/internal/core/ports/driven"
	"github.com/amanami-takumi/aquarius/internal/core/ports/driving"
	"github.com/amanami-takumi/aquarius/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "aquarius",
	Short: "Offline-first note client",
	Long: `Aquarius keeps a local, always-available copy of your notes and
attachments, reconciles with the backend on startup and syncs edits in
the background.`,
	SilenceUsage: true,
}

var (
	// version is set at build time via -ldflags.
	version = "dev"

	workspace     driving.DocumentWorkspace
	attachmentLib driving.AttachmentLibrary
	remoteStore   driven.RemoteStore

	verbose bool

	// Consumed pre-Execute via PreParse; registered here too so cobra
	// accepts them and lists them in help.
	backendFlag   string
	dataDirFlag   string
	configDirFlag string
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Backend URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Local data directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "Configuration directory")
	cobra.OnInitialize(func() {
		if verbose {
			logger.SetVerbose(true)
		}
	})
}

// SetServices injects the core services. Called once from main before
// Execute.
func SetServices(ws driving.DocumentWorkspace, lib driving.AttachmentLibrary, remote driven.RemoteStore) {
	workspace = ws
	attachmentLib = lib
	remoteStore = remote
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
