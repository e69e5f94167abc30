// Command aquarius is the offline-first note client CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/amanami-takumi/aquarius/internal/adapters/driven/config/file"
	"github.com/amanami-takumi/aquarius/internal/adapters/driven/remote"
	"github.com/amanami-takumi/aquarius/internal/adapters/driven/storage/sqlite"
	"github.com/amanami-takumi/aquarius/internal/adapters/driving/cli"
	"github.com/amanami-takumi/aquarius/internal/core/services"
	"github.com/amanami-takumi/aquarius/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := cli.PreParse(os.Args[1:])

	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	if opts.Verbose || configStore.GetBool("verbose") {
		logger.SetVerbose(true)
	}
	logger.Section("Startup")

	store, err := sqlite.NewStore(opts.DataDirectory(configStore.GetString("data_dir")))
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer store.Close()

	backend := remote.NewClient(opts.BackendURL(configStore.GetString("backend_url")))

	debounce := time.Duration(configStore.GetInt("sync_debounce_ms")) * time.Millisecond
	documents := services.NewDocumentService(store, backend, debounce)
	attachments := services.NewAttachmentService(store, backend)

	ctx := context.Background()
	if err := documents.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	cli.SetVersion(version)
	cli.SetServices(documents, attachments, backend)

	runErr := cli.Execute()

	// Push whatever the debounce timers have not flushed yet, then wait
	// for attachment work to drain before the process exits.
	logger.Section("Shutdown")
	if err := documents.Flush(ctx); err != nil {
		logger.Warn("Final sync failed: %v", err)
	}
	documents.Close()
	attachments.Wait()

	return runErr
}
