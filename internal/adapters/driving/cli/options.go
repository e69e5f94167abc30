package cli

import (
	"io"

	"github.com/spf13/pflag"
)

// GlobalOptions holds the persistent flag values that must be known
// before the adapters are constructed. Flags override the config file,
// which overrides each adapter's built-in default.
type GlobalOptions struct {
	Backend   string
	DataDir   string
	ConfigDir string
	Verbose   bool
}

// PreParse extracts the persistent flags from args without running a
// command. cobra parses the same flags again during Execute; this early
// pass exists because the adapters are wired before Execute runs.
// Unknown flags belong to subcommands and are ignored.
func PreParse(args []string) GlobalOptions {
	fs := pflag.NewFlagSet("aquarius", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	var opts GlobalOptions
	fs.StringVar(&opts.Backend, "backend", "", "")
	fs.StringVar(&opts.DataDir, "data-dir", "", "")
	fs.StringVar(&opts.ConfigDir, "config-dir", "", "")
	fs.BoolVarP(&opts.Verbose, "verbose", "v", false, "")
	_ = fs.Parse(args)
	return opts
}

// BackendURL resolves the backend URL against the config file value.
// An empty result means the remote client falls back to its default.
func (o GlobalOptions) BackendURL(configValue string) string {
	if o.Backend != "" {
		return o.Backend
	}
	return configValue
}

// DataDirectory resolves the data directory against the config file
// value. An empty result means the store falls back to its default.
func (o GlobalOptions) DataDirectory(configValue string) string {
	if o.DataDir != "" {
		return o.DataDir
	}
	return configValue
}
