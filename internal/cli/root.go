package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/asad/azstorage/internal/config"
	"github.com/asad/azstorage/internal/logging"
	"github.com/asad/azstorage/internal/metrics"
	"github.com/asad/azstorage/internal/storage/azure"
)

var (
	// Version is set at build time via ldflags.
	// Example: go build -ldflags "-X github.com/asad/azstorage/internal/cli.Version=1.0.0"
	Version = "dev"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCmd builds the command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	rootCmd := &cobra.Command{
		Use:   "azstorage",
		Short: "Azure Blob Storage backend for media files",
		Long: `azstorage stores named media files in a single Azure Blob Storage container.

It can serve the container over HTTP (serve) or operate on single blobs
from the command line (put, get, stat, rm, url).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadFile(a.v, a.cfgFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./azstorage.{yaml,toml,json})")
	flags.String("account-name", "", "Azure storage account name")
	flags.String("account-key", "", "Azure storage account shared key")
	flags.String("container", "", "blob container")
	flags.String("media-url", "", "public URL prefix for blob URLs")
	flags.String("endpoint", "", "blob service endpoint override (https://, http:// or file://)")
	flags.Int64("max-upload-size", azure.DefaultMaxUploadSize, "largest accepted upload in bytes")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	bindFlags(a.v, flags, map[string]string{
		"account_name":    "account-name",
		"account_key":     "account-key",
		"container":       "container",
		"media_url":       "media-url",
		"endpoint":        "endpoint",
		"max_upload_size": "max-upload-size",
		"log_level":       "log-level",
	})

	rootCmd.AddCommand(
		newServeCmd(a),
		newPutCmd(a),
		newGetCmd(a),
		newStatCmd(a),
		newRmCmd(a),
		newURLCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "azstorage version %s\n", Version)
		},
	}
}

// Execute is the entry point for the CLI. It should be called from main.go.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

// load resolves the configuration and builds the logger it asks for.
func (a *app) load() (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// adapter builds the storage adapter. It validates the configuration but
// does not contact the blob service.
func (a *app) adapter() (*azure.Adapter, *config.Config, logging.Logger, error) {
	cfg, logger, err := a.load()
	if err != nil {
		return nil, nil, nil, err
	}
	adapter, err := azure.New(cfg.Azure(),
		azure.WithLogger(logger),
		azure.WithMetrics(metrics.Recorder{}),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return adapter, cfg, logger, nil
}
