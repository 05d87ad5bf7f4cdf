package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/viant/treemirror"
	"github.com/viant/treemirror/logging"
	"go.uber.org/zap"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

// RootCmd is the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "treemirror",
	Short: "Mirror a storage folder and install archives into it",
	Long: `treemirror keeps an in-memory tree in sync with a storage folder
(file://, mem:// or any afs supported scheme) and installs downloaded
archives into it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		l, logErr := logging.New(logging.Config{Level: "debug", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (yaml, json or toml)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "", "log format: console or json")
	RootCmd.AddCommand(watchCmd, treeCmd, installCmd)
}

// newService loads the configuration, applies flag overrides and builds the
// service. adjust may tweak the config before validation.
func newService(adjust func(cfg *treemirror.Config)) (*treemirror.Service, error) {
	cfg, err := treemirror.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if adjust != nil {
		adjust(cfg)
	}
	return treemirror.New(treemirror.WithConfig(cfg))
}
