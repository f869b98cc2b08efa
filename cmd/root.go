// Package cmd implements the ccbridge command line interface.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ccbridge/ccbridge/internal/config"
	"github.com/ccbridge/ccbridge/internal/process"
)

var (
	verbose bool

	cfgManager *config.Manager
	procMgr    *process.Manager
)

var rootCmd = &cobra.Command{
	Use:     "ccbridge",
	Version: "1.0.0",
	Short:   "Anthropic-format proxy for chat-completions providers",
	Long: `ccbridge accepts requests in the Anthropic Messages format, translates
them to the chat-completions format, forwards them to a configured
provider and converts the response back, streaming included.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()

		baseDir := stateDir()
		cfgManager = config.NewManager(baseDir)
		procMgr = process.NewManager(baseDir)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func setupLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(level)

	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

func stateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ccbridge"
	}

	return filepath.Join(home, ".ccbridge")
}
