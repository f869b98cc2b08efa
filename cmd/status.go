package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and configuration status",
	Run: func(cmd *cobra.Command, args []string) {
		if procMgr.IsRunning() {
			color.Green("● Server running (pid %d)", procMgr.PID())
		} else {
			color.Red("● Server stopped")
		}

		cfg := cfgManager.Get()
		color.White("  Address:   %s:%d", cfg.Host, cfg.Port)
		color.White("  Providers: %d configured", len(cfg.Providers))

		if cfgManager.Exists() {
			color.White("  Config:    %s", cfgManager.GetPath())
		} else {
			color.Yellow("  Config:    none (run 'ccbridge config init')")
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
