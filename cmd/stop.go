package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running proxy server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !procMgr.IsRunning() {
			color.Yellow("Server is not running")
			procMgr.Cleanup()

			return nil
		}

		pid := procMgr.PID()
		if err := procMgr.Stop(); err != nil {
			return err
		}

		color.Green("Stopped server (pid %d)", pid)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
