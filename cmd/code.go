package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var codeCmd = &cobra.Command{
	Use:   "code [args...]",
	Short: "Run the claude CLI against the local proxy",
	Long: `Launches the claude CLI with its base URL pointed at the local proxy,
starting the server first if it is not already running. The server is
stopped again when the last such session exits.`,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		startedHere := false

		if !procMgr.IsRunning() {
			color.Cyan("Starting server...")

			self, err := os.Executable()
			if err != nil {
				return err
			}

			bg := exec.Command(self, "start")
			bg.Stdout = nil
			bg.Stderr = nil

			if err := bg.Start(); err != nil {
				return fmt.Errorf("starting server: %w", err)
			}

			startedHere = true

			for i := 0; i < 50 && !procMgr.IsRunning(); i++ {
				time.Sleep(100 * time.Millisecond)
			}

			if !procMgr.IsRunning() {
				return fmt.Errorf("server did not come up")
			}
		}

		procMgr.AddReference()
		defer func() {
			if procMgr.DropReference() == 0 && startedHere {
				_ = procMgr.Stop()
			}
		}()

		cfg := cfgManager.Get()

		claude := exec.Command("claude", args...)
		claude.Stdin = os.Stdin
		claude.Stdout = os.Stdout
		claude.Stderr = os.Stderr
		claude.Env = append(os.Environ(),
			fmt.Sprintf("ANTHROPIC_BASE_URL=http://%s:%d", cfg.Host, cfg.Port),
			fmt.Sprintf("ANTHROPIC_API_KEY=%s", apiKeyOrPlaceholder(cfg.APIKey)),
		)

		return claude.Run()
	},
}

func apiKeyOrPlaceholder(key string) string {
	if key == "" {
		return "local"
	}

	return key
}

func init() {
	rootCmd.AddCommand(codeCmd)
}
