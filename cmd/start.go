package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ccbridge/ccbridge/internal/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the proxy server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if procMgr.IsRunning() {
			color.Yellow("Server already running (pid %d)", procMgr.PID())
			return nil
		}

		cfg, err := cfgManager.Load()
		if err != nil {
			log.Warn().Err(err).Msg("config unreadable, starting with defaults")
			cfg = cfgManager.Get()
		}

		if err := procMgr.WritePID(); err != nil {
			return err
		}
		defer procMgr.Cleanup()

		srv := server.New(cfg)

		done := make(chan struct{})

		go func() {
			defer close(done)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("shutdown failed")
			}
		}()

		err = srv.Start()
		<-done

		return err
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
