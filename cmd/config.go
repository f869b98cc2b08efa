package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ccbridge/ccbridge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the proxy configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfgManager.Exists() {
			color.Yellow("Config already exists at %s", cfgManager.GetPath())
			return nil
		}

		cfg := cfgManager.Get()
		cfg.Providers = []config.Provider{
			{
				Name:    "openrouter",
				APIBase: "https://openrouter.ai/api",
				APIKey:  "sk-or-...",
				Models:  []string{"anthropic/claude-sonnet-4"},
			},
		}
		cfg.Router = config.RouterConfig{
			Default: "openrouter,anthropic/claude-sonnet-4",
		}

		if err := cfgManager.Save(cfg); err != nil {
			return err
		}

		color.Green("Wrote %s", cfgManager.GetPath())

		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cfgManager.Get()

		redacted := *cfg
		redacted.Providers = make([]config.Provider, len(cfg.Providers))

		for i, p := range cfg.Providers {
			p.APIKey = redactKey(p.APIKey)
			redacted.Providers[i] = p
		}

		redacted.APIKey = redactKey(cfg.APIKey)

		out, err := json.MarshalIndent(redacted, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(out))

		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(cfgManager.GetPath())
	},
}

func redactKey(key string) string {
	if len(key) <= 8 {
		if key == "" {
			return ""
		}

		return "****"
	}

	return key[:4] + "****" + key[len(key)-4:]
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
