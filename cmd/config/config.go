// Package config provides the config parent command and subcommands.
package config

import (
	"github.com/spf13/cobra"

	"github.com/nerdrew/zk-recipes-go/cmd/config/subcommands"
)

// ConfigCmd is the parent command for all config-related subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage zk-recipes configuration",
	Long: "Manage zk-recipes configuration.\n\n" +
		"The config command allows you to view, edit, and reset the zk-recipes " +
		"configuration. Configuration is stored in a YAML file located at " +
		"~/.config/zk-recipes/config.yaml by default.",
}

func init() {
	// Register subcommands
	ConfigCmd.AddCommand(subcommands.ShowCmd)
	ConfigCmd.AddCommand(subcommands.EditCmd)
	ConfigCmd.AddCommand(subcommands.ResetCmd)
	ConfigCmd.AddCommand(subcommands.ValidateCmd)
}
