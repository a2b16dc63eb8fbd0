// Package daemon provides the daemon parent command and subcommands.
package daemon

import (
	"github.com/nerdrew/zk-recipes-go/cmd/daemon/subcommands"
	"github.com/spf13/cobra"
)

// DaemonCmd is the parent command for all daemon-related subcommands.
var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the zk-recipes daemon",
	Long: "Manage the zk-recipes daemon.\n\n" +
		"The daemon command allows you to start, stop, and check the status of the " +
		"background warm-cache service. The daemon maintains watches against the " +
		"coordination store and exposes health check and fetch endpoints over HTTP.",
}

func init() {
	DaemonCmd.AddCommand(subcommands.StartCmd)
	DaemonCmd.AddCommand(subcommands.StopCmd)
	DaemonCmd.AddCommand(subcommands.StatusCmd)
}
