// Package fetch provides the fetch command for reading a warmed value
// from a running zk-recipes daemon.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerdrew/zk-recipes-go/internal/config"
	"github.com/nerdrew/zk-recipes-go/internal/daemonclient"
)

var (
	fetchDir   bool
	fetchValid bool
)

// FetchCmd reads a registered path's current cached value from the daemon.
var FetchCmd = &cobra.Command{
	Use:   "fetch <path>",
	Short: "Read a cached value from the daemon",
	Long: "Read a cached value from the running daemon.\n\n" +
		"By default, fetch reads a registered static path and prints its current " +
		"value, falling back to the registered default if no update has ever been " +
		"observed. Use --valid to suppress the default and fail instead when the " +
		"value has never been backed by a successful read. Use --dir to read a " +
		"registered directory's full snapshot of child values.",
	Example: `  # Read a static path
  zk-recipes fetch /config/flag

  # Read a directory snapshot
  zk-recipes fetch --dir /features

  # Fail instead of returning the default when the value is unset
  zk-recipes fetch --valid /config/flag`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateFetch,
	RunE:    runFetch,
}

func init() {
	FetchCmd.Flags().BoolVar(&fetchDir, "dir", false, "Read a registered directory instead of a static path")
	FetchCmd.Flags().BoolVar(&fetchValid, "valid", false, "Fail rather than return the registered default for an unset value")
}

func validateFetch(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	if fetchDir && fetchValid {
		return fmt.Errorf("--dir and --valid cannot be combined; directories have no default")
	}
	return nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := args[0]

	client, err := daemonclient.NewFromConfig(config.Get(),
		daemonclient.WithTimeout(daemonclient.FetchTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize daemon client; %w", err)
	}

	ctx := context.Background()

	var value any
	if fetchDir {
		value, err = client.FetchDirectory(ctx, path)
	} else {
		value, err = client.Fetch(ctx, path, fetchValid)
	}
	if err != nil {
		return fmt.Errorf("fetch failed; %w", err)
	}

	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode value; %w", err)
	}
	fmt.Fprintln(out, string(encoded))

	return nil
}
