package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	configcmd "github.com/nerdrew/zk-recipes-go/cmd/config"
	"github.com/nerdrew/zk-recipes-go/cmd/daemon"
	fetchcmd "github.com/nerdrew/zk-recipes-go/cmd/fetch"
	servicecmd "github.com/nerdrew/zk-recipes-go/cmd/service"
	"github.com/nerdrew/zk-recipes-go/cmd/version"
	"github.com/nerdrew/zk-recipes-go/internal/config"
	"github.com/nerdrew/zk-recipes-go/internal/logging"
)

// logManager is the global logging manager, created in init() and upgraded after config loads
var logManager *logging.Manager

// Quiet suppresses non-error output when true
var Quiet bool

var rootCmd = &cobra.Command{
	Use:   "zk-recipes",
	Short: "An in-process coordination-data cache in front of ZooKeeper",
	Long: "zk-recipes runs a warm-cache daemon that mirrors a set of registered ZooKeeper " +
		"paths and directories into memory, keeping them current via watches rather than " +
		"per-read round trips to the ensemble.\n\n" +
		"The daemon command starts the long-running process; the fetch command reads a " +
		"warmed value from a running daemon; service installs it as a background system " +
		"service; config manages the daemon's configuration file.",
	PersistentPreRunE: runInitialize,
}

func init() {
	logManager = logging.NewManager()
	slog.SetDefault(logManager.Logger())

	rootCmd.PersistentFlags().BoolVarP(&Quiet, "quiet", "q", false, "Suppress non-error output")

	rootCmd.AddCommand(version.VersionCmd)
	rootCmd.AddCommand(daemon.DaemonCmd)
	rootCmd.AddCommand(fetchcmd.FetchCmd)
	rootCmd.AddCommand(servicecmd.ServiceCmd)
	rootCmd.AddCommand(configcmd.ConfigCmd)
}

func runInitialize(cmd *cobra.Command, args []string) error {
	logger := logManager.Logger()

	if err := config.Init(); err != nil {
		return err
	}

	cfg := config.Get()
	logFile := config.ExpandPath(cfg.LogFile)
	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		level = logging.DefaultLevel
		if cfg.LogLevel != "" {
			logger.Warn("invalid log level configured, using default", "configured", cfg.LogLevel, "default", "info")
		}
	}

	if err := logManager.Upgrade(logFile, level); err != nil {
		logger.Warn("failed to enable file logging, continuing with stderr only", "error", err)
	}

	return nil
}

func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	defer func() { _ = logManager.Close() }()

	err := rootCmd.Execute()

	if err != nil {
		cmd, _, _ := rootCmd.Find(os.Args[1:])
		if cmd == nil {
			cmd = rootCmd
		}

		fmt.Printf("Error: %v\n", err)
		if !cmd.SilenceUsage {
			fmt.Printf("\n")
			cmd.SetOut(os.Stdout)
			_ = cmd.Usage()
		}

		return err
	}

	return nil
}
