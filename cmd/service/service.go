// Package service provides the service parent command, driving
// internal/servicemanager to install or remove the daemon as a
// platform-native background service.
package service

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerdrew/zk-recipes-go/internal/servicemanager"
)

// ServiceCmd is the parent command for service install/uninstall/status.
var ServiceCmd = &cobra.Command{
	Use:   "service",
	Short: "Install or remove the daemon as a system service",
	Long: "Install or remove the daemon as a system service.\n\n" +
		"On Linux this manages a systemd user unit; on macOS it manages a launchd " +
		"agent. Once installed, the service starts the daemon automatically and " +
		"restarts it on failure.",
}

func init() {
	ServiceCmd.AddCommand(installCmd)
	ServiceCmd.AddCommand(uninstallCmd)
	ServiceCmd.AddCommand(statusCmd)
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install and start the daemon service",
	Example: `  # Install and start the daemon as a background service
  zk-recipes service install`,
	PreRunE: validateService,
	RunE:    runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop and remove the daemon service",
	Example: `  # Remove the background service
  zk-recipes service uninstall`,
	PreRunE: validateService,
	RunE:    runUninstall,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the installed service's state",
	Example: `  # Check whether the service is installed and running
  zk-recipes service status`,
	PreRunE: validateService,
	RunE:    runServiceStatus,
}

func validateService(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	return nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	manager, err := servicemanager.NewDaemonManager()
	if err != nil {
		return fmt.Errorf("failed to create service manager; %w", err)
	}

	if err := manager.Install(cmd.Context()); err != nil {
		return fmt.Errorf("failed to install service; %w", err)
	}

	if err := manager.StartDaemon(cmd.Context()); err != nil {
		return fmt.Errorf("service installed but failed to start; %w", err)
	}

	fmt.Fprintln(out, "Service installed and started")
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	manager, err := servicemanager.NewDaemonManager()
	if err != nil {
		return fmt.Errorf("failed to create service manager; %w", err)
	}

	if err := manager.Uninstall(cmd.Context()); err != nil {
		return fmt.Errorf("failed to uninstall service; %w", err)
	}

	fmt.Fprintln(out, "Service uninstalled")
	return nil
}

func runServiceStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	manager, err := servicemanager.NewDaemonManager()
	if err != nil {
		return fmt.Errorf("failed to create service manager; %w", err)
	}

	status, err := manager.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get service status; %w", err)
	}

	fmt.Fprintf(out, "Service: %s\n", status.ServiceState)
	if status.IsRunning {
		fmt.Fprintf(out, "Running: yes (PID %d)\n", status.PID)
	} else {
		fmt.Fprintln(out, "Running: no")
	}
	if status.Health != nil {
		fmt.Fprintf(out, "Health: %s\n", status.Health.Status)
	}
	if status.Error != nil {
		fmt.Fprintf(out, "Error: %v\n", status.Error)
	}

	return nil
}
