package backup

import (
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [infra-name]",
	Short: "Report the backup configuration and recent artifacts",
	Long: `Show the backup configuration of an infrastructure: scheduler state,
declared jobs and schedules, recent artifacts, disk usage, and which
databases the next dump will cover.

Every section is best-effort; an unreachable daemon or database degrades
its section without failing the command. An unconfigured infrastructure
reports "not installed" and exits successfully.

Examples:
  devinfra backup status shopfloor`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	BackupCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("backup-path", "", "backup root on the host (default ~/Backups/infrastructure/<infra-name>)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := buildManager(args[0])
	if err != nil {
		return err
	}

	opts := optionsFromStatusFlags(cmd)
	return manager.Status(cmd.Context(), os.Stdout, opts)
}
