package backup

import (
	"fmt"

	"github.com/spf13/cobra"

	"devinfra-cli/internal/backup"
)

var runCmd = &cobra.Command{
	Use:   "run [infra-name]",
	Short: "Run the configured backups now",
	Long: `Execute the rendered backup scripts immediately through the
backup-scheduler container, outside their schedules.

Examples:
  devinfra backup run shopfloor
  devinfra backup run shopfloor --db-only
  devinfra backup run shopfloor --files-only`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	BackupCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("db-only", false, "run only the database backup")
	runCmd.Flags().Bool("files-only", false, "run only the files backup")
	runCmd.MarkFlagsMutuallyExclusive("db-only", "files-only")
}

func runRun(cmd *cobra.Command, args []string) error {
	dbOnly, _ := cmd.Flags().GetBool("db-only")
	filesOnly, _ := cmd.Flags().GetBool("files-only")

	manager, err := buildManager(args[0])
	if err != nil {
		return err
	}

	if err := manager.Run(cmd.Context(), backup.RunFilter{DBOnly: dbOnly, FilesOnly: filesOnly}); err != nil {
		return err
	}
	fmt.Printf("✓ Backup run finished for '%s'\n", args[0])
	return nil
}
