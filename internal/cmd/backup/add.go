package backup

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [infra-name]",
	Short: "Install scheduled backups for an infrastructure",
	Long: `Install scheduled backups: render the backup scripts, declare the
backup-scheduler service with its job schedules, bring the stack up, and
run the database script once as a smoke test.

Requires the scheduler daemon container (default 'ofelia') to be running.
Fails if backups are already configured; use 'backup config' to change an
existing configuration.

Examples:
  # Defaults: hourly database dumps, nightly file archives
  devinfra backup add shopfloor

  # Database dump every two hours, keep two weeks of dumps
  devinfra backup add shopfloor --db-schedule "0 */2 * * *" --db-retention-days 14

  # Custom backup location
  devinfra backup add shopfloor --backup-path /mnt/backups/shopfloor`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	BackupCmd.AddCommand(addCmd)
	addConfigFlags(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	manager, err := buildManager(args[0])
	if err != nil {
		return err
	}

	result, err := manager.Add(cmd.Context(), optionsFromFlags(cmd))
	if err != nil {
		return err
	}

	fmt.Printf("✓ Backups configured for '%s'\n", args[0])
	if result.Passed {
		fmt.Printf("✓ Smoke test passed: %s\n", result.Artifact)
	} else {
		fmt.Println("Warning: smoke test did not produce a database dump; check 'backup status'")
	}
	return nil
}
