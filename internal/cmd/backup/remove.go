package backup

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove [infra-name]",
	Short: "Uninstall scheduled backups",
	Long: `Remove the backup-scheduler container and its compose declaration.

Rendered scripts and existing backup artifacts stay on disk; delete them
manually if you want them gone. Removing an unconfigured backup is a
warning, not an error.

Examples:
  devinfra backup remove shopfloor`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	BackupCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	manager, err := buildManager(args[0])
	if err != nil {
		return err
	}

	if err := manager.Remove(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("✓ Backups removed for '%s'\n", args[0])
	return nil
}
