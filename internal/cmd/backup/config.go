package backup

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [infra-name]",
	Short: "Replace the backup configuration",
	Long: `Replace the backup configuration: remove the current one and install a
new one with the given parameters. Equivalent to 'backup remove' followed
by 'backup add'; the replacement is not atomic, a failed install leaves
backups unconfigured.

Examples:
  devinfra backup config shopfloor --db-schedule "30 * * * *"
  devinfra backup config shopfloor --files-retention-days 60 --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runConfig,
}

func init() {
	BackupCmd.AddCommand(configCmd)
	addConfigFlags(configCmd)
	configCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		confirmed := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Replace the backup configuration of '%s'? The current schedules are discarded.", args[0]),
		}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	manager, err := buildManager(args[0])
	if err != nil {
		return err
	}

	result, err := manager.Configure(cmd.Context(), optionsFromFlags(cmd))
	if err != nil {
		return err
	}

	fmt.Printf("✓ Backup configuration replaced for '%s'\n", args[0])
	if !result.Passed {
		fmt.Println("Warning: smoke test did not produce a database dump; check 'backup status'")
	}
	return nil
}
