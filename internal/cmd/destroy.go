package cmd

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"devinfra-cli/internal/compose"
	"devinfra-cli/internal/execute"
	"devinfra-cli/internal/infra"
	"devinfra-cli/internal/logger"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy [infra-name]",
	Short: "Tear down a local infrastructure mirror",
	Long: `Stop the infrastructure's compose stack and delete its local directory.

Backup artifacts under the backup root are untouched; only the mirror
itself goes away.

Examples:
  devinfra destroy shopfloor
  devinfra destroy shopfloor --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runDestroy,
}

func init() {
	rootCmd.AddCommand(destroyCmd)
	destroyCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
}

func runDestroy(cmd *cobra.Command, args []string) error {
	name := args[0]

	inst, err := infra.Resolve(viper.GetString("infra_root"), name)
	if err != nil {
		return err
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		confirmed := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Destroy infrastructure '%s' (%s)? This deletes the local directory.", name, inst.Dir),
		}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	log, err := logger.New(viper.GetString("log_level"), viper.GetString("log_file"))
	if err != nil {
		return err
	}

	runner := execute.NewLocalRunner()
	cm := compose.NewManager(inst.ComposePath(), runner)
	if err := cm.Down(cmd.Context()); err != nil {
		// A stack that never came up should not block deletion.
		fmt.Printf("Warning: compose down failed: %v\n", err)
	}

	if err := os.RemoveAll(inst.Dir); err != nil {
		return fmt.Errorf("failed to delete %s: %w", inst.Dir, err)
	}

	log.Infow("infrastructure destroyed", "name", name, "dir", inst.Dir)
	fmt.Printf("✓ Destroyed '%s'\n", name)
	return nil
}
