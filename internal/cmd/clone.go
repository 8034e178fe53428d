package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"devinfra-cli/internal/compose"
	"devinfra-cli/internal/execute"
	"devinfra-cli/internal/infra"
	"devinfra-cli/internal/logger"
)

var cloneCmd = &cobra.Command{
	Use:   "clone [infra-name]",
	Short: "Mirror a production infrastructure to this machine",
	Long: `Clone a production infrastructure directory to the local host over SSH
and bring its compose stack up.

The infrastructure lands in $HOME/.<infra-name> (or under --infra-root).
Cloning refuses to overwrite an existing local copy; run 'devinfra
destroy' first if you want a fresh mirror.

Examples:
  # Clone with SSH agent authentication
  devinfra clone shopfloor --host prod.example.com --user deploy

  # Clone from a non-standard remote path with an explicit key
  devinfra clone shopfloor --host prod.example.com --remote-dir /srv/shopfloor --key ~/.ssh/prod_ed25519`,
	Args: cobra.ExactArgs(1),
	RunE: runClone,
}

func init() {
	rootCmd.AddCommand(cloneCmd)

	cloneCmd.Flags().String("host", "", "production host to clone from (required)")
	cloneCmd.Flags().String("user", "root", "SSH user on the production host")
	cloneCmd.Flags().String("port", "22", "SSH port")
	cloneCmd.Flags().String("key", "", "SSH private key path")
	cloneCmd.Flags().String("remote-dir", "", "infrastructure directory on the production host (default /opt/<infra-name>)")
	cloneCmd.Flags().Bool("no-up", false, "sync only, do not bring the stack up")
	cloneCmd.MarkFlagRequired("host")
}

func runClone(cmd *cobra.Command, args []string) error {
	name := args[0]

	host, _ := cmd.Flags().GetString("host")
	user, _ := cmd.Flags().GetString("user")
	port, _ := cmd.Flags().GetString("port")
	keyPath, _ := cmd.Flags().GetString("key")
	remoteDir, _ := cmd.Flags().GetString("remote-dir")
	noUp, _ := cmd.Flags().GetBool("no-up")

	log, err := logger.New(viper.GetString("log_level"), viper.GetString("log_file"))
	if err != nil {
		return err
	}

	runner := execute.NewLocalRunner()
	cloner := infra.NewCloner(runner, log)

	inst, err := cloner.Clone(cmd.Context(), viper.GetString("infra_root"), name, infra.CloneOptions{
		Host:      host,
		User:      user,
		Port:      port,
		KeyPath:   keyPath,
		RemoteDir: remoteDir,
	})
	if err != nil {
		return err
	}

	if noUp {
		fmt.Printf("Stack not started (--no-up); run 'docker compose up -d' in %s when ready\n", inst.Dir)
		return nil
	}

	cm := compose.NewManager(inst.ComposePath(), runner)
	if err := cm.Up(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("✓ Infrastructure '%s' is up\n", name)
	return nil
}
