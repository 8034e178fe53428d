package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	backupcmd "devinfra-cli/internal/cmd/backup"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "devinfra",
		Short: "devinfra - manage local mirrors of production infrastructure",
		Long: `devinfra manages development copies of production Docker Compose
infrastructures: cloning them from the production host, wiring scheduled
backups into them, and tearing them down again.`,
		Version: "1.0.0",
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.devinfra.yaml)")
	rootCmd.PersistentFlags().String("infra-root", "", "directory holding the .<name> infrastructure dirs (default is $HOME)")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")
	viper.BindPFlag("infra_root", rootCmd.PersistentFlags().Lookup("infra-root"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(backupcmd.BackupCmd)

	// Load environment variables from a .env file in the current directory.
	// A missing file is fine; shell-provided variables still apply.
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetDefault("db_schedule", "@hourly")
	viper.SetDefault("files_schedule", "0 2 * * *")
	viper.SetDefault("db_retention_days", 7)
	viper.SetDefault("files_retention_days", 30)
	viper.SetDefault("scheduler_image", "mariadb:10.11")
	viper.SetDefault("daemon_container", "ofelia")
	viper.SetDefault("log_level", "info")
	if home, err := os.UserHomeDir(); err == nil {
		viper.SetDefault("log_file", filepath.Join(home, ".devinfra", "devinfra.log"))
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".devinfra")
	}

	viper.SetEnvPrefix("DEVINFRA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
