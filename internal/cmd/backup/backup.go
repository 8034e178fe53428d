package backup

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"devinfra-cli/internal/backup"
	"devinfra-cli/internal/compose"
	"devinfra-cli/internal/docker"
	"devinfra-cli/internal/execute"
	"devinfra-cli/internal/infra"
	"devinfra-cli/internal/logger"
	"devinfra-cli/internal/scheduler"
)

// BackupCmd is the backup command group exported for use by the root command.
var BackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Scheduled backups for an infrastructure mirror",
	Long: `Manage the backup configuration of a local infrastructure mirror:
install scheduled database and file backups, inspect their status, and
trigger or push them manually.`,
}

// buildManager wires the lifecycle manager for one named infrastructure.
func buildManager(name string) (*backup.Manager, error) {
	inst, err := infra.Resolve(viper.GetString("infra_root"), name)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(viper.GetString("log_level"), viper.GetString("log_file"))
	if err != nil {
		return nil, err
	}

	dockerClient, err := docker.NewClient()
	if err != nil {
		return nil, err
	}

	runner := execute.NewLocalRunner()
	return backup.NewManager(
		inst,
		compose.NewManager(inst.ComposePath(), runner),
		dockerClient,
		scheduler.NewManager(viper.GetString("daemon_container"), dockerClient),
		runner,
		log,
	), nil
}

// addConfigFlags registers the tunables shared by add and config.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("backup-path", "", "backup root on the host (default ~/Backups/infrastructure/<infra-name>)")
	cmd.Flags().String("db-schedule", "", "cron schedule for database dumps (default from config, @hourly)")
	cmd.Flags().String("files-schedule", "", "cron schedule for file archives (default from config, 0 2 * * *)")
	cmd.Flags().Int("db-retention-days", 0, "days to keep database dumps (default 7)")
	cmd.Flags().Int("files-retention-days", 0, "days to keep file archives (default 30)")
	cmd.Flags().String("wordpress-root", "", "directory holding the per-site trees (default <infra-dir>/sites)")
	cmd.Flags().String("scheduler-image", "", "image for the backup-scheduler container")
}

// optionsFromFlags folds flag values over the viper-configured defaults.
// Unset values stay empty here; the manager applies the layout defaults.
func optionsFromFlags(cmd *cobra.Command) backup.Options {
	opts := backup.Options{
		DBSchedule:         viper.GetString("db_schedule"),
		FilesSchedule:      viper.GetString("files_schedule"),
		DBRetentionDays:    viper.GetInt("db_retention_days"),
		FilesRetentionDays: viper.GetInt("files_retention_days"),
		SchedulerImage:     viper.GetString("scheduler_image"),
		DaemonContainer:    viper.GetString("daemon_container"),
	}

	if v, _ := cmd.Flags().GetString("backup-path"); v != "" {
		opts.BackupPath = v
	}
	if v, _ := cmd.Flags().GetString("db-schedule"); v != "" {
		opts.DBSchedule = v
	}
	if v, _ := cmd.Flags().GetString("files-schedule"); v != "" {
		opts.FilesSchedule = v
	}
	if v, _ := cmd.Flags().GetInt("db-retention-days"); v != 0 {
		opts.DBRetentionDays = v
	}
	if v, _ := cmd.Flags().GetInt("files-retention-days"); v != 0 {
		opts.FilesRetentionDays = v
	}
	if v, _ := cmd.Flags().GetString("wordpress-root"); v != "" {
		opts.WordPressRoot = v
	}
	if v, _ := cmd.Flags().GetString("scheduler-image"); v != "" {
		opts.SchedulerImage = v
	}
	return opts
}
