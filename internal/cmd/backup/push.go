package backup

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"devinfra-cli/internal/backup"
)

var pushCmd = &cobra.Command{
	Use:   "push [infra-name]",
	Short: "Upload the newest backup artifacts offsite",
	Long: `Upload the most recent database dump and file archive to offsite object
storage. Minio is the default target; use --target s3 for AWS.

Credentials come from the config file or DEVINFRA_* environment
variables:
  minio: push_minio_endpoint, push_minio_access_key, push_minio_secret_key
  s3:    push_aws_region, push_aws_access_key, push_aws_secret_key
  both:  push_bucket

Examples:
  devinfra backup push shopfloor
  devinfra backup push shopfloor --target s3 --bucket offsite-backups`,
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

func init() {
	BackupCmd.AddCommand(pushCmd)
	pushCmd.Flags().String("backup-path", "", "backup root on the host (default ~/Backups/infrastructure/<infra-name>)")
	pushCmd.Flags().String("target", "", "offsite target: minio or s3 (default minio)")
	pushCmd.Flags().String("bucket", "", "destination bucket")
	pushCmd.Flags().String("prefix", "", "object key prefix (default <infra-name>)")
}

func runPush(cmd *cobra.Command, args []string) error {
	manager, err := buildManager(args[0])
	if err != nil {
		return err
	}

	target, _ := cmd.Flags().GetString("target")
	bucket, _ := cmd.Flags().GetString("bucket")
	prefix, _ := cmd.Flags().GetString("prefix")
	if bucket == "" {
		bucket = viper.GetString("push_bucket")
	}

	cfg := backup.PushConfig{
		Target:         backup.PushTarget(target),
		Bucket:         bucket,
		Prefix:         prefix,
		MinioEndpoint:  viper.GetString("push_minio_endpoint"),
		MinioAccessKey: viper.GetString("push_minio_access_key"),
		MinioSecretKey: viper.GetString("push_minio_secret_key"),
		MinioUseSSL:    viper.GetBool("push_minio_use_ssl"),
		AWSRegion:      viper.GetString("push_aws_region"),
		AWSAccessKey:   viper.GetString("push_aws_access_key"),
		AWSSecretKey:   viper.GetString("push_aws_secret_key"),
	}

	opts := optionsFromStatusFlags(cmd)
	if err := manager.Push(cmd.Context(), opts, cfg); err != nil {
		return err
	}
	fmt.Printf("✓ Push finished for '%s'\n", args[0])
	return nil
}

// optionsFromStatusFlags builds options for the read-only commands, which
// only carry the backup-path tunable.
func optionsFromStatusFlags(cmd *cobra.Command) backup.Options {
	opts := backup.Options{
		DaemonContainer: viper.GetString("daemon_container"),
	}
	if v, _ := cmd.Flags().GetString("backup-path"); v != "" {
		opts.BackupPath = v
	}
	return opts
}
