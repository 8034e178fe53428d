package backup

import "errors"

// The lifecycle error taxonomy. Fatal errors abort the command with
// remediation text; everything else is reported inline and the command
// carries on.
var (
	// ErrAlreadyConfigured: the backup-scheduler service is already
	// declared in the compose file. Remediation: `backup remove` first,
	// or `backup config` to replace the configuration.
	ErrAlreadyConfigured = errors.New("backup already configured")

	// ErrSchedulerUnavailable: the job-scheduler daemon's container is
	// not running. Fatal on add, degraded on status.
	ErrSchedulerUnavailable = errors.New("scheduler daemon unavailable")

	// ErrNotConfigured: no backup-scripts directory. Remediation:
	// `backup add` first.
	ErrNotConfigured = errors.New("backup not configured")
)
