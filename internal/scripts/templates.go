package scripts

// The two backup scripts are rendered wholesale on every add/config and
// never patched in place. They run inside the backup-scheduler container,
// which mounts the backup root and the infrastructure directory at their
// host paths, so the embedded absolute paths resolve on both sides.

const dbScriptTemplate = `#!/bin/sh
# Generated by devinfra. Do not edit: regenerated on every 'backup add'.
set -u

BACKUP_DIR="{{.BackupDir}}/database"
RETENTION_DAYS={{.DBRetentionDays}}
DB_HOST="{{.DBHost}}"

mkdir -p "$BACKUP_DIR"

databases=$(mysql -h "$DB_HOST" -uroot -p"$MYSQL_ROOT_PASSWORD" -N -e 'SHOW DATABASES' \
  | grep -Ev '^(information_schema|performance_schema|mysql|sys)$')

for db in $databases; do
  echo "dumping $db"
  if mysqldump -h "$DB_HOST" -uroot -p"$MYSQL_ROOT_PASSWORD" \
      --single-transaction --quick --routines "$db" \
      | gzip > "$BACKUP_DIR/$db.sql.gz.part"; then
    mv "$BACKUP_DIR/$db.sql.gz.part" "$BACKUP_DIR/$db.sql.gz"
  else
    echo "dump failed for $db, skipping" >&2
    rm -f "$BACKUP_DIR/$db.sql.gz.part"
  fi
done

find "$BACKUP_DIR" -name '*.sql.gz' -type f -mtime +$RETENTION_DAYS -delete
`

const filesScriptTemplate = `#!/bin/sh
# Generated by devinfra. Do not edit: regenerated on every 'backup add'.
set -u

BACKUP_DIR="{{.BackupDir}}/files"
WP_ROOT="{{.WordPressRoot}}"
RETENTION_DAYS={{.FilesRetentionDays}}
STAMP=$(date +%Y%m%d-%H%M%S)

mkdir -p "$BACKUP_DIR"

for site in "$WP_ROOT"/*/; do
  domain=$(basename "$site")
  if [ ! -d "$site/public" ]; then
    echo "skipping $domain: no public directory" >&2
    continue
  fi

  staging=$(mktemp -d "/tmp/$domain.XXXXXX")
  cp -a "$site/public/wp-content" "$staging/" 2>/dev/null
  cp -a "$site/public/wp-config.php" "$staging/" 2>/dev/null
  cp -a "$site/public/.htaccess" "$staging/" 2>/dev/null

  archive="$BACKUP_DIR/$domain-$STAMP.tar.gz"
  if tar -czf "$archive" -C "$staging" .; then
    ln -sfn "$domain-$STAMP.tar.gz" "$BACKUP_DIR/$domain-latest.tar.gz"
  else
    echo "archive failed for $domain, skipping" >&2
    rm -f "$archive"
  fi
  rm -rf "$staging"
done

find "$BACKUP_DIR" -name '*.tar.gz' ! -name '*-latest.tar.gz' -type f \
  -mtime +$RETENTION_DAYS -delete
`
