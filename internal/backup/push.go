package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PushTarget selects where push uploads artifacts.
type PushTarget string

const (
	TargetMinio PushTarget = "minio"
	TargetS3    PushTarget = "s3"
)

// PushConfig holds the offsite store credentials. Minio is the default
// target; S3 is for teams whose offsite copy lives in AWS.
type PushConfig struct {
	Target PushTarget

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string

	Bucket string
	// Prefix is prepended to every object key, typically the
	// infrastructure name.
	Prefix string
}

// Validate reports the first missing required field.
func (c *PushConfig) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("push: bucket is required")
	}
	switch c.Target {
	case TargetMinio:
		if c.MinioEndpoint == "" {
			return fmt.Errorf("push: minio endpoint is required")
		}
		if c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return fmt.Errorf("push: minio credentials are required")
		}
	case TargetS3:
		if c.AWSRegion == "" {
			return fmt.Errorf("push: aws region is required")
		}
		if c.AWSAccessKey == "" || c.AWSSecretKey == "" {
			return fmt.Errorf("push: aws credentials are required")
		}
	default:
		return fmt.Errorf("push: unknown target %q (want minio or s3)", c.Target)
	}
	return nil
}

// objectStore is the narrow upload surface both backends implement.
type objectStore interface {
	Upload(ctx context.Context, key, localPath string) error
}

// Push uploads the newest database dump and file archive to the offsite
// store. Local artifacts are never deleted; retention of offsite copies
// is the bucket's lifecycle policy's problem.
func (m *Manager) Push(ctx context.Context, opts Options, cfg PushConfig) error {
	opts.ApplyDefaults(m.inst)
	if cfg.Target == "" {
		cfg.Target = TargetMinio
	}
	if cfg.Prefix == "" {
		cfg.Prefix = m.inst.Name
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		return err
	}

	var candidates []Artifact
	dbArtifacts, err := DatabaseArtifacts(opts.BackupPath, 1)
	if err != nil {
		return err
	}
	candidates = append(candidates, dbArtifacts...)
	fileArtifacts, err := FileArtifacts(opts.BackupPath, 1)
	if err != nil {
		return err
	}
	candidates = append(candidates, fileArtifacts...)

	if len(candidates) == 0 {
		return fmt.Errorf("%w: no artifacts under %s to push", ErrNotConfigured, opts.BackupPath)
	}

	for _, artifact := range candidates {
		key := filepath.ToSlash(filepath.Join(cfg.Prefix, filepath.Base(artifact.Path)))
		fmt.Printf("Uploading %s (%s)...\n", filepath.Base(artifact.Path), humanSize(artifact.Size))
		if err := store.Upload(ctx, key, artifact.Path); err != nil {
			return fmt.Errorf("failed to upload %s: %w", artifact.Path, err)
		}
		m.log.Infow("artifact pushed", "infra", m.inst.Name, "key", key, "bytes", artifact.Size)
		fmt.Printf("✓ %s\n", key)
	}
	return nil
}

func newObjectStore(ctx context.Context, cfg PushConfig) (objectStore, error) {
	switch cfg.Target {
	case TargetS3:
		return newS3Store(ctx, cfg)
	default:
		return newMinioStore(ctx, cfg)
	}
}

type minioStore struct {
	client *minio.Client
	bucket string
}

func newMinioStore(ctx context.Context, cfg PushConfig) (*minioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	return &minioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *minioStore) Upload(ctx context.Context, key, localPath string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "application/gzip",
	})
	return err
}

type s3Store struct {
	client *s3.Client
	bucket string
}

func newS3Store(ctx context.Context, cfg PushConfig) (*s3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(awscredentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKey,
			cfg.AWSSecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		return nil, fmt.Errorf("bucket %s does not exist or is not accessible: %w", cfg.Bucket, err)
	}

	return &s3Store{client: client, bucket: cfg.Bucket}, nil
}

func (s *s3Store) Upload(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/gzip"),
	})
	return err
}
