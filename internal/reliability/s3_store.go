package reliability

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Options configures an S3-compatible bucket (AWS, Cloudflare R2, MinIO)
type S3Options struct {
	Bucket          string
	Endpoint        string // empty for AWS itself
	Region          string
	AccessKeyID     string // empty uses the default credential chain
	SecretAccessKey string
	Prefix          string // key prefix, e.g. "backups/"
}

// S3Store keeps backup archives in an S3 bucket
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	now      func() time.Time
	log      zerolog.Logger
}

// NewS3Store builds an S3 client from opts
func NewS3Store(ctx context.Context, opts S3Options, log zerolog.Logger) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   opts.Bucket,
		prefix:   opts.Prefix,
		now:      time.Now,
		log:      log.With().Str("service", "s3_backup").Str("bucket", opts.Bucket).Logger(),
	}, nil
}

// Upload streams an archive to the bucket in multipart chunks
func (s *S3Store) Upload(ctx context.Context, name string, body io.Reader) error {
	key := s.prefix + name
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("application/gzip"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	s.log.Info().Str("key", key).Msg("Backup uploaded")
	return nil
}

// List returns the archives stored under the prefix
func (s *S3Store) List(ctx context.Context) ([]BackupInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + backupPrefix),
	})

	now := s.now()
	var backups []BackupInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			stamp, ok := ParseBackupName(name)
			if !ok {
				continue
			}
			backups = append(backups, BackupInfo{
				Filename:  name,
				Timestamp: stamp,
				SizeBytes: aws.ToInt64(obj.Size),
				AgeHours:  int64(now.Sub(stamp).Hours()),
				Location:  "s3",
			})
		}
	}
	return backups, nil
}

// Delete removes one archive
func (s *S3Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}
