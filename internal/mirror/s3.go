package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"modmap/internal/config"
	"modmap/internal/modmap"
)

// S3Mirror stores snapshots in an S3 bucket under
// <prefix>/snapshots/<checksum>. Uploads go through the multipart
// upload manager so large collection files stream without buffering
// entirely in memory.
type S3Mirror struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

var _ modmap.Mirror = (*S3Mirror)(nil)

// NewS3Mirror builds an S3Mirror from configuration. Static credentials
// are optional; when absent the default AWS credential chain applies.
func NewS3Mirror(cfg config.MirrorConfig) (*S3Mirror, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 mirror requires s3_bucket to be set")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Mirror{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
	}, nil
}

func (m *S3Mirror) key(checksum string) string {
	return path.Join(m.prefix, "snapshots", checksum)
}

// Put uploads a snapshot under its checksum key. Existing objects are
// skipped: the key is content-addressed, so same key means same bytes.
func (m *S3Mirror) Put(checksum string, r io.Reader, size int64) error {
	ctx := context.Background()
	key := m.key(checksum)

	_, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		// Already mirrored; drain the reader to honor the contract.
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("checking for existing object %s: %w", key, err)
	}

	if _, err := m.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
		Body:   r,
	}); err != nil {
		return fmt.Errorf("uploading snapshot %s: %w", key, err)
	}
	return nil
}

// Get downloads the snapshot stored under checksum and writes it to w.
func (m *S3Mirror) Get(checksum string, w io.Writer) error {
	ctx := context.Background()
	key := m.key(checksum)

	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("downloading snapshot %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// ValidateSetup verifies the bucket is reachable with the configured
// credentials.
func (m *S3Mirror) ValidateSetup() error {
	_, err := m.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(m.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", m.bucket, err)
	}
	return nil
}
