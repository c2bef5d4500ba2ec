package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type Config struct {
	// Endpoint is optional: set it to point at minio or another
	// S3 compatible storage, leave empty for AWS itself
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string

	// Base for public object URLs returned to callers
	PublicBaseURL string
}

// S3Storage uploads user media (avatars, covers) to an S3 bucket and
// returns public URLs to persist on the user record.
type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func New(ctx context.Context, cfg Config) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("can't load aws config. Err: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Upload stores the object under a date prefixed random key and returns its
// public URL. Caller treats any error as upload failure and aborts.
func (s *S3Storage) Upload(ctx context.Context, name string, contentType string, r io.Reader) (string, error) {
	key := storageKey(name)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        r,
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("can't put object '%s'. Err: %w", key, err)
	}

	return s.baseURL + "/" + key, nil
}

func storageKey(name string) string {
	d := time.Now()
	return fmt.Sprintf("media/%d/%02d/%v%s", d.Year(), d.Month(), uuid.New(), path.Ext(name))
}
