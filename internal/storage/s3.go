package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Options configures NewS3Backend.
type S3Options struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// putObjectAPI is the slice of the S3 client the backend needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Backend mirrors artifacts into an S3 bucket.
type S3Backend struct {
	client putObjectAPI
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewS3Backend builds an S3 client from opts. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewS3Backend(ctx context.Context, opts S3Options, logger zerolog.Logger) (*S3Backend, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	return newS3Backend(client, opts.Bucket, opts.Prefix, logger), nil
}

func newS3Backend(client putObjectAPI, bucket, prefix string, logger zerolog.Logger) *S3Backend {
	return &S3Backend{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.With().Str("backend", "s3").Str("bucket", bucket).Logger(),
	}
}

// Name returns "s3".
func (b *S3Backend) Name() string {
	return "s3"
}

// Put uploads data as prefix/name.
func (b *S3Backend) Put(ctx context.Context, name string, data []byte) (string, error) {
	key, err := ObjectKey(b.prefix, name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, name)
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", b.bucket, key)
	b.logger.Debug().Str("key", key).Int("size", len(data)).Msg("artifact uploaded")
	return location, nil
}

// Ensure S3Backend implements Backend
var _ Backend = (*S3Backend)(nil)
