package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectPutter is the slice of the S3 client the notifier needs.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures the S3 marker notifier. Empty region and credentials
// fall back to the standard AWS configuration chain.
type S3Options struct {
	Bucket string
	Prefix string
	Region string
}

// S3Notifier writes a completion marker object per batch at
// <prefix>/<run_id>.json.
type S3Notifier struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Notifier loads AWS configuration and creates the notifier.
func NewS3Notifier(ctx context.Context, opts S3Options) (*S3Notifier, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 notifier: bucket is required")
	}
	// One attempt per notification; the SDK default retryer would make three.
	loadOpts := []func(*config.LoadOptions) error{config.WithRetryMaxAttempts(1)}
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return newS3Notifier(s3.NewFromConfig(awsCfg), opts.Bucket, opts.Prefix), nil
}

func newS3Notifier(client objectPutter, bucket, prefix string) *S3Notifier {
	return &S3Notifier{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Notifier) key(runID string) string {
	return path.Join(s.prefix, runID+".json")
}

func (s *S3Notifier) Notify(ctx context.Context, n Notification) error {
	payload, err := n.payload()
	if err != nil {
		return err
	}
	key := s.key(n.RunID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("writing marker s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3Notifier) Close() error { return nil }
