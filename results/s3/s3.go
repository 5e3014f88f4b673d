// Package s3 provides a results.Sink that stores the result document as a
// single object in AWS S3 or an S3-compatible service (MinIO, R2).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/memorybench/results"
)

const (
	defaultRegion      = "us-east-1"
	defaultContentType = "application/json"
)

// ErrEmptyBucket is returned when no bucket is configured.
var ErrEmptyBucket = errors.New("s3: bucket is required")

// ErrEmptyKey is returned when no object key is configured.
var ErrEmptyKey = errors.New("s3: object key is required")

// Options configures the sink.
type Options struct {
	Bucket string
	Key    string

	Region       string
	Endpoint     string
	UsePathStyle bool

	// Static credentials; when empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// api is the subset of the S3 client used by the sink.
type api interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Sink writes the result document with PutObject and reads it back with
// GetObject. Each write replaces the object atomically.
type Sink struct {
	s3     api
	bucket string
	key    string
}

var _ results.Sink = (*Sink)(nil)

// NewSink creates a sink from the default AWS configuration.
func NewSink(ctx context.Context, optFns ...func(o *Options)) (*Sink, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Bucket == "" {
		return nil, ErrEmptyBucket
	}
	if opts.Key == "" {
		return nil, ErrEmptyKey
	}

	var awsOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		awsOpts = append(awsOpts, config.WithRegion(opts.Region))
	} else if opts.Endpoint != "" {
		awsOpts = append(awsOpts, config.WithRegion(defaultRegion))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
		if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)
		}
	})
	return newSink(client, opts.Bucket, opts.Key), nil
}

func newSink(client api, bucket, key string) *Sink {
	return &Sink{s3: client, bucket: bucket, key: key}
}

// Write implements results.Sink.
func (s *Sink) Write(ctx context.Context, data []byte) error {
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(defaultContentType),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

// Read implements results.Sink.
func (s *Sink) Read(ctx context.Context) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Join(results.ErrNotFound, err)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr interface{ ErrorCode() string }
	return errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound")
}
