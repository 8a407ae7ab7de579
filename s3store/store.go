// Package s3store keeps the tracker document as a single object in an S3
// compatible bucket (AWS S3, Cloudflare R2, MinIO).
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/etnz/tracker"
)

// API is the part of *s3.Client the store uses.
type API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config locates the object.
type Config struct {
	Bucket string
	Key    string
	Region string
	// Endpoint overrides the AWS endpoint for S3 compatible services. Path
	// style addressing is used when set.
	Endpoint string
	// AccessKeyID and SecretAccessKey are optional, the default AWS
	// credential chain is used when empty.
	AccessKeyID     string
	SecretAccessKey string
}

// Store implements tracker.Blob over one S3 object.
type Store struct {
	api    API
	bucket string
	key    string
}

// New returns a store on an existing client.
func New(api API, bucket, key string) *Store {
	return &Store{api: api, bucket: bucket, key: key}
}

// Open loads the AWS configuration and returns a store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("s3store: bucket and key are required")
	}
	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3store: loading aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return New(client, cfg.Bucket, cfg.Key), nil
}

// Get returns the object content, or tracker.ErrNotFound.
func (s *Store) Get(ctx context.Context) ([]byte, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, classify(err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading s3://%s/%s: %v", tracker.ErrRemoteUnreachable, s.bucket, s.key, err)
	}
	return data, nil
}

// Put replaces the object content.
func (s *Store) Put(ctx context.Context, data []byte) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// classify maps SDK errors to the tracker remote errors.
func classify(err error) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %v", tracker.ErrNotFound, err)
	}
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		switch code := re.HTTPStatusCode(); {
		case code == 404:
			return fmt.Errorf("%w: %v", tracker.ErrNotFound, err)
		case code >= 400 && code < 500:
			return fmt.Errorf("%w: %v", tracker.ErrRemoteRejected, err)
		}
	}
	return fmt.Errorf("%w: %v", tracker.ErrRemoteUnreachable, err)
}
