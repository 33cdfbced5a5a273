package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Sink is a destination for exported transcripts. Names are forward-slash
// separated and relative to the sink root.
type Sink interface {
	// Put writes the named object, replacing any existing one.
	Put(ctx context.Context, name string, r io.Reader) error

	// Open opens the named object. A missing object yields an error
	// wrapping os.ErrNotExist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Exists reports whether the named object exists.
	Exists(ctx context.Context, name string) (bool, error)
}

// DirSink writes transcripts to a local directory.
type DirSink struct {
	root string
}

// NewDirSink returns a DirSink rooted at dir, creating it if needed.
func NewDirSink(dir string) (*DirSink, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &DirSink{root: abs}, nil
}

func (d *DirSink) path(name string) string {
	return filepath.Join(d.root, filepath.FromSlash(name))
}

func (d *DirSink) Put(_ context.Context, name string, r io.Reader) error {
	full := d.path(name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".export-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), full)
}

func (d *DirSink) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(d.path(name))
}

func (d *DirSink) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(d.path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// S3Client is the subset of the S3 API used by S3Sink. *s3.Client
// satisfies it.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Sink writes transcripts to an S3-compatible bucket under a prefix.
type S3Sink struct {
	client S3Client
	bucket string
	prefix string
}

// NewS3Sink returns an S3Sink. prefix may be empty.
func NewS3Sink(client S3Client, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3Sink) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3Sink) Put(ctx context.Context, name string, r io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        r,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("transcript: put s3://%s/%s: %w", s.bucket, s.key(name), err)
	}
	return nil
}

func (s *S3Sink) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("transcript: open %s: %w", name, os.ErrNotExist)
		}
		return nil, err
	}
	return out.Body, nil
}

func (s *S3Sink) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// S3Config configures NewS3Client.
type S3Config struct {
	// Endpoint is the base URL of an S3-compatible service. Empty means
	// AWS.
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string

	// PathStyle addresses buckets as endpoint/bucket instead of
	// bucket.endpoint. MinIO needs it.
	PathStyle bool
}

// NewS3Client builds an S3 client with static credentials.
func NewS3Client(cfg S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			Source:          "realtalk",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	return s3.New(opts)
}

// isS3NotFound reports whether err means the object does not exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// Ensure sinks implement Sink.
var (
	_ Sink = (*DirSink)(nil)
	_ Sink = (*S3Sink)(nil)
)
