package s3infra

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-docverify/internal/config"
	"github.com/go-docverify/internal/infrastructure/staging"
	"github.com/go-docverify/internal/pkg/id"
)

// Store wraps S3 operations for the application.
type Store struct {
	client *s3.Client
	bucket string
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(cfg *config.Config) *s3.Client {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		panic("failed to load AWS config for S3: " + err.Error())
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...)
}

// NewStore creates a Store with the given S3 client and bucket name.
func NewStore(client *s3.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// Upload streams a file to S3 under key and returns the object URL.
func (s *Store) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// Download retrieves a file from S3 and returns its stream.
func (s *Store) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	return out.Body, nil
}

// PresignedURL generates a time-limited presigned GET URL for the given key.
func (s *Store) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	presigner := s3.NewPresignClient(s.client)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}
	return req.URL, nil
}

// Delete removes a file from S3.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// objectStore is the subset of Store the stager needs.
type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Stager stages uploads as S3 objects so a remote OCR service can fetch
// them through a presigned URL.
type Stager struct {
	store      objectStore
	maxBytes   int64
	presignTTL time.Duration
}

func NewStager(store objectStore, maxBytes int64, presignTTL time.Duration) *Stager {
	return &Stager{store: store, maxBytes: maxBytes, presignTTL: presignTTL}
}

func (st *Stager) Stage(ctx context.Context, r io.Reader) (staging.Object, error) {
	up, err := staging.Read(r, st.maxBytes)
	if err != nil {
		return nil, err
	}
	key := "staging/" + id.New() + up.Ext()
	if _, err := st.store.Upload(ctx, key, bytes.NewReader(up.Data), "image/"+up.Format); err != nil {
		return nil, err
	}
	return &object{stager: st, key: key, format: up.Format}, nil
}

type object struct {
	stager *Stager
	key    string
	format string
}

func (o *object) Path() string   { return "" }
func (o *object) Format() string { return o.format }

func (o *object) Open(ctx context.Context) (io.ReadCloser, error) {
	return o.stager.store.Download(ctx, o.key)
}

func (o *object) URL(ctx context.Context) (string, error) {
	return o.stager.store.PresignedURL(ctx, o.key, o.stager.presignTTL)
}

func (o *object) Release(ctx context.Context) error {
	if err := o.stager.store.Delete(ctx, o.key); err != nil {
		return fmt.Errorf("s3 delete staged object: %w", err)
	}
	slog.Debug("staged upload released", "key", o.key)
	return nil
}
