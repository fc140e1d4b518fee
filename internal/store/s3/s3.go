// Package s3 archives oversized journal snapshots to S3-compatible object
// storage, grounded on pithecene-io-quarry's lode/client_s3.go (AWS SDK v2
// config loading, custom-endpoint and path-style overrides for
// S3-compatible providers such as R2 or MinIO). Archived payloads are
// encoded with msgpack rather than JSON: quarry's own go.mod carries
// vmihailenco/msgpack/v5 for exactly this kind of compact binary archival
// encoding, and a snapshot blob is never queried by field, only fetched
// whole and decoded, so msgpack's smaller wire size costs nothing in
// flexibility here.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned when a blob key has no archived object.
var ErrNotFound = errors.New("s3: blob not found")

// Config configures the S3 blob backend.
type Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string // set for S3-compatible providers (R2, MinIO)
	UsePathStyle bool
}

func (c Config) key(name string) string {
	if c.Prefix == "" {
		return name
	}
	return c.Prefix + "/" + name
}

// BlobStore archives arbitrary payloads to S3-compatible storage, used by
// the journal layer to offload snapshots past the inline-storage size
// threshold (spec.md §7).
type BlobStore struct {
	client *s3.Client
	cfg    Config
}

// Open loads AWS config via the default credential chain (env vars, shared
// config, IAM role) and constructs a client, mirroring NewLodeS3Client's
// shape in the teacher corpus.
func Open(ctx context.Context, cfg Config) (*BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &BlobStore{client: s3.NewFromConfig(awsCfg, s3Opts...), cfg: cfg}, nil
}

// Put archives value under name, msgpack-encoded.
func (b *BlobStore) Put(ctx context.Context, name string, value any) error {
	body, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("s3: marshal blob: %w", err)
	}
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.cfg.key(name)),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("s3: put object: %w", err)
	}
	return nil
}

// Get loads and msgpack-decodes the blob stored under name into out.
func (b *BlobStore) Get(ctx context.Context, name string, out any) error {
	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.cfg.key(name)),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return ErrNotFound
		}
		return fmt.Errorf("s3: get object: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("s3: read object body: %w", err)
	}
	if err := msgpack.Unmarshal(body, out); err != nil {
		return fmt.Errorf("s3: unmarshal blob: %w", err)
	}
	return nil
}

// Delete removes the archived blob under name, ignoring a missing key.
func (b *BlobStore) Delete(ctx context.Context, name string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.cfg.Bucket),
		Key:    aws.String(b.cfg.key(name)),
	})
	if err != nil {
		return fmt.Errorf("s3: delete object: %w", err)
	}
	return nil
}
