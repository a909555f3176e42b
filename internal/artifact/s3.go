package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config mirrors micahg-cobblepod/internal/storage.S3Config: region,
// bucket, optional static credentials, and an optional custom endpoint for
// S3-compatible object stores.
type S3Config struct {
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// S3Store is a Store backed by an S3-compatible object store. Create
// streams to an object upload; Open is unsupported because remote storage
// is assumed to serve the artifact externally (spec.md §4.2).
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store constructs an S3Store, verifying bucket access with HeadBucket.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	var awsCfg aws.Config
	var err error
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
			config.WithRegion(cfg.Region),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load AWS config: %v", errArtifactConfig, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	store := &S3Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}

	hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := client.HeadBucket(hctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("%w: access bucket %s: %v", errArtifactConfig, cfg.Bucket, err)
	}
	return store, nil
}

var errArtifactConfig = errors.New("artifact store config error")

func (s *S3Store) key(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

func (s *S3Store) Create(path string, reader io.Reader) (int64, error) {
	ctx := context.Background()
	counting := &countingReader{r: reader}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
		Body:   counting,
	})
	if err != nil {
		return 0, fmt.Errorf("upload %s: %w", path, err)
	}
	return counting.n, nil
}

func (s *S3Store) Delete(path string) error {
	ctx := context.Background()
	if _, err := s.Size(path); err != nil {
		if errors.Is(err, ErrNotExist) {
			return ErrNotExist
		}
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *S3Store) Size(path string) (int64, error) {
	ctx := context.Background()
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return 0, ErrNotExist
		}
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if out.ContentLength == nil {
		return 0, nil
	}
	return *out.ContentLength, nil
}

// ErrOpenUnsupported is returned by S3Store.Open: remote object stores are
// assumed to serve artifacts directly, not via this process.
var ErrOpenUnsupported = errors.New("remote artifact store does not support Open, external hosting assumed")

func (s *S3Store) Open(path string) (ReadCloser, error) {
	return nil, ErrOpenUnsupported
}

// countingReader tracks bytes read so Create can report the written size
// without a second round-trip to HeadObject.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
