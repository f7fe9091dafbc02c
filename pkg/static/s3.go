package static

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the slice of the S3 client used by S3Reader. *s3.Client
// satisfies it.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Reader reads static assets from an S3 bucket.
//
// Example:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	reader := static.NewS3Reader(s3.NewFromConfig(cfg), "my-bucket", "assets/")
type S3Reader struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Reader returns a Reader fetching objects from bucket, with keys
// joined under prefix.
func NewS3Reader(client S3API, bucket, prefix string) *S3Reader {
	return &S3Reader{client: client, bucket: bucket, prefix: prefix}
}

// ReadFile implements Reader. A missing object maps to ErrNotFound so
// the dispatcher can fall through to routing.
func (r *S3Reader) ReadFile(ctx context.Context, name string) ([]byte, error) {
	key := path.Join(r.prefix, name)
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("static s3 %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
