package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"ppobmart/internal/app/logger"
)

var _ Store = (*S3)(nil)

// ObjectPutter is the part of *s3.Client used by S3.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3 struct {
	client ObjectPutter
	bucket string
	region string
	prefix string
}

// NewS3 loads the default AWS credential chain for region.
func NewS3(ctx context.Context, bucket string, region string) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	return NewS3WithClient(s3.NewFromConfig(cfg), bucket, region), nil
}

func NewS3WithClient(client ObjectPutter, bucket string, region string) *S3 {
	return &S3{
		client: client,
		bucket: bucket,
		region: region,
		prefix: "payment-proofs/",
	}
}

func (s *S3) LoggerComponent() string {
	return "Blob.S3"
}

// Put expects a seekable r (the proof service hands over a *bytes.Reader) so the SDK can sign the payload.
func (s *S3) Put(ctx context.Context, name string, contentType string, r io.Reader, _ int64) (string, error) {
	key := s.prefix + name

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("s3 put: %w", err)
	}

	l := logger.Get(ctx, s)
	l.Debug().Str("bucket", s.bucket).Str("key", key).Msg("Blob stored")

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}
