package loader

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Protocol fetches objects from S3-compatible object storage. Path is
// "<bucket>/<key>".
type S3Protocol struct {
	client *s3.Client
}

// NewS3Protocol builds an S3Protocol from the default AWS credential chain,
// optionally overriding the endpoint for S3-compatible stores.
func NewS3Protocol(ctx context.Context, region, endpoint string) (*S3Protocol, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var opts []func(*s3.Options)
	if endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Protocol{client: s3.NewFromConfig(cfg, opts...)}, nil
}

func (p *S3Protocol) Fetch(ctx context.Context, path string) ([]byte, error) {
	bucket, key, ok := strings.Cut(path, "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 location %q: expected \"<bucket>/<key>\"", path)
	}

	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s: %w", path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s body: %w", path, err)
	}
	return data, nil
}
