package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config configures the S3 client.
type Config struct {
	// EndpointURL overrides the S3 endpoint, for S3-compatible stores
	// and local stacks. A scheme-less value is treated as https.
	EndpointURL string

	// Region sets an explicit region. Left empty, the SDK resolves it
	// from the environment; when an endpoint override is in effect
	// with no resolvable region, us-east-1 is assumed.
	Region string
}

// s3API is the subset of the S3 SDK client the wrapper uses.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client implements ObjectStore on top of the AWS SDK. It is safe for
// concurrent use and intended to be shared process-wide.
type Client struct {
	api s3API
}

var _ ObjectStore = (*Client)(nil)

// NewClient builds an S3 client from the default credential chain.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	var s3Opts []func(*s3.Options)
	if cfg.EndpointURL != "" {
		endpoint := cfg.EndpointURL
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
			if o.Region == "" {
				// The endpoint was overridden, so any region works.
				o.Region = "us-east-1"
			}
		})
	}

	return &Client{api: s3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

// NewClientFromAPI wraps an existing SDK client (or a test double).
func NewClientFromAPI(api s3API) *Client {
	return &Client{api: api}
}

// List returns every object under prefix, following continuation
// tokens until the listing is exhausted.
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var objects []Object
	var continuationToken *string
	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			ContinuationToken: continuationToken,
		}
		if prefix != "" {
			input.Prefix = aws.String(prefix)
		}
		output, err := c.api.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, wrapError("List", bucket, "", err)
		}
		for _, obj := range output.Contents {
			objects = append(objects, Object{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				ETag:         cleanETag(aws.ToString(obj.ETag)),
			})
		}
		if !aws.ToBool(output.IsTruncated) || output.NextContinuationToken == nil {
			return objects, nil
		}
		continuationToken = output.NextContinuationToken
	}
}

// Download fetches the object body into the local file at path.
func (c *Client) Download(ctx context.Context, bucket, key, path string) error {
	output, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return wrapError("Download", bucket, key, err)
	}
	defer output.Body.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, output.Body); err != nil {
		f.Close()
		return wrapError("Download", bucket, key, err)
	}
	return f.Close()
}

// Upload stores the local file at path as the object at key. The file
// handle keeps the body seekable so the SDK can retry the request.
func (c *Client) Upload(ctx context.Context, bucket, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return wrapError("Upload", bucket, key, err)
	}
	return nil
}
