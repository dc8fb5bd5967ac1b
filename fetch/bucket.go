package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
)

// openBlob opens an archive stored in blob storage. The URL scheme picks
// the provider: "file" for the local filesystem (mostly for tests), "gs"
// for Google Cloud Storage and "s3" for AWS S3.
func openBlob(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch.openBlob: %v", err)
	}

	var (
		bucket *blob.Bucket
		key    string
	)

	switch parsed.Scheme {
	case "file":
		dir := filepath.Dir(filepath.Join(parsed.Host, parsed.Path))
		key = filepath.Base(parsed.Path)

		bucket, err = fileblob.OpenBucket(dir, nil)
	case "gs":
		key = strings.TrimPrefix(parsed.Path, "/")

		bucket, err = gsBucket(ctx, parsed.Host)
	case "s3":
		key = strings.TrimPrefix(parsed.Path, "/")

		bucket, err = s3Bucket(ctx, parsed.Host)
	default:
		return nil, fmt.Errorf(
			"fetch.openBlob: unsupported scheme %q in %s",
			parsed.Scheme, rawURL,
		)
	}

	if err != nil {
		return nil, err
	}

	reader, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		bucket.Close()

		return nil, err
	}

	return &blobReader{Reader: reader, bucket: bucket}, nil
}

// blobReader closes the bucket together with the object reader.
type blobReader struct {
	*blob.Reader
	bucket *blob.Bucket
}

func (reader *blobReader) Close() error {
	err := reader.Reader.Close()
	if closeErr := reader.bucket.Close(); err == nil {
		err = closeErr
	}

	return err
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See https://cloud.google.com/docs/authentication/getting-started
	// for credential setup.
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}

	client, err := gcp.NewHTTPClient(
		gcp.DefaultTransport(),
		gcp.CredentialsTokenSource(creds),
	)
	if err != nil {
		return nil, err
	}

	return gcsblob.OpenBucket(ctx, client, name, nil)
}

// s3Bucket opens an S3 bucket. It expects AWS_REGION, AWS_ACCESS_KEY_ID
// and AWS_SECRET_ACCESS_KEY in the environment.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}

	config := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}

	return s3blob.OpenBucket(ctx, session.Must(session.NewSession(config)), name, nil)
}
