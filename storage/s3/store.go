// Package s3 stores objects over the S3 protocol. Supabase Storage exposes an S3 compatible
// endpoint, so this is an alternative to the REST store for bulk uploads.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/storage"
)

var _ storage.ObjectStore = (*Store)(nil)

// Putter is the part of *s3.Client the store uses.
type Putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Store struct {
	client    Putter
	bucket    string
	publicURL string
}

// Options describes an S3 compatible endpoint.
type Options struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL prefixes public object URLs; "<PublicBaseURL>/<bucket>/<key>".
	PublicBaseURL string
}

// NewClient builds a path-style S3 client with static credentials.
func NewClient(opts Options) *s3.Client {
	creds := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			Source:          "roleplay-desk",
		}, nil
	})
	return s3.New(s3.Options{
		Region:       opts.Region,
		BaseEndpoint: aws.String(opts.Endpoint),
		UsePathStyle: true,
		Credentials:  aws.NewCredentialsCache(creds),
	})
}

func New(client Putter, bucket, publicBaseURL string) *Store {
	return &Store{client: client, bucket: bucket, publicURL: strings.TrimRight(publicBaseURL, "/")}
}

func (s *Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if key == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "s3 put: empty key")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w: %v", key, errors.ErrRemoteUnavailable, err)
	}
	return nil
}

func (s *Store) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, url.PathEscape(s.bucket), url.PathEscape(key))
}
