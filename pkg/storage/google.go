package storage

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"github.com/giongto35/retrocore/pkg/logger"
	"google.golang.org/api/option"
)

const defaultBucket = "game-save"

// GoogleCloudClient keeps states in a Google Cloud Storage bucket.
type GoogleCloudClient struct {
	client *storage.Client
	bucket *storage.BucketHandle
	log    *logger.Logger
}

// NewGoogleCloudClient connects with the default credentials unless
// opts say otherwise.
func NewGoogleCloudClient(ctx context.Context, bucket string, log *logger.Logger, opts ...option.ClientOption) (*GoogleCloudClient, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Extend(log.With().Str("m", "gcs"))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create Google Cloud Storage client")
		return nil, err
	}
	if bucket == "" {
		bucket = defaultBucket
	}
	return &GoogleCloudClient{client: client, bucket: client.Bucket(bucket), log: log}, nil
}

func (c *GoogleCloudClient) Save(ctx context.Context, name string, data []byte) error {
	wc := c.bucket.Object(name).NewWriter(ctx)
	wc.ContentType = "application/octet-stream"
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	c.log.Debug().Msgf("Uploaded %v (%v bytes)", name, len(data))
	return nil
}

func (c *GoogleCloudClient) Load(ctx context.Context, name string) ([]byte, error) {
	rc, err := c.bucket.Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func (c *GoogleCloudClient) Close() error { return c.client.Close() }

// gcsOptions maps the config to client options, an endpoint without
// credentials is taken for a local emulator.
func gcsOptions(credentials, endpoint string) (opts []option.ClientOption) {
	if credentials != "" {
		opts = append(opts, option.WithCredentialsFile(credentials))
	}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
		if credentials == "" {
			opts = append(opts, option.WithoutAuthentication())
		}
	}
	return opts
}
