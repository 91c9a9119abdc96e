package storage

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

func newGCSClient(ctx context.Context, opts Options) (*storage.Client, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	return storage.NewClient(ctx, clientOpts...)
}

func openGCS(ctx context.Context, loc Location, opts Options) (io.ReadCloser, error) {
	client, err := newGCSClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	r, err := client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &gcsReader{Reader: r, client: client}, nil
}

func createGCS(ctx context.Context, loc Location, opts Options) (io.WriteCloser, error) {
	client, err := newGCSClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	w := client.Bucket(loc.Bucket).Object(loc.Key).NewWriter(ctx)
	return &gcsWriter{Writer: w, client: client}, nil
}

type gcsReader struct {
	*storage.Reader
	client *storage.Client
}

func (r *gcsReader) Close() error {
	err := r.Reader.Close()
	_ = r.client.Close()
	return err
}

type gcsWriter struct {
	*storage.Writer
	client *storage.Client
}

func (w *gcsWriter) Close() error {
	err := w.Writer.Close()
	_ = w.client.Close()
	return err
}
