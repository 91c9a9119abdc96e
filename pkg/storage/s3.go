package storage

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultUploadPartSize = 5 * 1024 * 1024 // 5MB

func newS3Client(ctx context.Context, opts Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg), nil
}

func openS3(ctx context.Context, loc Location, opts Options) (io.ReadCloser, error) {
	client, err := newS3Client(ctx, opts)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

// s3Writer streams writes into a multipart upload running in the background.
type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func createS3(ctx context.Context, loc Location, opts Options) (io.WriteCloser, error) {
	client, err := newS3Client(ctx, opts)
	if err != nil {
		return nil, err
	}
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = defaultUploadPartSize
		u.Concurrency = 1
	})

	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(loc.Bucket),
			Key:    aws.String(loc.Key),
			Body:   pr,
		})
		_ = pr.CloseWithError(err)
		w.done <- err
	}()
	return w, nil
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *s3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}
