// Package storage opens input and output streams by URI. Plain paths are local
// files; s3://bucket/key and gs://bucket/object address cloud object stores.
// Streams are transparently compressed or decompressed according to the
// object's extension (see package compression).
package storage

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/bolasso/pkg/compression"
	"github.com/ajitpratap0/bolasso/pkg/errors"
)

// Scheme identifies the backend addressed by a URI
type Scheme string

const (
	SchemeFile Scheme = "file"
	SchemeS3   Scheme = "s3"
	SchemeGCS  Scheme = "gs"
)

// Options configures backend clients and output compression
type Options struct {
	// Region is the AWS region used for s3:// URIs. Empty uses the default chain.
	Region string
	// CredentialsFile is a service account key for gs:// URIs. Empty uses ADC.
	CredentialsFile string
	// Level is the compression level applied when the extension selects a codec.
	Level compression.Level
	// Raw disables extension-based compression.
	Raw bool
}

// Location is a parsed URI
type Location struct {
	Scheme Scheme
	Bucket string
	Key    string
}

func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return l.Key
	}
	return string(l.Scheme) + "://" + l.Bucket + "/" + l.Key
}

// Parse splits a URI into its backend, bucket and key. Anything without a
// recognised scheme is treated as a local path.
func Parse(uri string) (Location, error) {
	if uri == "" {
		return Location{}, errors.New(errors.ErrorTypeValidation, "empty path")
	}
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return Location{Scheme: SchemeFile, Key: uri}, nil
	}

	switch Scheme(strings.ToLower(scheme)) {
	case SchemeFile:
		u, err := url.Parse(uri)
		if err != nil {
			return Location{}, errors.Wrap(err, errors.ErrorTypeValidation, "invalid file URI").WithDetail("uri", uri)
		}
		return Location{Scheme: SchemeFile, Key: u.Path}, nil
	case SchemeS3, SchemeGCS:
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return Location{}, errors.New(errors.ErrorTypeValidation, "object URI needs a bucket and a key").
				WithDetail("uri", uri)
		}
		return Location{Scheme: Scheme(strings.ToLower(scheme)), Bucket: bucket, Key: key}, nil
	default:
		return Location{}, errors.New(errors.ErrorTypeValidation, "unsupported storage scheme").
			WithDetail("uri", uri).
			WithDetail("scheme", scheme)
	}
}

// Open returns a reader for uri, decompressing by extension
func Open(ctx context.Context, uri string, opts Options) (io.ReadCloser, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, err
	}

	var raw io.ReadCloser
	switch loc.Scheme {
	case SchemeS3:
		raw, err = openS3(ctx, loc, opts)
	case SchemeGCS:
		raw, err = openGCS(ctx, loc, opts)
	default:
		raw, err = os.Open(loc.Key)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open input").WithDetail("path", uri)
	}

	if opts.Raw {
		return raw, nil
	}
	dec, err := compression.NewReader(raw, compression.ForPath(loc.Key))
	if err != nil {
		_ = raw.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to initialise decompression").WithDetail("path", uri)
	}
	return &layeredReader{ReadCloser: dec, under: raw}, nil
}

// Create returns a writer for uri, compressing by extension. Data is only
// guaranteed to be persisted once Close returns nil.
func Create(ctx context.Context, uri string, opts Options) (io.WriteCloser, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, err
	}

	var raw io.WriteCloser
	switch loc.Scheme {
	case SchemeS3:
		raw, err = createS3(ctx, loc, opts)
	case SchemeGCS:
		raw, err = createGCS(ctx, loc, opts)
	default:
		raw, err = createLocal(loc.Key)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output").WithDetail("path", uri)
	}

	if opts.Raw {
		return raw, nil
	}
	level := opts.Level
	if level == 0 {
		level = compression.Default
	}
	enc, err := compression.NewWriter(raw, compression.ForPath(loc.Key), level)
	if err != nil {
		_ = raw.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to initialise compression").WithDetail("path", uri)
	}
	return &layeredWriter{WriteCloser: enc, under: raw, path: uri}, nil
}

func createLocal(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

type layeredReader struct {
	io.ReadCloser
	under io.Closer
}

func (r *layeredReader) Close() error {
	err := r.ReadCloser.Close()
	if cerr := r.under.Close(); err == nil {
		err = cerr
	}
	return err
}

type layeredWriter struct {
	io.WriteCloser
	under  io.Closer
	path   string
	closed bool
}

func (w *layeredWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.WriteCloser.Close()
	if cerr := w.under.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to finalise output").WithDetail("path", w.path)
	}
	return nil
}
