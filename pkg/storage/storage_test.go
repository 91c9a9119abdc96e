package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/bolasso/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		uri  string
		want Location
	}{
		{"data/train.csv", Location{Scheme: SchemeFile, Key: "data/train.csv"}},
		{"file:///tmp/x.csc", Location{Scheme: SchemeFile, Key: "/tmp/x.csc"}},
		{"s3://bucket/runs/X.csc.gz", Location{Scheme: SchemeS3, Bucket: "bucket", Key: "runs/X.csc.gz"}},
		{"gs://bucket/coef.csv", Location{Scheme: SchemeGCS, Bucket: "bucket", Key: "coef.csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := Parse(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, uri := range []string{"", "s3://bucket", "gs:///key", "ftp://host/file"} {
		_, err := Parse(uri)
		require.Error(t, err, uri)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), uri)
	}
}

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, name := range []string{"plain.csc", "nested/dir/X.csc.gz", "X.csc.zst", "X.csc.lz4"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			w, err := Create(ctx, path, Options{})
			require.NoError(t, err)
			_, err = io.WriteString(w, "#csc start nrow=3\n")
			require.NoError(t, err)
			require.NoError(t, w.Close())
			require.NoError(t, w.Close())

			r, err := Open(ctx, path, Options{})
			require.NoError(t, err)
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.Equal(t, "#csc start nrow=3\n", string(data))
		})
	}
}

func TestCompressedOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "X.csc.gz")
	w, err := Create(context.Background(), path, Options{})
	require.NoError(t, err)
	_, err = io.WriteString(w, "column AGE\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b}, raw[:2])
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), Options{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}
