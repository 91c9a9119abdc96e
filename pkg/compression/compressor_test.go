package compression

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte("column AGE\n0 1 2 3\n-1.2 0.4 1 2\n"), 200)

	for _, alg := range []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2} {
		for _, level := range []Level{Fastest, Default, Better, Best} {
			t.Run(string(alg)+"/"+level.String(), func(t *testing.T) {
				var buf bytes.Buffer
				w, err := NewWriter(&buf, alg, level)
				require.NoError(t, err)
				_, err = w.Write(original)
				require.NoError(t, err)
				require.NoError(t, w.Close())

				if alg != None {
					assert.Less(t, buf.Len(), len(original))
				}

				r, err := NewReader(&buf, alg)
				require.NoError(t, err)
				got, err := io.ReadAll(r)
				require.NoError(t, err)
				require.NoError(t, r.Close())
				assert.Equal(t, original, got)
			})
		}
	}
}

func TestForPath(t *testing.T) {
	assert.Equal(t, Gzip, ForPath("out/X.csc.gz"))
	assert.Equal(t, Gzip, ForPath("X.CSC.GZ"))
	assert.Equal(t, Zstd, ForPath("X.csc.zst"))
	assert.Equal(t, Snappy, ForPath("X.csc.sz"))
	assert.Equal(t, S2, ForPath("X.csc.s2"))
	assert.Equal(t, LZ4, ForPath("X.csc.lz4"))
	assert.Equal(t, None, ForPath("X.csc"))
	assert.Equal(t, None, ForPath("train.csv"))
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("GZIP")
	require.NoError(t, err)
	assert.Equal(t, Gzip, alg)

	alg, err = ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, None, alg)

	_, err = ParseAlgorithm("brotli")
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	for alg := range extensions {
		assert.Equal(t, alg, ForPath("file"+Extension(alg)))
	}
	assert.Equal(t, "", Extension(None))
}

func TestParseLevel(t *testing.T) {
	for _, l := range []Level{Fastest, Default, Better, Best} {
		got, err := ParseLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}

	got, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, Default, got)

	_, err = ParseLevel("ultra")
	assert.Error(t, err)
}
