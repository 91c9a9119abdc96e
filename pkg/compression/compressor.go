// Package compression wraps output and input streams with a compression
// codec. The codec is normally chosen from the file extension, so a sparse
// matrix written to "X.csc.gz" is gzip compressed and "X.csc.zst" is zstd
// compressed.
//
// # Algorithm Selection
//
//   - Gzip: wide compatibility, readable by most statistics tools directly
//   - Zstd: best ratio at good speed
//   - Snappy/S2: fastest, moderate ratio
//   - LZ4: extremely fast, decent ratio
//
// # Basic Usage
//
//	w, err := compression.NewWriter(file, compression.ForPath(path), compression.Default)
//	defer w.Close()
package compression

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy framed compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
)

// Level controls the trade-off between speed and ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

func (l Level) String() string {
	switch l {
	case Fastest:
		return "fastest"
	case Default:
		return "default"
	case Better:
		return "better"
	case Best:
		return "best"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel parses a level name. The empty string means Default.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return Default, nil
	case "fastest":
		return Fastest, nil
	case "better":
		return Better, nil
	case "best":
		return Best, nil
	default:
		return 0, fmt.Errorf("unsupported compression level: %s", s)
	}
}

var extensions = map[Algorithm]string{
	Gzip:   ".gz",
	Snappy: ".sz",
	LZ4:    ".lz4",
	Zstd:   ".zst",
	S2:     ".s2",
}

// ParseAlgorithm parses an algorithm name. The empty string means None.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(s)); a {
	case "", None:
		return None, nil
	case Gzip, Snappy, LZ4, Zstd, S2:
		return a, nil
	default:
		return "", fmt.Errorf("unsupported compression algorithm: %s", s)
	}
}

// ForPath returns the algorithm implied by the file extension of path.
func ForPath(path string) Algorithm {
	lower := strings.ToLower(path)
	for alg, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return alg
		}
	}
	return None
}

// Extension returns the conventional file extension for alg.
func Extension(alg Algorithm) string {
	return extensions[alg]
}

// NewWriter wraps dst with a compressing writer. Closing the returned writer
// flushes the codec but does not close dst.
func NewWriter(dst io.Writer, alg Algorithm, level Level) (io.WriteCloser, error) {
	switch alg {
	case None, "":
		return nopWriteCloser{dst}, nil
	case Gzip:
		return gzip.NewWriterLevel(dst, mapGzipLevel(level))
	case Zstd:
		return zstd.NewWriter(dst, zstd.WithEncoderLevel(mapZstdLevel(level)))
	case Snappy:
		return snappy.NewBufferedWriter(dst), nil
	case S2:
		return s2.NewWriter(dst, s2WriterOptions(level)...), nil
	case LZ4:
		w := lz4.NewWriter(dst)
		if err := w.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, fmt.Errorf("failed to configure lz4 writer: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", alg)
	}
}

// NewReader wraps src with a decompressing reader. Closing the returned
// reader releases codec resources but does not close src.
func NewReader(src io.Reader, alg Algorithm) (io.ReadCloser, error) {
	switch alg {
	case None, "":
		return io.NopCloser(src), nil
	case Gzip:
		return gzip.NewReader(src)
	case Zstd:
		dec, err := zstd.NewReader(src)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(src)), nil
	case S2:
		return io.NopCloser(s2.NewReader(src)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(src)), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", alg)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	case Better:
		return 7
	default:
		return gzip.DefaultCompression
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Better:
		return lz4.Level5
	case Best:
		return lz4.Level9
	default:
		return lz4.Fast
	}
}

func s2WriterOptions(level Level) []s2.WriterOption {
	switch level {
	case Better:
		return []s2.WriterOption{s2.WriterBetterCompression()}
	case Best:
		return []s2.WriterOption{s2.WriterBestCompression()}
	default:
		return nil
	}
}
