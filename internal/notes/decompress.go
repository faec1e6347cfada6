package notes

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

var ErrDecompression = errors.New("notes: decompression failed")

// MaxBlobSize caps the decompressed size of a single blob.
const MaxBlobSize = 256 << 20

// Decompress inflates a stored blob, detecting gzip or zlib framing from
// the header. An empty blob inflates to nothing.
func Decompress(blob []byte) ([]byte, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	var (
		r   io.ReadCloser
		err error
	)
	switch {
	case isGzipHeader(blob):
		r, err = gzip.NewReader(bytes.NewReader(blob))
	case isZlibHeader(blob):
		r, err = zlib.NewReader(bytes.NewReader(blob))
	default:
		return nil, fmt.Errorf("%w: unknown header % x", ErrDecompression, blob[:min(len(blob), 2)])
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, MaxBlobSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	if len(out) > MaxBlobSize {
		return nil, fmt.Errorf("%w: output exceeds %d bytes", ErrDecompression, MaxBlobSize)
	}
	return out, nil
}

// IsCompressed reports whether blob starts with a gzip or zlib header.
func IsCompressed(blob []byte) bool {
	return isGzipHeader(blob) || isZlibHeader(blob)
}

func isGzipHeader(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}

// isZlibHeader checks the CMF/FLG pair: deflate method and a header
// checksum divisible by 31.
func isZlibHeader(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	return b[0]&0x0f == 8 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}
