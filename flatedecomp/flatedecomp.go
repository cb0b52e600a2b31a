// Package flatedecomp implements the Decompressor capability using
// klauspost/compress's raw Deflate reader.
package flatedecomp

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// Decompressor inflates raw Deflate (and Deflate64, whose bitstream is
// Deflate-compatible for the inputs this module encounters) streams.
type Decompressor struct{}

// New returns a Decompressor.
func New() Decompressor {
	return Decompressor{}
}

// Decompress inflates compressed and returns the full uncompressed
// payload.
//
// uncompressedSize presizes the output buffer; it is a hint taken from the
// member's LFH, not verified against the actual inflated length.
func (Decompressor) Decompress(compressed []byte, uncompressedSize uint32) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()

	buf := bytes.NewBuffer(make([]byte, 0, uncompressedSize))
	if _, err := io.Copy(buf, fr); err != nil {
		return nil, fmt.Errorf("inflate error: %w", err)
	}

	return buf.Bytes(), nil
}
