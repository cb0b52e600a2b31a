package netzip

import (
	"context"
	"fmt"
	"net/url"
)

// ByteSource is the capability the core consumes to fetch an arbitrary byte
// range from a remote object identified by URL.
//
// rangeSpec is the value of an HTTP Range header's range-spec, e.g.
// "bytes=-22" or "bytes=1048576-1049600". ReadRange implementations are
// expected to honor it the same way net/http would: the suffix form reads
// the last N bytes of the object, the A-B form reads an inclusive range.
type ByteSource interface {
	ReadRange(ctx context.Context, rangeSpec string) ([]byte, error)

	// Size returns the total size of the remote object in bytes, as
	// determined when the ByteSource was opened.
	Size() int64

	// Close releases any resources (connections, client handles) held by
	// this ByteSource.
	Close() error
}

// Decompressor is the capability the core consumes to inflate a member's
// compressed bytes.
//
// uncompressedSize is a hint taken from the member's LFH/CDR record; an
// implementation may use it to presize its output buffer but must not rely
// on it being exact.
type Decompressor interface {
	Decompress(compressed []byte, uncompressedSize uint32) ([]byte, error)
}

// OpenFunc constructs a ByteSource for a URL of the scheme it is registered
// under (as returned by url.Parse, e.g. "http", "https", "s3").
//
// Register additional schemes with RegisterScheme before calling Open with
// a URL of that scheme.
type OpenFunc func(ctx context.Context, u *url.URL) (ByteSource, error)

var schemes = map[string]OpenFunc{}

// RegisterScheme associates a URL scheme with the OpenFunc that knows how
// to construct a ByteSource for it.
//
// The httpsource and s3source packages call this from their init functions
// for "http"/"https" and "s3" respectively; importing either package for
// its side effect is enough to make its scheme available to Open.
func RegisterScheme(scheme string, fn OpenFunc) {
	schemes[scheme] = fn
}

func openByteSource(ctx context.Context, rawURL string) (ByteSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse archive URL error: %w", err)
	}

	fn, ok := schemes[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("no ByteSource registered for scheme %q", u.Scheme)
	}

	return fn(ctx, u)
}
