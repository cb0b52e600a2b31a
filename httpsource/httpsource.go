// Package httpsource implements netzip.ByteSource against a plain HTTP(S)
// origin using the standard net/http client and the Range request header.
package httpsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nguyengg/netzip"
	"github.com/valyala/bytebufferpool"
	"golang.org/x/time/rate"
)

func init() {
	open := func(ctx context.Context, u *url.URL) (netzip.ByteSource, error) {
		return New(ctx, u)
	}
	netzip.RegisterScheme("http", open)
	netzip.RegisterScheme("https", open)
}

// Options customises a ByteSource constructed for the "http"/"https"
// schemes.
type Options struct {
	// Client is the http.Client used for every range request.
	//
	// Defaults to http.DefaultClient.
	Client *http.Client

	// MaxBytesPerSecond throttles how fast range reads are allowed to
	// download, in bytes per second.
	//
	// The zero value (default) means no limit.
	MaxBytesPerSecond int64
}

// ByteSource implements netzip.ByteSource by issuing ranged HTTP GET
// requests against a fixed URL.
type ByteSource struct {
	client  *http.Client
	url     string
	size    int64
	limiter *rate.Limiter
}

// New constructs a ByteSource for u using a ranged HEAD/GET strategy.
func New(ctx context.Context, u *url.URL, optFns ...func(*Options)) (netzip.ByteSource, error) {
	opts := &Options{Client: http.DefaultClient}
	for _, fn := range optFns {
		fn(opts)
	}

	var limiter *rate.Limiter
	if opts.MaxBytesPerSecond <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 0)
	} else {
		limiter = rate.NewLimiter(rate.Limit(opts.MaxBytesPerSecond), int(opts.MaxBytesPerSecond))
	}

	b := &ByteSource{client: opts.Client, url: u.String(), limiter: limiter}

	size, err := b.headSize(ctx)
	if err != nil {
		return nil, err
	}
	b.size = size

	return b, nil
}

// headSize issues a HEAD request to determine the object's total size,
// falling back to a ranged GET of the first byte if the origin doesn't
// honor HEAD or doesn't report Content-Length.
func (b *ByteSource) headSize(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, b.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build HEAD request error: %w", err)
	}

	resp, err := b.client.Do(req)
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK && resp.ContentLength >= 0 {
			return resp.ContentLength, nil
		}
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return 0, fmt.Errorf("build GET request error: %w", err)
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err = b.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("determine object size error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return 0, fmt.Errorf("origin does not support range requests (status %d)", resp.StatusCode)
	}

	total, err := parseContentRangeSize(resp.Header.Get("Content-Range"))
	if err != nil {
		return 0, err
	}

	return total, nil
}

func parseContentRangeSize(contentRange string) (int64, error) {
	i := len(contentRange) - 1
	for ; i >= 0; i-- {
		if contentRange[i] == '/' {
			break
		}
	}
	if i < 0 {
		return 0, fmt.Errorf("malformed Content-Range header %q", contentRange)
	}

	return strconv.ParseInt(contentRange[i+1:], 10, 64)
}

// ReadRange issues one ranged GET request and returns the response body in
// full.
func (b *ByteSource) ReadRange(ctx context.Context, rangeSpec string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build GET request error: %w", err)
	}
	req.Header.Set("Range", rangeSpec)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for range %q", resp.StatusCode, rangeSpec)
	}

	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)

	var body io.Reader = throttled{resp.Body, ctx, b.limiter}
	if resp.ContentLength >= 0 {
		body = io.LimitReader(body, resp.ContentLength)
	}
	if _, err = bb.ReadFrom(body); err != nil {
		return nil, err
	}

	return append([]byte(nil), bb.B...), nil
}

// Size returns the object's total size as determined at construction.
func (b *ByteSource) Size() int64 {
	return b.size
}

// Close is a no-op: http.Client connections are pooled by the transport,
// not owned per-ByteSource.
func (b *ByteSource) Close() error {
	return nil
}

// throttled wraps an io.Reader with a rate.Limiter, waiting for permission
// to read each chunk before it is returned to the caller.
type throttled struct {
	io.Reader
	ctx     context.Context
	limiter *rate.Limiter
}

func (t throttled) Read(p []byte) (int, error) {
	// never ask the limiter for more tokens than its burst at once.
	if t.limiter.Limit() != rate.Inf && len(p) > t.limiter.Burst() {
		p = p[:t.limiter.Burst()]
	}
	n, err := t.Reader.Read(p)
	if n > 0 {
		if werr := t.limiter.WaitN(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
