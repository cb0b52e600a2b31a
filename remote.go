// Package netzip reads ZIP archives served from a remote origin without
// downloading them whole.
//
// A RemoteZip is constructed once from a URL: that construction issues one
// or two range reads to locate the EOCD plus one for the central directory
// bytes, and caches the resulting records. Records never hits the network
// and the central directory is never re-read after construction; each call
// to DownloadFiles is a fresh series of member range reads driven entirely
// by the cached central directory.
package netzip

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nguyengg/netzip/internal/executor"
	"github.com/nguyengg/netzip/record"
)

// eocdSlowPathWindow is the number of extra bytes (beyond the fixed 22-byte
// EOCD head) fetched on the slow path, to absorb an archive comment of
// unknown length.
const eocdSlowPathWindow = 1024

// RemoteZip holds a ByteSource and the central directory parsed from it at
// construction time.
type RemoteZip struct {
	url              string
	source           ByteSource
	decompressor     Decompressor
	centralDirectory []record.CDR
	concurrency      int
}

// Options customises Open.
type Options struct {
	// Decompressor handles Deflate/Deflate64 payloads. Defaults to the
	// flatedecomp package's implementation.
	Decompressor Decompressor

	// Concurrency bounds how many member fetches DownloadFiles may have
	// in flight at once.
	//
	// Default 1, i.e. strictly sequential in CDR iteration order, matching
	// the simplicity-first scheduling model. Values greater than 1 fetch
	// members concurrently but still emit them in CDR iteration order.
	Concurrency int
}

// Open constructs a RemoteZip for the archive at url.
//
// Open issues one range read for the last 22 bytes of the archive and
// attempts a strict EOCD parse (the fast path). If that parse fails — most
// commonly because the archive carries a comment that pushes the EOCD off
// the fixed tail offset — Open widens the read to the last 22+1024 bytes
// and falls back to a reverse magic scan. It then issues one more range
// read for the central directory bytes and parses the CDR stream.
func Open(ctx context.Context, url string, optFns ...func(*Options)) (*RemoteZip, error) {
	opts := &Options{Concurrency: 1}
	for _, fn := range optFns {
		fn(opts)
	}
	if opts.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency (%d) must be a positive integer", opts.Concurrency)
	}
	if opts.Decompressor == nil {
		opts.Decompressor = defaultDecompressor()
	}

	source, err := openByteSource(ctx, url)
	if err != nil {
		return nil, err
	}

	eocd, err := fetchEOCD(ctx, url, source)
	if err != nil {
		_ = source.Close()
		return nil, err
	}

	cdBuf, err := source.ReadRange(ctx, fmt.Sprintf("bytes=%d-%d", eocd.CDOffset, int64(eocd.CDOffset)+int64(eocd.DirectorySize)))
	if err != nil {
		_ = source.Close()
		return nil, &NetworkError{URL: url, RangeSpec: "central directory", Err: err}
	}

	cdr, err := record.ParseManyCDR(cdBuf)
	if err != nil {
		_ = source.Close()
		return nil, &ParserError{URL: url, Context: "CDR stream", Err: err}
	}

	return &RemoteZip{
		url:              url,
		source:           source,
		decompressor:     opts.Decompressor,
		centralDirectory: cdr,
		concurrency:      opts.Concurrency,
	}, nil
}

// fetchEOCD implements the fast/slow path described on Open:
// try a strict parse of the last 22 bytes first, and only widen the read
// window on failure.
func fetchEOCD(ctx context.Context, url string, source ByteSource) (record.EOCD, error) {
	tail, err := source.ReadRange(ctx, "bytes=-22")
	if err != nil {
		return record.EOCD{}, &NetworkError{URL: url, RangeSpec: "bytes=-22", Err: err}
	}

	if eocd, err := record.ParseEOCD(tail); err == nil {
		return eocd, nil
	}

	window := eocdSlowPathWindow + record.EOCDMinSize
	rangeSpec := fmt.Sprintf("bytes=-%d", window)
	wide, err := source.ReadRange(ctx, rangeSpec)
	if err != nil {
		return record.EOCD{}, &NetworkError{URL: url, RangeSpec: rangeSpec, Err: err}
	}

	eocd, err := record.FindAndParseEOCD(wide)
	if err != nil {
		return record.EOCD{}, &ParserError{URL: url, Context: "EOCD", Err: err}
	}

	return eocd, nil
}

// Records returns the cached central directory records in on-disk order.
//
// No network I/O is performed; the returned slice aliases RemoteZip's
// internal state and must not be mutated by the caller. Use RecordsMut to
// reorder the cached records in place, e.g. before display.
func (z *RemoteZip) Records() []record.CDR {
	return z.centralDirectory
}

// RecordsMut returns the cached central directory records as a
// directly-mutable slice, for callers that want to sort them (e.g. for
// display) without a network round trip.
func (z *RemoteZip) RecordsMut() []record.CDR {
	return z.centralDirectory
}

// SortRecordsByName sorts the cached central directory records by file
// name, ascending, in place. Ties are broken by keeping the original
// relative order (a stable sort).
func (z *RemoteZip) SortRecordsByName() {
	sort.SliceStable(z.centralDirectory, func(i, j int) bool {
		return z.centralDirectory[i].FileName < z.centralDirectory[j].FileName
	})
}

// Close releases the underlying ByteSource.
func (z *RemoteZip) Close() error {
	return z.source.Close()
}

// Extracted pairs a member's parsed LFH with its decompressed bytes.
type Extracted struct {
	LFH   record.LFH
	Bytes []byte
}

// DownloadFiles fetches and decompresses the members whose file name
// matches an entry in paths (exact string equality).
//
// Results are emitted in central-directory order, not request order or the
// order paths was given in; a path that matches no member, or a member
// name that appears more than once in paths, contributes exactly one
// result per matching CDR. A path matching no member is silently skipped:
// the overall call still succeeds with however many matches it found.
//
// When Options.Concurrency is greater than 1, member fetches run
// concurrently but are still collected and returned in central-directory
// order.
func (z *RemoteZip) DownloadFiles(ctx context.Context, paths []string) ([]Extracted, error) {
	wanted := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		wanted[p] = struct{}{}
	}

	var matches []record.CDR
	for _, cdr := range z.centralDirectory {
		if _, ok := wanted[cdr.FileName]; ok {
			matches = append(matches, cdr)
		}
	}

	results := make([]Extracted, len(matches))
	errs := make([]error, len(matches))

	ex := executor.NewCallerRunsOnFullExecutor(z.concurrency - 1)
	defer ex.Close()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var wg sync.WaitGroup
	wg.Add(len(matches))

	for i, cdr := range matches {
		i, cdr := i, cdr
		if err := ex.Execute(func() {
			defer wg.Done()

			extracted, err := z.downloadOne(ctx, cdr)
			if err != nil {
				errs[i] = err
				cancel(err)
				return
			}
			results[i] = extracted
		}); err != nil {
			return nil, err
		}
	}

	// wait for every submitted download to finish writing into results/errs
	// before reading them back; the executor's Close only stops accepting
	// new work, it does not wait for in-flight goroutines.
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// downloadOne fetches and decompresses one matched CDR in three steps: read
// the LFH at the offset predicted from the CDR's own lengths, read the
// payload that follows it, and return it verbatim (Stored) or inflated
// (Deflate/Deflate64).
func (z *RemoteZip) downloadOne(ctx context.Context, cdr record.CDR) (Extracted, error) {
	lfhEnd := int64(cdr.FileHeaderOffset) + record.LFHMinSize +
		int64(cdr.ExtraFieldLength) + int64(cdr.FileNameLength) + int64(cdr.FileCommentLength)

	headerBuf, err := z.source.ReadRange(ctx, fmt.Sprintf("bytes=%d-%d", cdr.FileHeaderOffset, lfhEnd))
	if err != nil {
		return Extracted{}, &NetworkError{URL: z.url, RangeSpec: "LFH", Err: err}
	}

	lfh, err := record.ParseLFH(headerBuf)
	if err != nil {
		return Extracted{}, &ParserError{URL: z.url, Context: fmt.Sprintf("LFH %q", cdr.FileName), Err: err}
	}

	switch {
	case lfh.CompressionMethod.IsStored():
		payload, err := z.source.ReadRange(ctx, fmt.Sprintf("bytes=%d-%d", lfhEnd, lfhEnd+int64(lfh.UncompressedSize)))
		if err != nil {
			return Extracted{}, &NetworkError{URL: z.url, RangeSpec: "stored payload", Err: err}
		}
		// the range above follows the "start+length" endpoint convention,
		// which is one byte wider than the payload when taken as an
		// inclusive range; trim back to the length the LFH actually
		// promised.
		return Extracted{LFH: lfh, Bytes: trimTo(payload, int(lfh.UncompressedSize))}, nil

	case lfh.CompressionMethod.IsDeflate():
		payload, err := z.source.ReadRange(ctx, fmt.Sprintf("bytes=%d-%d", lfhEnd, lfhEnd+int64(lfh.CompressedSize)))
		if err != nil {
			return Extracted{}, &NetworkError{URL: z.url, RangeSpec: "deflate payload", Err: err}
		}

		decompressed, err := z.decompressor.Decompress(trimTo(payload, int(lfh.CompressedSize)), lfh.UncompressedSize)
		if err != nil {
			return Extracted{}, &DecompressionError{FileName: cdr.FileName, Err: err}
		}
		return Extracted{LFH: lfh, Bytes: decompressed}, nil

	default:
		return Extracted{}, &UnsupportedCompression{FileName: cdr.FileName, Method: lfh.CompressionMethod.Raw()}
	}
}

// trimTo returns b truncated to at most n bytes, tolerating a ByteSource
// that honored the inclusive "start+length" range convention and returned
// one byte more than requested.
func trimTo(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
