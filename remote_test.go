package netzip

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"fmt"
	"hash/crc32"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nguyengg/netzip/flatedecomp"
)

// mockByteSource serves range reads directly out of an in-memory blob,
// recording every range-spec it was asked for so tests can assert on the
// fetch plan.
type mockByteSource struct {
	blob     []byte
	requests []string
}

func (m *mockByteSource) ReadRange(_ context.Context, rangeSpec string) ([]byte, error) {
	m.requests = append(m.requests, rangeSpec)

	spec := strings.TrimPrefix(rangeSpec, "bytes=")

	if strings.HasPrefix(spec, "-") {
		n, err := strconv.Atoi(spec[1:])
		if err != nil {
			return nil, err
		}
		if n > len(m.blob) {
			n = len(m.blob)
		}
		return m.blob[len(m.blob)-n:], nil
	}

	parts := strings.SplitN(spec, "-", 2)
	a, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, err
	}
	b, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, err
	}
	if b >= len(m.blob) {
		b = len(m.blob) - 1
	}
	return m.blob[a : b+1], nil
}

func (m *mockByteSource) Size() int64 { return int64(len(m.blob)) }
func (m *mockByteSource) Close() error { return nil }

// buildFixture writes a zip archive with a stored "a.txt", a deflated
// "b.txt", and an optional trailing comment.
//
// Both members are added with CreateRaw so their LFH carries the real
// CRC32/sizes directly (general purpose bit 3 clear) rather than deferring
// them to a trailing data descriptor, matching the subset of ZIP this
// module supports.
func buildFixture(t *testing.T, comment string) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	aContent := []byte("hello, a!")
	aWriter, err := zw.CreateRaw(&zip.FileHeader{
		Name:               "a.txt",
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(aContent),
		CompressedSize64:   uint64(len(aContent)),
		UncompressedSize64: uint64(len(aContent)),
	})
	assert.NoError(t, err)
	_, err = aWriter.Write(aContent)
	assert.NoError(t, err)

	bContent := []byte(strings.Repeat("hello, b! ", 50))
	compressed := &bytes.Buffer{}
	fw, err := flate.NewWriter(compressed, flate.BestCompression)
	assert.NoError(t, err)
	_, err = fw.Write(bContent)
	assert.NoError(t, err)
	assert.NoError(t, fw.Close())

	bWriter, err := zw.CreateRaw(&zip.FileHeader{
		Name:               "b.txt",
		Method:             zip.Deflate,
		CRC32:              crc32.ChecksumIEEE(bContent),
		CompressedSize64:   uint64(compressed.Len()),
		UncompressedSize64: uint64(len(bContent)),
	})
	assert.NoError(t, err)
	_, err = bWriter.Write(compressed.Bytes())
	assert.NoError(t, err)

	if comment != "" {
		assert.NoError(t, zw.SetComment(comment))
	}

	assert.NoError(t, zw.Close())
	return buf.Bytes()
}

func openFixture(t *testing.T, blob []byte) (*RemoteZip, *mockByteSource) {
	t.Helper()

	src := &mockByteSource{blob: blob}
	schemes["mock"] = func(context.Context, *url.URL) (ByteSource, error) { return src, nil }

	z, err := Open(context.Background(), "mock://fixture", func(o *Options) {
		o.Decompressor = flatedecomp.New()
	})
	assert.NoError(t, err)

	return z, src
}

func TestOpen_listNoComment(t *testing.T) {
	blob := buildFixture(t, "")
	z, src := openFixture(t, blob)
	defer z.Close()

	assert.Len(t, src.requests, 2)
	assert.Equal(t, "bytes=-22", src.requests[0])

	records := z.Records()
	assert.Len(t, records, 2)
	assert.Equal(t, "a.txt", records[0].FileName)
	assert.Equal(t, "b.txt", records[1].FileName)
}

func TestOpen_listWithComment(t *testing.T) {
	blob := buildFixture(t, "ABC")
	z, src := openFixture(t, blob)
	defer z.Close()

	assert.Len(t, src.requests, 3)
	assert.Equal(t, "bytes=-22", src.requests[0])
	assert.Equal(t, fmt.Sprintf("bytes=-%d", 22+1024), src.requests[1])

	records := z.Records()
	assert.Len(t, records, 2)
	assert.Equal(t, "a.txt", records[0].FileName)
	assert.Equal(t, "b.txt", records[1].FileName)
}

func TestDownloadFiles_storedMember(t *testing.T) {
	blob := buildFixture(t, "")
	z, _ := openFixture(t, blob)
	defer z.Close()

	results, err := z.DownloadFiles(context.Background(), []string{"a.txt"})
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, []byte("hello, a!"), results[0].Bytes)
}

func TestDownloadFiles_deflateMember(t *testing.T) {
	blob := buildFixture(t, "")
	z, _ := openFixture(t, blob)
	defer z.Close()

	results, err := z.DownloadFiles(context.Background(), []string{"b.txt"})
	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, strings.Repeat("hello, b! ", 50), string(results[0].Bytes))
	assert.Equal(t, uint32(len(results[0].Bytes)), results[0].LFH.UncompressedSize)
}

func TestDownloadFiles_filterMiss(t *testing.T) {
	blob := buildFixture(t, "")
	z, _ := openFixture(t, blob)
	defer z.Close()

	results, err := z.DownloadFiles(context.Background(), []string{"missing.txt"})
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestDownloadFiles_unsupportedCompression(t *testing.T) {
	blob := buildFixture(t, "")

	// DownloadFiles dispatches on the LFH's own compression method, so flip
	// that copy (the first occurrence of "b.txt", in the LFH, as opposed
	// to its second occurrence in the CDR) to BZIP2 (12) in place. The
	// LFH's method field sits 22 bytes before its file name.
	idx := bytes.Index(blob, []byte("b.txt")) - 22
	assert.GreaterOrEqual(t, idx, 0)
	blob[idx] = 12
	blob[idx+1] = 0

	z, _ := openFixture(t, blob)
	defer z.Close()

	_, err := z.DownloadFiles(context.Background(), []string{"b.txt"})
	var unsupported *UnsupportedCompression
	assert.ErrorAs(t, err, &unsupported)
	assert.Equal(t, uint16(12), unsupported.Method)
}
