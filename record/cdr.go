package record

import "encoding/binary"

// CDRMinSize is the fixed size in bytes of a CDR with no name, extra, or
// comment trailer.
const CDRMinSize = 46

// cdrMagic is the 4-byte signature that opens every central directory
// record.
var cdrMagic = [4]byte{0x50, 0x4b, 0x01, 0x02}

const (
	cdrVersionCreatedOffset   = 4
	cdrVersionRequiredOffset  = 6
	cdrGPBitFlagOffset        = 8
	cdrMethodOffset           = 10
	cdrModTimeOffset          = 12
	cdrModDateOffset          = 14
	cdrCRC32Offset            = 16
	cdrCompressedSizeOffset   = 20
	cdrUncompressedSizeOffset = 24
	cdrFileNameLengthOffset   = 28
	cdrExtraFieldLengthOffset = 30
	cdrCommentLengthOffset    = 32
	cdrDiskNumberOffset       = 34
	cdrAttrsInternalOffset    = 36
	cdrAttrsExternalOffset    = 38
	cdrFileHeaderOffset       = 42
	cdrFileNameStart          = 46
)

// CDR is a central directory record: the authoritative per-member metadata
// that indexes the member's local file header.
//
// See https://en.wikipedia.org/wiki/ZIP_(file_format)#Central_directory_file_header_(CDFH).
type CDR struct {
	VersionCreated      uint16
	VersionRequired     uint16
	GPBitFlag           uint16
	CompressionMethod   CompressionMethod
	LastModTime         uint16
	LastModDate         uint16
	CRC32               uint32
	CompressedSize      uint32
	UncompressedSize    uint32
	FileNameLength      uint16
	ExtraFieldLength    uint16
	FileCommentLength   uint16
	DiskNumber          uint16
	AttrsInternal       uint16
	AttrsExternal       uint32
	FileHeaderOffset    uint32
	FileName            string
	ExtraBytes          []byte
	Comment             string
	HasComment          bool
}

// ParseCDR decodes a single CDR from the head of buf.
//
// If allowExtraneous is false, len(buf) must equal exactly the computed
// record size (46 + name + extra + comment); ParseManyCDR always parses
// with allowExtraneous true, since each record in a stream is followed by
// the next one.
func ParseCDR(buf []byte, allowExtraneous bool) (CDR, error) {
	if len(buf) < CDRMinSize {
		return CDR{}, &MissingData{Context: "CDR (Initial Length Check)"}
	}
	if buf[0] != cdrMagic[0] || buf[1] != cdrMagic[1] || buf[2] != cdrMagic[2] || buf[3] != cdrMagic[3] {
		return CDR{}, &MissingData{Context: "CDR Magic"}
	}

	fileNameLength := binary.LittleEndian.Uint16(buf[cdrFileNameLengthOffset:])
	extraFieldLength := binary.LittleEndian.Uint16(buf[cdrExtraFieldLengthOffset:])
	fileCommentLength := binary.LittleEndian.Uint16(buf[cdrCommentLengthOffset:])

	// widen to at least 32 bits before summing so the required-length
	// computation can never silently wrap.
	required := CDRMinSize + int(fileNameLength) + int(extraFieldLength) + int(fileCommentLength)
	if len(buf) < required {
		return CDR{}, &MissingData{Context: "CDR Variable Length Fields"}
	}
	if len(buf) > required && !allowExtraneous {
		return CDR{}, &ExtraneousData{Context: "CDR"}
	}

	r := CDR{
		VersionCreated:    binary.LittleEndian.Uint16(buf[cdrVersionCreatedOffset:]),
		VersionRequired:   binary.LittleEndian.Uint16(buf[cdrVersionRequiredOffset:]),
		GPBitFlag:         binary.LittleEndian.Uint16(buf[cdrGPBitFlagOffset:]),
		CompressionMethod: NewCompressionMethod(binary.LittleEndian.Uint16(buf[cdrMethodOffset:])),
		LastModTime:       binary.LittleEndian.Uint16(buf[cdrModTimeOffset:]),
		LastModDate:       binary.LittleEndian.Uint16(buf[cdrModDateOffset:]),
		CRC32:             binary.LittleEndian.Uint32(buf[cdrCRC32Offset:]),
		CompressedSize:    binary.LittleEndian.Uint32(buf[cdrCompressedSizeOffset:]),
		UncompressedSize:  binary.LittleEndian.Uint32(buf[cdrUncompressedSizeOffset:]),
		FileNameLength:    fileNameLength,
		ExtraFieldLength:  extraFieldLength,
		FileCommentLength: fileCommentLength,
		DiskNumber:        binary.LittleEndian.Uint16(buf[cdrDiskNumberOffset:]),
		AttrsInternal:     binary.LittleEndian.Uint16(buf[cdrAttrsInternalOffset:]),
		AttrsExternal:     binary.LittleEndian.Uint32(buf[cdrAttrsExternalOffset:]),
		FileHeaderOffset:  binary.LittleEndian.Uint32(buf[cdrFileHeaderOffset:]),
	}

	offset := cdrFileNameStart
	r.FileName = decodeLossyUTF8(buf[offset : offset+int(fileNameLength)])
	offset += int(fileNameLength)

	if extraFieldLength > 0 {
		r.ExtraBytes = append([]byte(nil), buf[offset:offset+int(extraFieldLength)]...)
		offset += int(extraFieldLength)
	}

	if fileCommentLength > 0 {
		r.Comment = decodeLossyUTF8(buf[offset : offset+int(fileCommentLength)])
		r.HasComment = true
	}

	return r, nil
}

// ParseManyCDR decodes a contiguous stream of CDRs starting at the head of
// buf, returning them in on-disk order.
//
// Each record is parsed with allowExtraneous true, since the stream's total
// length (the EOCD's DirectorySize) need not exactly equal the sum of
// individual record sizes from the caller's point of view — what matters is
// that each successive record starts exactly where the previous one ended.
// An empty buf yields an empty, nil-error result. The first inner parse
// failure aborts the scan and returns no partial results.
func ParseManyCDR(buf []byte) ([]CDR, error) {
	var out []CDR

	for cursor := 0; cursor < len(buf)-1; {
		r, err := ParseCDR(buf[cursor:], true)
		if err != nil {
			return nil, err
		}

		out = append(out, r)
		cursor += CDRMinSize + int(r.FileNameLength) + int(r.ExtraFieldLength) + int(r.FileCommentLength)
	}

	return out, nil
}
