package record

import "encoding/binary"

// EOCDMinSize is the fixed size in bytes of an EOCD with no comment.
const EOCDMinSize = 22

// eocdMagic is the 4-byte signature that opens every EOCD record.
var eocdMagic = [4]byte{0x50, 0x4b, 0x05, 0x06}

const (
	eocdDiskNumberOffset       = 4
	eocdDiskStartOffset        = 6
	eocdRecordCountDiskOffset  = 8
	eocdRecordCountTotalOffset = 10
	eocdDirectorySizeOffset    = 12
	eocdCDOffsetOffset         = 16
	eocdCommentLengthOffset    = 20
	eocdCommentStart           = 22
)

// EOCD is the end-of-central-directory record: the fixed-layout trailer
// that locates the central directory.
//
// See https://en.wikipedia.org/wiki/ZIP_(file_format)#End_of_central_directory_record_(EOCD).
type EOCD struct {
	DiskNumber        uint16
	DiskStart         uint16
	RecordCountDisk   uint16
	RecordCountTotal  uint16
	DirectorySize     uint32
	CDOffset          uint32
	CommentLength     uint16
	Comment           string
	HasComment        bool
}

// ParseEOCD strictly decodes an EOCD from buf.
//
// buf must contain exactly one EOCD: 22 fixed bytes plus exactly
// CommentLength bytes of comment, no more, no less. Use FindAndParseEOCD
// when buf may contain leading bytes before the EOCD (e.g. because the
// caller fetched a wider tail window, not knowing the comment length).
func ParseEOCD(buf []byte) (EOCD, error) {
	if len(buf) < EOCDMinSize {
		return EOCD{}, &MissingData{Context: "EOCD (Initial Length Check)"}
	}
	if buf[0] != eocdMagic[0] || buf[1] != eocdMagic[1] || buf[2] != eocdMagic[2] || buf[3] != eocdMagic[3] {
		return EOCD{}, &MissingData{Context: "EOCD Magic"}
	}

	e := EOCD{
		DiskNumber:       binary.LittleEndian.Uint16(buf[eocdDiskNumberOffset:]),
		DiskStart:        binary.LittleEndian.Uint16(buf[eocdDiskStartOffset:]),
		RecordCountDisk:  binary.LittleEndian.Uint16(buf[eocdRecordCountDiskOffset:]),
		RecordCountTotal: binary.LittleEndian.Uint16(buf[eocdRecordCountTotalOffset:]),
		DirectorySize:    binary.LittleEndian.Uint32(buf[eocdDirectorySizeOffset:]),
		CDOffset:         binary.LittleEndian.Uint32(buf[eocdCDOffsetOffset:]),
		CommentLength:    binary.LittleEndian.Uint16(buf[eocdCommentLengthOffset:]),
	}

	if e.CommentLength == 0 {
		if len(buf) != EOCDMinSize {
			return EOCD{}, &ExtraneousData{Context: "EOCD Comment (comment length 0)"}
		}
		return e, nil
	}

	commentEnd := eocdCommentStart + int(e.CommentLength)
	switch {
	case commentEnd > len(buf):
		return EOCD{}, &MissingData{Context: "EOCD Comment"}
	case commentEnd < len(buf):
		return EOCD{}, &ExtraneousData{Context: "EOCD Comment"}
	}

	e.Comment = decodeLossyUTF8(buf[eocdCommentStart:commentEnd])
	e.HasComment = true
	return e, nil
}

// FindAndParseEOCD scans haystack from its highest index down to its lowest
// for the EOCD magic, and parses the EOCD starting at the rightmost match.
//
// ZIP specifies that the last EOCD in a file is authoritative (an archive
// comment, or a prior malformed attempt at one, can place extra EOCD-magic
// look-alike bytes earlier in the buffer); scanning in reverse guarantees
// that the rightmost, and therefore authoritative, match is the one
// returned. The scan keeps a single cursor into eocdMagic: on a byte match
// it advances the cursor toward index 0, and on a mismatch it resets to the
// last magic byte, exactly mirroring a reverse string-search automaton with
// a 4-byte needle.
func FindAndParseEOCD(haystack []byte) (EOCD, error) {
	cursor := len(eocdMagic) - 1

	for idx := len(haystack) - 1; idx >= 0; idx-- {
		if haystack[idx] == eocdMagic[cursor] {
			if cursor == 0 {
				return ParseEOCD(haystack[idx:])
			}
			cursor--
		} else {
			cursor = len(eocdMagic) - 1
		}
	}

	return EOCD{}, &MissingData{Context: "EOCD Magic"}
}
