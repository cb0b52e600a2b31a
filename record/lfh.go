package record

import "encoding/binary"

// LFHMinSize is the fixed size in bytes of an LFH with no name or extra
// trailer.
const LFHMinSize = 30

// lfhMagic is the 4-byte signature that opens every local file header.
var lfhMagic = [4]byte{0x50, 0x4b, 0x03, 0x04}

const (
	lfhVersionRequiredOffset  = 4
	lfhGPBitFlagOffset        = 6
	lfhMethodOffset           = 8
	lfhModTimeOffset          = 10
	lfhModDateOffset          = 12
	lfhCRC32Offset            = 14
	lfhCompressedSizeOffset   = 18
	lfhUncompressedSizeOffset = 22
	lfhFileNameLengthOffset   = 26
	lfhExtraFieldLengthOffset = 28
	lfhFileNameStart          = 30
)

// LFH is a local file header: the record immediately preceding a member's
// compressed data. Unlike the CDR, it carries no comment and no disk or
// external-attribute bookkeeping — its only job is to confirm where the
// member's data begins.
//
// See https://en.wikipedia.org/wiki/ZIP_(file_format)#Local_file_header.
type LFH struct {
	VersionRequired   uint16
	GPBitFlag         uint16
	CompressionMethod CompressionMethod
	LastModTime       uint16
	LastModDate       uint16
	CRC32             uint32
	CompressedSize    uint32
	UncompressedSize  uint32
	FileNameLength    uint16
	ExtraFieldLength  uint16
	FileName          string
	ExtraBytes        []byte
}

// ParseLFH decodes a single LFH from the head of buf.
//
// buf need only contain the header itself (fixed head plus name and extra
// trailers); the compressed data that follows is not this function's
// concern, and any bytes in buf past the header are ignored, since a caller
// locating an LFH by its CDR-predicted offset rarely knows the header's
// exact length in advance.
func ParseLFH(buf []byte) (LFH, error) {
	if len(buf) < LFHMinSize {
		return LFH{}, &MissingData{Context: "LFH (Initial Length Check)"}
	}
	if buf[0] != lfhMagic[0] || buf[1] != lfhMagic[1] || buf[2] != lfhMagic[2] || buf[3] != lfhMagic[3] {
		return LFH{}, &MissingData{Context: "LFH Magic"}
	}

	fileNameLength := binary.LittleEndian.Uint16(buf[lfhFileNameLengthOffset:])
	extraFieldLength := binary.LittleEndian.Uint16(buf[lfhExtraFieldLengthOffset:])

	required := LFHMinSize + int(fileNameLength) + int(extraFieldLength)
	if len(buf) < required {
		return LFH{}, &MissingData{Context: "LFH Variable Length Fields"}
	}

	h := LFH{
		VersionRequired:   binary.LittleEndian.Uint16(buf[lfhVersionRequiredOffset:]),
		GPBitFlag:         binary.LittleEndian.Uint16(buf[lfhGPBitFlagOffset:]),
		CompressionMethod: NewCompressionMethod(binary.LittleEndian.Uint16(buf[lfhMethodOffset:])),
		LastModTime:       binary.LittleEndian.Uint16(buf[lfhModTimeOffset:]),
		LastModDate:       binary.LittleEndian.Uint16(buf[lfhModDateOffset:]),
		CRC32:             binary.LittleEndian.Uint32(buf[lfhCRC32Offset:]),
		CompressedSize:    binary.LittleEndian.Uint32(buf[lfhCompressedSizeOffset:]),
		UncompressedSize:  binary.LittleEndian.Uint32(buf[lfhUncompressedSizeOffset:]),
		FileNameLength:    fileNameLength,
		ExtraFieldLength:  extraFieldLength,
	}

	offset := lfhFileNameStart
	h.FileName = decodeLossyUTF8(buf[offset : offset+int(fileNameLength)])
	offset += int(fileNameLength)

	if extraFieldLength > 0 {
		h.ExtraBytes = append([]byte(nil), buf[offset:offset+int(extraFieldLength)]...)
	}

	return h, nil
}

// Size returns the total byte length of this header: the 30-byte fixed
// head plus its name and extra trailers. A member's compressed data begins
// immediately after FileHeaderOffset+Size().
func (h LFH) Size() int {
	return LFHMinSize + int(h.FileNameLength) + int(h.ExtraFieldLength)
}
