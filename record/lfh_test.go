package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lfhFixture() []byte {
	return []byte{
		0x50, 0x4B, 0x03, 0x04, 0x0A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x9D, 0x4B, 0x83, 0x59,
		0x57, 0x51, 0x33, 0x2C, 0x06, 0x00, 0x00, 0x00, 0x06, 0x00, 0x00, 0x00, 0x08, 0x00,
		0x1C, 0x00, 0x74, 0x65, 0x73, 0x74, 0x2E, 0x74, 0x78, 0x74, 0x55, 0x54, 0x09, 0x00,
		0x03, 0x4A, 0xC1, 0x4E, 0x67, 0x4A, 0xC1, 0x4E, 0x67, 0x75, 0x78, 0x0B, 0x00, 0x01,
		0x04, 0xE8, 0x03, 0x00, 0x00, 0x04, 0xE8, 0x03, 0x00, 0x00, 0x41, 0x42, 0x31, 0x32,
		0x33, 0x0A,
	}
}

func TestParseLFH(t *testing.T) {
	t.Run("valid header", func(t *testing.T) {
		h, err := ParseLFH(lfhFixture())
		assert.NoError(t, err)

		assert.Equal(t, uint16(10), h.VersionRequired)
		assert.Equal(t, uint16(0), h.GPBitFlag)
		assert.True(t, h.CompressionMethod.IsStored())
		assert.Equal(t, uint16(0x4b9d), h.LastModTime)
		assert.Equal(t, uint16(0x5983), h.LastModDate)
		assert.Equal(t, uint32(0x2c335157), h.CRC32)
		assert.Equal(t, uint32(6), h.CompressedSize)
		assert.Equal(t, uint32(6), h.UncompressedSize)
		assert.Equal(t, "test.txt", h.FileName)
		assert.Equal(t, uint16(8), h.FileNameLength)
		assert.Equal(t, uint16(28), h.ExtraFieldLength)
		assert.Equal(t, LFHMinSize+8+28, h.Size())
	})

	t.Run("ignores trailing payload bytes", func(t *testing.T) {
		fixture := lfhFixture()
		h, err := ParseLFH(append(fixture, 0x01, 0x02, 0x03))
		assert.NoError(t, err)
		assert.Equal(t, "test.txt", h.FileName)
	})

	t.Run("truncated by one byte yields MissingData", func(t *testing.T) {
		// the fixture carries 6 payload bytes after its 66-byte header, which
		// ParseLFH ignores; truncate the header itself by one byte.
		fixture := lfhFixture()
		_, err := ParseLFH(fixture[:LFHMinSize+8+28-1])
		var missing *MissingData
		assert.ErrorAs(t, err, &missing)
	})

	t.Run("flipped magic bit yields MissingData", func(t *testing.T) {
		fixture := lfhFixture()
		fixture[2] = 0x05
		_, err := ParseLFH(fixture)
		var missing *MissingData
		assert.ErrorAs(t, err, &missing)
		assert.Equal(t, "LFH Magic", missing.Context)
	})
}
