// Package record decodes the three on-disk ZIP structures needed for
// random access: the end-of-central-directory record (EOCD), the central
// directory record (CDR) stream, and the local file header (LFH).
//
// Every decoder here is a pure function over a byte slice: no I/O, no
// shared state. Bounds are checked before every field read, and a decoder
// that would address past the end of its input fails with MissingData
// rather than panicking.
package record

import "fmt"

// MissingData is returned when a decoder needs more bytes than its input
// slice provides, whether at the fixed head or in a variable-length
// trailer.
type MissingData struct {
	// Context names the field or section that was being decoded, e.g.
	// "EOCD Magic" or "CDR Variable Length Fields".
	Context string
}

func (e *MissingData) Error() string {
	return fmt.Sprintf("encountered unexpected end while parsing %s", e.Context)
}

// MalformedData is returned when a decoded field's value cannot be valid
// no matter how many bytes are available (reserved for violations other
// than a bad magic number or a length mismatch, which are reported as
// MissingData or ExtraneousData).
type MalformedData struct {
	Context string
}

func (e *MalformedData) Error() string {
	return fmt.Sprintf("encountered malformed data while parsing %s", e.Context)
}

// ExtraneousData is returned when a decoder's input slice is longer than
// the record it describes, and the caller asked for strict length
// checking.
type ExtraneousData struct {
	Context string
}

func (e *ExtraneousData) Error() string {
	return fmt.Sprintf("encountered extraneous data while parsing %s", e.Context)
}
