package netzip

import "github.com/nguyengg/netzip/flatedecomp"

// defaultDecompressor returns the Decompressor used by Open when
// Options.Decompressor is left unset.
func defaultDecompressor() Decompressor {
	return flatedecomp.New()
}
