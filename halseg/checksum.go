package halseg

import (
	"unsafe"

	"blainsmith.com/go/seahash"
)

// segmentChecksum computes a seahash digest over a genome's top and bottom
// segment tables, so a caller that holds a checksum from an earlier point
// in a genome's lifetime (e.g. just after a store Close) can detect if the
// underlying mapped memory was altered or corrupted out from under it.
func (g *Genome) segmentChecksum() uint64 {
	h := seahash.New()
	if len(g.Top) > 0 {
		h.Write(bytesOf(g.Top))
	}
	if len(g.Bottom) > 0 {
		h.Write(bytesOf(g.Bottom))
	}
	return h.Sum64()
}

// Checksum returns the current segment-table checksum, for callers that
// want to assert it's stable across a store close/reopen cycle.
func (g *Genome) Checksum() uint64 { return g.segmentChecksum() }

func bytesOf[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	sz := int(unsafe.Sizeof(zero))
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*sz)
}
