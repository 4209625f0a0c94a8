package halstore

import (
	"encoding/binary"

	"github.com/minio/highwayhash"
)

// digestKey is a fixed, non-secret key: the digest here is an integrity
// check against accidental truncation/corruption, not a security boundary.
var digestKey = [32]byte{
	'h', 'a', 'l', 's', 't', 'o', 'r', 'e',
	'-', 'p', 'a', 'y', 'l', 'o', 'a', 'd',
	'-', 'd', 'i', 'g', 'e', 's', 't', '-',
	'v', '1', 0, 0, 0, 0, 0, 0,
}

// digestOffset is where the 8-byte digest is stashed within the header's
// reserved bytes; it does not change the on-disk layout, since those bytes
// are reserved forward-compatible space to begin with.
const digestOffset = 0

// writeDigest computes a HighwayHash digest over the payload region
// (everything after the header) and stores it in the header's reserved
// bytes. Called from Close, after all allocations for the session are done.
func writeDigest(hdr *header, data []byte) {
	if hdr.nextOffset <= headerSize {
		return
	}
	sum := highwayhash.Sum64(data[headerSize:hdr.nextOffset], digestKey[:])
	binary.LittleEndian.PutUint64(hdr.reserved[digestOffset:digestOffset+8], sum)
}

// VerifyDigest recomputes the payload digest and compares it against the
// one stashed at the last clean Close. It returns false if the file was
// never closed cleanly with a non-empty payload, or if the digest does not
// match (silent corruption beyond what the dirty bit catches).
func (s *Store) VerifyDigest() bool {
	if s.hdr.nextOffset <= headerSize {
		return true
	}
	want := binary.LittleEndian.Uint64(s.hdr.reserved[digestOffset : digestOffset+8])
	got := highwayhash.Sum64(s.data[headerSize:s.hdr.nextOffset], digestKey[:])
	return want == got
}
