package halstore

import "bytes"

// Layout constants for the fixed-size header at file offset 0. All
// multibyte integers are native-endian; there is no cross-endian
// portability promise.
const (
	tagSize      = 32
	versionSize  = 32
	reservedSize = 256

	// wordSize is the alignment granularity for allocations.
	wordSize = 8

	// headerSize is the total on-disk size of header, computed from the
	// field layout below.
	headerSize = tagSize + versionSize + versionSize /*halVersion*/ +
		8 /*nextOffset*/ + 8 /*rootOffset*/ + 1 /*dirty*/ + 7 /*pad*/ + reservedSize
)

// formatTag identifies this package's mmap backend. isMmapFile matches the
// first tagSize bytes of a file against this value.
var formatTag = padTag("halstore-mmap-v1")

// mmapVersion is the dotted API version of this package's on-disk layout.
var mmapVersion = padTag("1.0")

// halVersionDefault is the default payload/schema version stamped into a
// newly created file. Open does not check it; the major-version check
// applies to mmapVersion.
var halVersionDefault = padTag("2.0")

// apiMajor is the major version this implementation understands. A
// mismatched major version in an opened file's header is fatal.
const apiMajor = "1"

// NullOffset is the sentinel value meaning "no offset".
const NullOffset Offset = 0

func padTag(s string) [tagSize]byte {
	var b [tagSize]byte
	copy(b[:], s)
	return b
}

// header is the fixed-size prefix stored at file offset 0.
type header struct {
	format      [tagSize]byte
	mmapVersion [versionSize]byte
	halVersion  [versionSize]byte
	nextOffset  uint64
	rootOffset  uint64
	dirty       uint8
	_           [7]byte // pad to 8-byte alignment
	reserved    [reservedSize]byte
}

// isMmapFile reports whether initialBytes begins with this package's format
// tag.
func isMmapFile(initialBytes []byte) bool {
	if len(initialBytes) < tagSize {
		return false
	}
	return bytes.Equal(initialBytes[:tagSize], formatTag[:])
}

// IsMmapFile is the exported form of isMmapFile, for callers that want to
// sniff a file's format before opening it as a Store.
func IsMmapFile(initialBytes []byte) bool { return isMmapFile(initialBytes) }

func majorVersion(v [versionSize]byte) string {
	s := string(bytes.TrimRight(v[:], "\x00"))
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s[:i]
		}
	}
	return s
}

// alignRound rounds n up to the next multiple of wordSize.
func alignRound(n uint64) uint64 {
	return (n + wordSize - 1) / wordSize * wordSize
}
