// Package halstore implements the memory-mapped storage substrate for a
// hierarchical alignment file: header layout, bump allocation, offset-to-
// address resolution, read/write modes, dirty-state tracking, and an
// optional prefetch hook for remote-backed mappings.
package halstore

import (
	"os"
	"unsafe"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
	"v.io/x/lib/vlog"
)

// Offset is a byte position within the mapped file, used as a persistent
// reference in place of a raw pointer.
type Offset uint64

// Mode selects how a file is opened.
type Mode int

const (
	// ModeReadOnly maps an existing file for reading only.
	ModeReadOnly Mode = iota
	// ModeReadWrite creates (if absent) or maps an existing file for
	// reading and writing.
	ModeReadWrite
	// ModePreload additionally forces the prefetch hook to run on every
	// ToPtr resolution, for use when the backing transport is remote.
	ModePreload
)

// PrefetchHook is invoked before a pointer is dereferenced, to ensure the
// byte range [offset, offset+size) is resident. The default is a no-op;
// RemotePrefetcher (remote.go) supplies a non-trivial implementation.
type PrefetchHook func(offset Offset, size uint64) error

func noopPrefetch(Offset, uint64) error { return nil }

// Store owns one mmap'd alignment file.
type Store struct {
	path      string
	mode      Mode
	file      *os.File
	data      []byte
	hdr       *header
	fileSize  uint64
	mustFetch bool
	prefetch  PrefetchHook
}

// Open opens path in the given mode. If path does not exist and mode is
// ModeReadWrite (or ModePreload), a new file of fileSize bytes is created
// and initialized with a fresh header. Otherwise the existing file is
// mapped and its header validated.
func Open(path string, mode Mode, fileSize uint64) (*Store, error) {
	_, statErr := os.Stat(path)
	create := os.IsNotExist(statErr)
	if create && mode == ModeReadOnly {
		return nil, errors.Errorf("halstore: open %s: no such file", path)
	}

	flag := os.O_RDONLY
	if mode != ModeReadOnly {
		flag = os.O_RDWR
		if create {
			flag |= os.O_CREATE
		}
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "halstore: open %s", path)
	}

	if create {
		if err := f.Truncate(int64(fileSize)); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "halstore: truncate %s", path)
		}
	} else {
		st, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "halstore: stat %s", path)
		}
		fileSize = uint64(st.Size())
	}

	prot := unix.PROT_READ
	if mode != ModeReadOnly {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(fileSize), prot, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "halstore: mmap %s", path)
	}

	s := &Store{
		path:      path,
		mode:      mode,
		file:      f,
		data:      data,
		hdr:       (*header)(unsafe.Pointer(&data[0])),
		fileSize:  fileSize,
		mustFetch: mode == ModePreload,
		prefetch:  noopPrefetch,
	}

	if create {
		s.hdr.format = formatTag
		s.hdr.mmapVersion = mmapVersion
		s.hdr.halVersion = halVersionDefault
		s.hdr.nextOffset = uint64(headerSize)
		s.hdr.rootOffset = uint64(NullOffset)
		s.hdr.dirty = 1
		return s, nil
	}

	if !isMmapFile(data) {
		unix.Munmap(data)
		f.Close()
		return nil, ErrFormatInvalid
	}
	if majorVersion(s.hdr.mmapVersion) != apiMajor {
		unix.Munmap(data)
		f.Close()
		return nil, ErrVersionMismatch
	}
	if s.hdr.dirty != 0 {
		unix.Munmap(data)
		f.Close()
		return nil, ErrDirtyOnOpen
	}
	if mode != ModeReadOnly {
		s.hdr.dirty = 1
	}
	return s, nil
}

// SetPrefetchHook installs hook, overriding the default no-op. Used to
// install RemotePrefetcher.Fetch for remote-backed mappings.
func (s *Store) SetPrefetchHook(hook PrefetchHook) {
	if hook == nil {
		hook = noopPrefetch
	}
	s.prefetch = hook
}

// ToPtr returns a pointer to the mapped region at offset. If the store was
// opened with ModePreload, the prefetch hook runs first over
// [offset, offset+accessSize). offset must be less than nextOffset;
// violating this is a programming error, which is logged and returned as an
// error. An access that overruns the mapped file is fatal.
func (s *Store) ToPtr(offset Offset, accessSize uint64) (unsafe.Pointer, error) {
	if uint64(offset) >= s.hdr.nextOffset {
		log.Error.Printf("halstore: ToPtr: offset %d >= nextOffset %d", offset, s.hdr.nextOffset)
		return nil, errors.Errorf("halstore: invalid offset %d", offset)
	}
	if uint64(offset)+accessSize > s.fileSize {
		// A valid offset (< nextOffset) whose accessSize still overruns the
		// mapping can only mean mismatched type sizes between the writer and
		// reader of this region: a programming error, not a recoverable
		// runtime condition, so it's fatal rather than returned to the caller.
		vlog.Fatalf("halstore: ToPtr: offset %d + size %d overruns mapped file of %d bytes", offset, accessSize, s.fileSize)
	}
	if s.mustFetch {
		if err := s.prefetch(offset, accessSize); err != nil {
			return nil, errors.Wrap(err, "halstore: prefetch")
		}
	}
	return unsafe.Pointer(&s.data[offset]), nil
}

// Alloc reserves size bytes starting at the current nextOffset, rounds the
// allocation up to a word-aligned boundary, and returns the pre-advance
// offset. Write-mode only. If isRoot is true, the returned offset is
// recorded as the header's root object.
func (s *Store) Alloc(size uint64, isRoot bool) (Offset, error) {
	if s.mode == ModeReadOnly {
		return 0, errors.Errorf("halstore: Alloc called on a read-only store")
	}
	aligned := alignRound(size)
	if s.hdr.nextOffset+aligned > s.fileSize {
		return 0, ErrCapacityExceeded
	}
	off := Offset(s.hdr.nextOffset)
	s.hdr.nextOffset += aligned
	if isRoot {
		s.hdr.rootOffset = uint64(off)
	}
	return off, nil
}

// RootOffset returns the registered root object's offset. Asserted non-zero:
// calling it before any Alloc(isRoot=true) is a programming error.
func (s *Store) RootOffset() Offset {
	if s.hdr.rootOffset == 0 {
		log.Panicf("halstore: RootOffset called before any root was registered")
	}
	return Offset(s.hdr.rootOffset)
}

// NextOffset returns the current allocation cursor, mostly useful for tests
// asserting monotonicity.
func (s *Store) NextOffset() Offset { return Offset(s.hdr.nextOffset) }

// FileSize returns the fixed size of the mapped file.
func (s *Store) FileSize() uint64 { return s.fileSize }

// Path returns the path this store was opened from.
func (s *Store) Path() string { return s.path }

// Close clears the dirty flag, flushes the digest and the mapping, and
// unmaps the file. On a read-only store it only unmaps and closes the file.
// Callers of a write-mode store MUST call Close on success; on
// any error they must abort without calling Close so the file remains
// marked dirty, signalling an unclean session to the next opener.
func (s *Store) Close() error {
	if s.mode == ModeReadOnly {
		return s.unmapAndClose()
	}
	writeDigest(s.hdr, s.data)
	s.hdr.dirty = 0
	if err := unix.Msync(s.data, unix.MS_SYNC); err != nil {
		return errors.Wrap(err, "halstore: msync")
	}
	return s.unmapAndClose()
}

func (s *Store) unmapAndClose() error {
	if err := unix.Munmap(s.data); err != nil {
		return errors.Wrap(err, "halstore: munmap")
	}
	return s.file.Close()
}
