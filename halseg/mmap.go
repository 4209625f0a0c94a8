package halseg

import (
	"unsafe"

	"github.com/ejrsimr/hal/halstore"
)

// LoadTopSegments reinterprets the n TopSegment-sized words at off in s as
// a slice directly backed by the mapped region, no copy. The slice is only
// valid while s stays open.
func LoadTopSegments(s *halstore.Store, off halstore.Offset, n int) ([]TopSegment, error) {
	if n == 0 {
		return nil, nil
	}
	var zero TopSegment
	ptr, err := s.ToPtr(off, uint64(n)*uint64(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*TopSegment)(ptr), n), nil
}

// LoadBottomSegments is LoadTopSegments's BottomSegment counterpart.
func LoadBottomSegments(s *halstore.Store, off halstore.Offset, n int) ([]BottomSegment, error) {
	if n == 0 {
		return nil, nil
	}
	var zero BottomSegment
	ptr, err := s.ToPtr(off, uint64(n)*uint64(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*BottomSegment)(ptr), n), nil
}

// LoadChildSlots is LoadTopSegments's ChildSlot counterpart.
func LoadChildSlots(s *halstore.Store, off halstore.Offset, n int) ([]ChildSlot, error) {
	if n == 0 {
		return nil, nil
	}
	var zero ChildSlot
	ptr, err := s.ToPtr(off, uint64(n)*uint64(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*ChildSlot)(ptr), n), nil
}

// AllocTopSegments copies segs into a freshly allocated, word-aligned region
// of s and returns its offset.
func AllocTopSegments(s *halstore.Store, segs []TopSegment) (halstore.Offset, error) {
	if len(segs) == 0 {
		return halstore.NullOffset, nil
	}
	sz := uint64(len(segs)) * uint64(unsafe.Sizeof(segs[0]))
	off, err := s.Alloc(sz, false)
	if err != nil {
		return 0, err
	}
	ptr, err := s.ToPtr(off, sz)
	if err != nil {
		return 0, err
	}
	copy(unsafe.Slice((*TopSegment)(ptr), len(segs)), segs)
	return off, nil
}

// AllocBottomSegments is AllocTopSegments's BottomSegment counterpart.
func AllocBottomSegments(s *halstore.Store, segs []BottomSegment) (halstore.Offset, error) {
	if len(segs) == 0 {
		return halstore.NullOffset, nil
	}
	sz := uint64(len(segs)) * uint64(unsafe.Sizeof(segs[0]))
	off, err := s.Alloc(sz, false)
	if err != nil {
		return 0, err
	}
	ptr, err := s.ToPtr(off, sz)
	if err != nil {
		return 0, err
	}
	copy(unsafe.Slice((*BottomSegment)(ptr), len(segs)), segs)
	return off, nil
}

// AllocChildSlots is AllocTopSegments's ChildSlot counterpart.
func AllocChildSlots(s *halstore.Store, slots []ChildSlot) (halstore.Offset, error) {
	if len(slots) == 0 {
		return halstore.NullOffset, nil
	}
	sz := uint64(len(slots)) * uint64(unsafe.Sizeof(slots[0]))
	off, err := s.Alloc(sz, false)
	if err != nil {
		return 0, err
	}
	ptr, err := s.ToPtr(off, sz)
	if err != nil {
		return 0, err
	}
	copy(unsafe.Slice((*ChildSlot)(ptr), len(slots)), slots)
	return off, nil
}
