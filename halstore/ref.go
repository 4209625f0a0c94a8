package halstore

import "unsafe"

// Ref is a typed, persistent reference to a T resolved through a Store, in
// place of handing out raw mapped pointers. A zero Ref is the null
// reference.
type Ref[T any] struct {
	off Offset
}

// RefOf wraps an Offset returned by Store.Alloc as a Ref[T].
func RefOf[T any](off Offset) Ref[T] { return Ref[T]{off: off} }

// IsNull reports whether r is the null reference.
func (r Ref[T]) IsNull() bool { return r.off == NullOffset }

// Offset returns the underlying byte offset.
func (r Ref[T]) Offset() Offset { return r.off }

// Resolve returns a pointer to the T at r's offset within s. It fails the
// same way Store.ToPtr does for an out-of-range offset.
func Resolve[T any](s *Store, r Ref[T]) (*T, error) {
	var zero T
	ptr, err := s.ToPtr(r.off, uint64(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	return (*T)(ptr), nil
}

// AllocValue allocates space for a T in s, copies init into it, and returns
// a Ref to the stored value.
func AllocValue[T any](s *Store, init T, isRoot bool) (Ref[T], error) {
	off, err := s.Alloc(uint64(unsafe.Sizeof(init)), isRoot)
	if err != nil {
		return Ref[T]{}, err
	}
	ptr, err := s.ToPtr(off, uint64(unsafe.Sizeof(init)))
	if err != nil {
		return Ref[T]{}, err
	}
	*(*T)(ptr) = init
	return Ref[T]{off: off}, nil
}
