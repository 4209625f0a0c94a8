package halstore

import "github.com/pkg/errors"

// ErrCapacityExceeded is returned by Alloc when the requested size would
// push nextOffset past the file's fixed size.
var ErrCapacityExceeded = errors.New("halstore: capacity exceeded")

// ErrVersionMismatch is returned by Open when the on-disk major API version
// differs from this package's.
var ErrVersionMismatch = errors.New("halstore: version mismatch")

// ErrFormatInvalid is returned by Open when the header's format tag doesn't
// match formatTag.
var ErrFormatInvalid = errors.New("halstore: invalid format tag")

// ErrDirtyOnOpen is returned by Open when a file's dirty bit is already set,
// signalling a previous writer crashed or never closed cleanly.
var ErrDirtyOnOpen = errors.New("halstore: file is dirty (unclean previous close)")
