package main

import (
	"github.com/pkg/errors"

	"github.com/ejrsimr/hal/halseg"
	"github.com/ejrsimr/hal/halstore"
)

// loadTree opens path read-only and resolves its genome tree via the root
// object registered at creation time. The returned *halstore.Store must be
// closed by the caller on the happy path only.
func loadTree(path string) (*halseg.Genome, *halstore.Store, error) {
	store, err := halstore.Open(path, halstore.ModeReadOnly, 0)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	root, err := halseg.LoadTree(store)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "load genome tree from %s", path)
	}
	return root, store, nil
}
