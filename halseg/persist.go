package halseg

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/ejrsimr/hal/halstore"
)

// The on-disk genome tree is a straightforward recursive encoding of Genome
// built entirely out of halstore.Store.Alloc/ToPtr calls: every variable-
// length array (names, bases, segment tables, child offsets) gets its own
// allocation, and a fixed-size diskGenome record ties them together by
// offset. The layout below the store header is private to this package;
// callers depend only on SaveTree/LoadTree.

type diskSeq struct {
	NameOff       halstore.Offset
	NameLen       int64
	BasesOff      halstore.Offset
	BasesLen      int64
	StartInGenome int64
}

type diskGenome struct {
	NameOff halstore.Offset
	NameLen int64

	SeqsOff halstore.Offset
	NumSeqs int64

	TopOff    halstore.Offset
	NumTop    int64
	BottomOff halstore.Offset
	NumBottom int64

	ChildSlotsOff halstore.Offset
	NumChildSlots int64

	ChildrenOff halstore.Offset // array of diskGenome offsets (halstore.Offset each)
	NumChildren int64
}

func allocBytes(s *halstore.Store, data []byte) (halstore.Offset, error) {
	if len(data) == 0 {
		return halstore.NullOffset, nil
	}
	off, err := s.Alloc(uint64(len(data)), false)
	if err != nil {
		return 0, err
	}
	ptr, err := s.ToPtr(off, uint64(len(data)))
	if err != nil {
		return 0, err
	}
	copy(unsafe.Slice((*byte)(ptr), len(data)), data)
	return off, nil
}

func loadBytes(s *halstore.Store, off halstore.Offset, n int64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	ptr, err := s.ToPtr(off, uint64(n))
	if err != nil {
		return nil, err
	}
	// Copy out rather than returning a mapped-memory slice directly, so
	// names and bases stay valid after a later Close/remap. (Segment tables,
	// loaded by LoadTopSegments and its counterparts, do alias the mapping.)
	raw := unsafe.Slice((*byte)(ptr), n)
	out := make([]byte, n)
	copy(out, raw)
	return out, nil
}

func allocOffsets(s *halstore.Store, offs []halstore.Offset) (halstore.Offset, error) {
	if len(offs) == 0 {
		return halstore.NullOffset, nil
	}
	sz := uint64(len(offs)) * uint64(unsafe.Sizeof(offs[0]))
	off, err := s.Alloc(sz, false)
	if err != nil {
		return 0, err
	}
	ptr, err := s.ToPtr(off, sz)
	if err != nil {
		return 0, err
	}
	copy(unsafe.Slice((*halstore.Offset)(ptr), len(offs)), offs)
	return off, nil
}

func loadOffsets(s *halstore.Store, off halstore.Offset, n int64) ([]halstore.Offset, error) {
	if n == 0 {
		return nil, nil
	}
	var zero halstore.Offset
	ptr, err := s.ToPtr(off, uint64(n)*uint64(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	raw := unsafe.Slice((*halstore.Offset)(ptr), n)
	out := make([]halstore.Offset, n)
	copy(out, raw)
	return out, nil
}

// SaveTree persists the genome tree rooted at root into s, registering the
// root genome's offset via Store.Alloc(isRoot=true), and returns that
// offset. s must be write-mode and have enough remaining capacity for the
// whole tree, or the first allocation that would overrun the file fails
// with halstore.ErrCapacityExceeded.
func SaveTree(s *halstore.Store, root *Genome) (halstore.Offset, error) {
	return saveGenome(s, root, true)
}

func saveGenome(s *halstore.Store, g *Genome, isRoot bool) (halstore.Offset, error) {
	nameOff, err := allocBytes(s, []byte(g.Name))
	if err != nil {
		return 0, err
	}

	seqBufs := make([]diskSeq, len(g.Sequences))
	for i, seq := range g.Sequences {
		sNameOff, err := allocBytes(s, []byte(seq.Name))
		if err != nil {
			return 0, err
		}
		basesOff, err := allocBytes(s, seq.bases)
		if err != nil {
			return 0, err
		}
		seqBufs[i] = diskSeq{
			NameOff: sNameOff, NameLen: int64(len(seq.Name)),
			BasesOff: basesOff, BasesLen: int64(len(seq.bases)),
			StartInGenome: seq.StartInGenome,
		}
	}
	var seqsOff halstore.Offset
	if len(seqBufs) > 0 {
		sz := uint64(len(seqBufs)) * uint64(unsafe.Sizeof(seqBufs[0]))
		off, err := s.Alloc(sz, false)
		if err != nil {
			return 0, err
		}
		ptr, err := s.ToPtr(off, sz)
		if err != nil {
			return 0, err
		}
		copy(unsafe.Slice((*diskSeq)(ptr), len(seqBufs)), seqBufs)
		seqsOff = off
	}

	topOff, err := AllocTopSegments(s, g.Top)
	if err != nil {
		return 0, err
	}
	bottomOff, err := AllocBottomSegments(s, g.Bottom)
	if err != nil {
		return 0, err
	}
	slotsOff, err := AllocChildSlots(s, g.ChildSlots)
	if err != nil {
		return 0, err
	}

	childOffs := make([]halstore.Offset, len(g.Children))
	for i, c := range g.Children {
		co, err := saveGenome(s, c, false)
		if err != nil {
			return 0, err
		}
		childOffs[i] = co
	}
	childrenOff, err := allocOffsets(s, childOffs)
	if err != nil {
		return 0, err
	}

	dg := diskGenome{
		NameOff: nameOff, NameLen: int64(len(g.Name)),
		SeqsOff: seqsOff, NumSeqs: int64(len(seqBufs)),
		TopOff: topOff, NumTop: int64(len(g.Top)),
		BottomOff: bottomOff, NumBottom: int64(len(g.Bottom)),
		ChildSlotsOff: slotsOff, NumChildSlots: int64(len(g.ChildSlots)),
		ChildrenOff: childrenOff, NumChildren: int64(len(childOffs)),
	}
	ref, err := halstore.AllocValue(s, dg, isRoot)
	if err != nil {
		return 0, err
	}
	return ref.Offset(), nil
}

// LoadTree resolves the genome tree rooted at s.RootOffset() and returns its
// root Genome, rebuilt as live in-memory values (Genome.Sequences'
// Sequence.bases reference freshly-copied slices, not the mapping itself;
// see loadBytes). The Top, Bottom and ChildSlots tables are backed directly
// by the mapping and are valid only while s stays open.
func LoadTree(s *halstore.Store) (*Genome, error) {
	return loadGenome(s, s.RootOffset(), nil, 0)
}

func loadGenome(s *halstore.Store, off halstore.Offset, parent *Genome, childIndex int) (*Genome, error) {
	dg, err := halstore.Resolve(s, halstore.RefOf[diskGenome](off))
	if err != nil {
		return nil, errors.Wrap(err, "halseg: LoadTree: genome record")
	}
	nameBytes, err := loadBytes(s, dg.NameOff, dg.NameLen)
	if err != nil {
		return nil, err
	}
	g := &Genome{Name: string(nameBytes), Parent: parent, ChildIndex: childIndex, sequenceByName: make(map[string]*Sequence)}

	if dg.NumSeqs > 0 {
		sz := uint64(dg.NumSeqs) * uint64(unsafe.Sizeof(diskSeq{}))
		ptr, err := s.ToPtr(dg.SeqsOff, sz)
		if err != nil {
			return nil, err
		}
		diskSeqs := unsafe.Slice((*diskSeq)(ptr), int(dg.NumSeqs))
		for _, ds := range diskSeqs {
			nb, err := loadBytes(s, ds.NameOff, ds.NameLen)
			if err != nil {
				return nil, err
			}
			bases, err := loadBytes(s, ds.BasesOff, ds.BasesLen)
			if err != nil {
				return nil, err
			}
			seq := &Sequence{
				Name: string(nb), Genome: g, StartInGenome: ds.StartInGenome,
				length: ds.BasesLen, bases: bases,
			}
			g.Sequences = append(g.Sequences, seq)
			g.sequenceByName[seq.Name] = seq
			if end := seq.StartInGenome + seq.length; end > g.length {
				g.length = end
			}
		}
	}

	top, err := LoadTopSegments(s, dg.TopOff, int(dg.NumTop))
	if err != nil {
		return nil, err
	}
	bottom, err := LoadBottomSegments(s, dg.BottomOff, int(dg.NumBottom))
	if err != nil {
		return nil, err
	}
	slots, err := LoadChildSlots(s, dg.ChildSlotsOff, int(dg.NumChildSlots))
	if err != nil {
		return nil, err
	}
	g.Top, g.Bottom, g.ChildSlots = top, bottom, slots

	childOffs, err := loadOffsets(s, dg.ChildrenOff, dg.NumChildren)
	if err != nil {
		return nil, err
	}
	for i, co := range childOffs {
		child, err := loadGenome(s, co, g, i)
		if err != nil {
			return nil, err
		}
		g.Children = append(g.Children, child)
	}
	return g, nil
}
