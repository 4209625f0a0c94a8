// Package halseg implements the segment model: the top/bottom segment
// tables that record, for every genome in a hierarchical alignment, the
// homologous intervals in its parent and children, plus the iterator
// abstraction that walks those tables across parent/child/paralog edges.
package halseg

import (
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// SegIndex indexes a row of a genome's top or bottom segment table.
// NullSeg marks the absence of a segment (no parent bottom segment, no
// paralogy partner, and so on).
type SegIndex int32

// NullSeg is the sentinel "no segment" index.
const NullSeg SegIndex = -1

// Sequence is a named, contiguous run of bases within a Genome's coordinate
// space.
type Sequence struct {
	Name          string
	Genome        *Genome
	StartInGenome int64 // offset of this sequence's base 0 within Genome's coordinate space
	length        int64
	bases         []byte // nil if this genome's bases were never materialized (e.g. an ancestral ungapped pseudo-genome)
}

// Len returns the length of the sequence in bases.
func (s *Sequence) Len() int64 { return s.length }

// Bases returns the substring [start, end) of the sequence, reverse-
// complemented if reversed is true. It is an error for the range to fall
// outside [0, Len()).
func (s *Sequence) Bases(start, end int64, reversed bool) (string, error) {
	if start < 0 || end > s.length || start > end {
		return "", errors.Errorf("halseg: %s: out-of-range slice [%d,%d) of length %d", s.Name, start, end, s.length)
	}
	if s.bases == nil {
		return "", errors.Errorf("halseg: %s: sequence bases not loaded", s.Name)
	}
	raw := s.bases[start:end]
	if !reversed {
		return string(raw), nil
	}
	out := make([]byte, len(raw))
	reverseComplementInto(out, raw)
	return string(out), nil
}

// Genome is a named node of the phylogenetic tree. A genome owns a sequence
// table and, unless it is a root, a top segment table describing its
// alignment to its parent; unless it is a leaf, a bottom segment table
// describing its alignment to each child.
type Genome struct {
	Name     string
	Parent   *Genome
	Children []*Genome

	// ParentBottomGenome == Parent; ChildIndex is this genome's position in
	// Parent.Children, used when resolving ChildSlot.ChildTop references
	// during toChild/toParent edge crossings.
	ChildIndex int

	Sequences      []*Sequence
	sequenceByName map[string]*Sequence

	Top    []TopSegment
	Bottom []BottomSegment

	// ChildSlots is the flat (numBottomSegments x len(Children)) array of
	// per-child parent-slots for Bottom, row-major: ChildSlots[i*len(Children)+c]
	// is the slot for Bottom[i]'s alignment to Children[c].
	ChildSlots []ChildSlot

	length int64 // total genome coordinate-space length (sum of sequence lengths)
}

// NewGenome creates an empty genome. Sequences and segment tables are
// populated by AddSequence / SetSegments before the genome is linked into a
// tree with AddChild.
func NewGenome(name string) *Genome {
	return &Genome{Name: name, sequenceByName: make(map[string]*Sequence)}
}

// AddChild links child under g, appending it to g.Children and recording
// child's ChildIndex.
func (g *Genome) AddChild(child *Genome) {
	child.Parent = g
	child.ChildIndex = len(g.Children)
	g.Children = append(g.Children, child)
}

// AddSequence appends a named sequence to g, placed immediately after the
// last-added sequence in g's coordinate space.
func (g *Genome) AddSequence(name string, bases []byte) *Sequence {
	seq := &Sequence{
		Name:          name,
		Genome:        g,
		StartInGenome: g.length,
		length:        int64(len(bases)),
		bases:         bases,
	}
	g.Sequences = append(g.Sequences, seq)
	g.sequenceByName[name] = seq
	g.length += seq.length
	return seq
}

// GetSequence returns the named sequence, or nil if g has no sequence by
// that name.
func (g *Genome) GetSequence(name string) *Sequence {
	return g.sequenceByName[name]
}

// SeqNames returns sequence names in the order they were added.
func (g *Genome) SeqNames() []string {
	names := make([]string, len(g.Sequences))
	for i, s := range g.Sequences {
		names[i] = s.Name
	}
	return names
}

// Length returns the genome's total coordinate-space length.
func (g *Genome) Length() int64 { return g.length }

// SequenceAt returns the sequence containing genome-global position pos,
// and pos's offset relative to that sequence's start.
func (g *Genome) SequenceAt(pos int64) (*Sequence, int64) {
	// Linear scan is fine: genomes have at most a few thousand sequences in
	// practice, and this is not called in the hot per-base loop.
	for _, s := range g.Sequences {
		if pos >= s.StartInGenome && pos < s.StartInGenome+s.length {
			return s, pos - s.StartInGenome
		}
	}
	return nil, 0
}

// ToGenomePos converts a (sequence name, local position) pair into g's
// genome-global coordinate space.
func (g *Genome) ToGenomePos(seqName string, pos int64) (int64, error) {
	seq := g.GetSequence(seqName)
	if seq == nil {
		return 0, errors.Errorf("halseg: unknown sequence %q in genome %q", seqName, g.Name)
	}
	if pos < 0 || pos > seq.length {
		return 0, errors.Errorf("halseg: position %d out of range for sequence %q (length %d)", pos, seqName, seq.length)
	}
	return seq.StartInGenome + pos, nil
}

// SetSegments installs top, bottom and child-slot tables built elsewhere
// (e.g. by a loader reading from halstore, or by tests constructing a
// genome by hand). Shape validation is minimal: a childSlots table of the
// wrong length is logged rather than panicked on.
func (g *Genome) SetSegments(top []TopSegment, bottom []BottomSegment, childSlots []ChildSlot) {
	if len(g.Children) > 0 && len(childSlots) != len(bottom)*len(g.Children) {
		log.Error.Printf("halseg: genome %q: childSlots length %d != bottom %d * children %d; rows past the end have no child slots",
			g.Name, len(childSlots), len(bottom), len(g.Children))
	}
	g.Top = top
	g.Bottom = bottom
	g.ChildSlots = childSlots
}

func childSlotsFor(g *Genome, bottomIdx SegIndex) []ChildSlot {
	n := len(g.Children)
	if n == 0 {
		return nil
	}
	start := int(bottomIdx) * n
	if start+n > len(g.ChildSlots) {
		return nil
	}
	return g.ChildSlots[start : start+n]
}
