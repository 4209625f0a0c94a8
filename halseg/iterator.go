package halseg

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// EndOfSegment is the sentinel endOffset meaning "to the end of the
// segment's native length".
const EndOfSegment = math.MaxInt64

// TopIterator and BottomIterator are value types: a cursor pinning one
// segment index within one genome's table, a sub-interval (startOffset,
// endOffset) measured in bases in the cursor's traversal orientation (from
// the segment's native start when forward, from its native end when
// reversed), and a reversal flag. There is a single ownership model: copying a
// TopIterator/BottomIterator value produces an independent cursor, never a
// shared one.

// TopIterator walks a genome's top segment table.
type TopIterator struct {
	genome   *Genome
	index    SegIndex
	startOff int64
	endOff   int64
	reversed bool
}

// BottomIterator walks a genome's bottom segment table.
type BottomIterator struct {
	genome   *Genome
	index    SegIndex
	startOff int64
	endOff   int64
	reversed bool
}

// NewTopIterator returns an iterator over the whole extent of g.Top[index].
func NewTopIterator(g *Genome, index SegIndex) TopIterator {
	seg := g.Top[index]
	return TopIterator{genome: g, index: index, startOff: 0, endOff: seg.Length}
}

// NewBottomIterator returns an iterator over the whole extent of
// g.Bottom[index].
func NewBottomIterator(g *Genome, index SegIndex) BottomIterator {
	seg := g.Bottom[index]
	return BottomIterator{genome: g, index: index, startOff: 0, endOff: seg.Length}
}

// NewTopIteratorRange returns an iterator over g.Top[index], narrowed to
// the sub-interval [startOff, endOff) measured in the iterator's traversal
// orientation: from the segment's native start when forward, from its
// native end when reversed. Callers building a cross-edge sub-interval walk
// (the lift-over engine) use this in place of NewTopIterator's
// whole-segment default.
func NewTopIteratorRange(g *Genome, index SegIndex, startOff, endOff int64, reversed bool) TopIterator {
	return TopIterator{genome: g, index: index, startOff: startOff, endOff: endOff, reversed: reversed}
}

// NewBottomIteratorRange is NewTopIteratorRange's bottom-table counterpart.
func NewBottomIteratorRange(g *Genome, index SegIndex, startOff, endOff int64, reversed bool) BottomIterator {
	return BottomIterator{genome: g, index: index, startOff: startOff, endOff: endOff, reversed: reversed}
}

// FindTopIndex returns the index of the top segment covering genome-global
// position pos, via binary search over g.Top (sorted ascending by Start at
// construction time).
func FindTopIndex(g *Genome, pos int64) (SegIndex, bool) {
	n := len(g.Top)
	i := sort.Search(n, func(i int) bool { return g.Top[i].Start+g.Top[i].Length > pos })
	if i >= n || g.Top[i].Start > pos {
		return NullSeg, false
	}
	return SegIndex(i), true
}

// FindBottomIndex is FindTopIndex's bottom-table counterpart.
func FindBottomIndex(g *Genome, pos int64) (SegIndex, bool) {
	n := len(g.Bottom)
	i := sort.Search(n, func(i int) bool { return g.Bottom[i].Start+g.Bottom[i].Length > pos })
	if i >= n || g.Bottom[i].Start > pos {
		return NullSeg, false
	}
	return SegIndex(i), true
}

// Clone returns an independent copy of it; since TopIterator is a plain
// value type this is just an assignment, exposed for callers that want to
// make the copy explicit at a call site.
func (it TopIterator) Clone() TopIterator { return it }

// Clone is BottomIterator's Clone.
func (it BottomIterator) Clone() BottomIterator { return it }

func (it TopIterator) seg() TopSegment       { return it.genome.Top[it.index] }
func (it BottomIterator) seg() BottomSegment { return it.genome.Bottom[it.index] }

// GetLength returns endOffset - startOffset.
func (it TopIterator) GetLength() int64    { return clampEnd(it.endOff, it.seg().Length) - it.startOff }
func (it BottomIterator) GetLength() int64 { return clampEnd(it.endOff, it.seg().Length) - it.startOff }

func clampEnd(end, segLength int64) int64 {
	if end == EndOfSegment || end > segLength {
		return segLength
	}
	return end
}

// GetStartPosition returns the genome-global coordinate of the sub-interval
// start. Offsets are measured in the iterator's traversal orientation, so a
// reversed iterator's startOffset counts down from the segment's native high
// end; the returned coordinate is always the genome-forward low end.
func (it TopIterator) GetStartPosition() int64 {
	s := it.seg()
	if it.reversed {
		return s.Start + s.Length - clampEnd(it.endOff, s.Length)
	}
	return s.Start + it.startOff
}

// GetEndPosition returns the genome-global coordinate of the sub-interval
// end.
func (it TopIterator) GetEndPosition() int64 {
	s := it.seg()
	if it.reversed {
		return s.Start + s.Length - it.startOff
	}
	return s.Start + clampEnd(it.endOff, s.Length)
}

// GetStartPosition is BottomIterator's GetStartPosition.
func (it BottomIterator) GetStartPosition() int64 {
	s := it.seg()
	if it.reversed {
		return s.Start + s.Length - clampEnd(it.endOff, s.Length)
	}
	return s.Start + it.startOff
}

// GetEndPosition is BottomIterator's GetEndPosition.
func (it BottomIterator) GetEndPosition() int64 {
	s := it.seg()
	if it.reversed {
		return s.Start + s.Length - it.startOff
	}
	return s.Start + clampEnd(it.endOff, s.Length)
}

// GetReversed reports the iterator's effective traversal direction. It is a
// property of the cursor, not of the segment: a fresh iterator is forward
// regardless of how its segment aligns to the parent, and each tree-edge
// crossing XORs the edge's reversal flag in.
func (it TopIterator) GetReversed() bool    { return it.reversed }
func (it BottomIterator) GetReversed() bool { return it.reversed }

// GetSequence materializes the bases under the iterator's sub-interval,
// reverse-complemented if GetReversed() is true.
func (it TopIterator) GetSequence() (string, error) {
	seq, local := it.genome.SequenceAt(it.GetStartPosition())
	if seq == nil {
		return "", errors.Errorf("halseg: %s: no sequence at position %d", it.genome.Name, it.GetStartPosition())
	}
	return seq.Bases(local, local+it.GetLength(), it.GetReversed())
}

// GetSequence is BottomIterator's GetSequence.
func (it BottomIterator) GetSequence() (string, error) {
	seq, local := it.genome.SequenceAt(it.GetStartPosition())
	if seq == nil {
		return "", errors.Errorf("halseg: %s: no sequence at position %d", it.genome.Name, it.GetStartPosition())
	}
	return seq.Bases(local, local+it.GetLength(), it.GetReversed())
}

// ToRight advances to the next segment in coordinate order; a reversed
// iterator flips the effective direction, so ToRight on a reversed iterator
// moves to the lower-coordinate neighbor.
func (it TopIterator) ToRight() (TopIterator, bool) {
	if it.reversed {
		return it.stepLeft()
	}
	return it.stepRight()
}

// ToLeft is ToRight's mirror.
func (it TopIterator) ToLeft() (TopIterator, bool) {
	if it.reversed {
		return it.stepRight()
	}
	return it.stepLeft()
}

func (it TopIterator) stepRight() (TopIterator, bool) {
	if int(it.index)+1 >= len(it.genome.Top) {
		return TopIterator{}, false
	}
	return NewTopIterator(it.genome, it.index+1), true
}

func (it TopIterator) stepLeft() (TopIterator, bool) {
	if it.index <= 0 {
		return TopIterator{}, false
	}
	return NewTopIterator(it.genome, it.index-1), true
}

// ToRight is BottomIterator's ToRight.
func (it BottomIterator) ToRight() (BottomIterator, bool) {
	if it.reversed {
		return it.stepLeft()
	}
	return it.stepRight()
}

// ToLeft is BottomIterator's ToLeft.
func (it BottomIterator) ToLeft() (BottomIterator, bool) {
	if it.reversed {
		return it.stepRight()
	}
	return it.stepLeft()
}

func (it BottomIterator) stepRight() (BottomIterator, bool) {
	if int(it.index)+1 >= len(it.genome.Bottom) {
		return BottomIterator{}, false
	}
	return NewBottomIterator(it.genome, it.index+1), true
}

func (it BottomIterator) stepLeft() (BottomIterator, bool) {
	if it.index <= 0 {
		return BottomIterator{}, false
	}
	return NewBottomIterator(it.genome, it.index-1), true
}

// ToParent crosses the tree edge from a top segment to the corresponding
// bottom segment in the parent genome, preserving length and composing
// reversal via XOR with the segment's own reversed flag.
func (it TopIterator) ToParent() (BottomIterator, bool) {
	s := it.seg()
	if it.genome.Parent == nil || s.ParentBottom == NullSeg {
		return BottomIterator{}, false
	}
	parent := BottomIterator{
		genome:   it.genome.Parent,
		index:    s.ParentBottom,
		startOff: it.startOff,
		endOff:   it.endOff,
		reversed: it.reversed != s.Reversed,
	}
	return parent, true
}

// ToChild crosses the tree edge from a bottom segment to the corresponding
// top segment in child childIdx, if that bottom segment aligns there.
func (it BottomIterator) ToChild(childIdx int) (TopIterator, bool) {
	slots := childSlotsFor(it.genome, it.index)
	if childIdx < 0 || childIdx >= len(slots) {
		return TopIterator{}, false
	}
	slot := slots[childIdx]
	if slot.ChildTop == NullSeg {
		return TopIterator{}, false
	}
	if childIdx >= len(it.genome.Children) {
		return TopIterator{}, false
	}
	child := TopIterator{
		genome:   it.genome.Children[childIdx],
		index:    slot.ChildTop,
		startOff: it.startOff,
		endOff:   it.endOff,
		reversed: it.reversed != slot.Reversed,
	}
	return child, true
}

// ToParseDown moves from a top segment to the bottom segment of the same
// genome overlapping at the same position.
func (it TopIterator) ToParseDown() (BottomIterator, bool) {
	s := it.seg()
	if s.BottomParse == NullSeg {
		return BottomIterator{}, false
	}
	return BottomIterator{
		genome:   it.genome,
		index:    s.BottomParse,
		startOff: it.startOff,
		endOff:   it.endOff,
		reversed: it.reversed,
	}, true
}

// ToParseUp is ToParseDown's mirror: bottom segment to overlapping top
// segment in the same genome.
func (it BottomIterator) ToParseUp() (TopIterator, bool) {
	s := it.seg()
	if s.TopParse == NullSeg {
		return TopIterator{}, false
	}
	return TopIterator{
		genome:   it.genome,
		index:    s.TopParse,
		startOff: it.startOff,
		endOff:   it.endOff,
		reversed: it.reversed,
	}, true
}

// ToNextParalogy steps to the next top segment in this segment's paralogy
// ring. A segment with no duplicates is its own ring of one: NextParalogy
// points back to itself, so repeated stepping from any member returns to
// that member after walking the full ring.
func (it TopIterator) ToNextParalogy() (TopIterator, bool) {
	s := it.seg()
	if s.NextParalogy == NullSeg {
		return TopIterator{}, false
	}
	return TopIterator{
		genome:   it.genome,
		index:    s.NextParalogy,
		startOff: it.startOff,
		endOff:   it.endOff,
		reversed: it.reversed,
	}, true
}

// Genome exposes the genome an iterator is currently positioned in, needed
// by callers (the navigator, the lift-over engine) that walk across edges
// and must know which genome's name/sequences apply at each step.
func (it TopIterator) Genome() *Genome    { return it.genome }
func (it BottomIterator) Genome() *Genome { return it.genome }

// Index exposes the iterator's current segment index within its genome's
// table.
func (it TopIterator) Index() SegIndex    { return it.index }
func (it BottomIterator) Index() SegIndex { return it.index }
