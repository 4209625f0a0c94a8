package halseg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrsimr/hal/halseg"
)

// buildTwoGenomeTree builds a root genome with one child, wired so that:
//   - root.Bottom[0] aligns to child.Top[0] forward and root.Bottom[1] to
//     child.Top[1] reversed (one ChildSlot per bottom segment, since root
//     has a single child).
//   - each child top segment is its own one-member paralogy ring
//     (NextParalogy points back to itself), simulating a duplication-free
//     genome.
//   - root.Bottom[0].TopParse / root.Top[0].BottomParse cross-link the two
//     tables at the same position in root, for ToParseUp/ToParseDown.
func buildTwoGenomeTree() (*halseg.Genome, *halseg.Genome) {
	root := halseg.NewGenome("root")
	child := halseg.NewGenome("child")
	root.AddChild(child)

	root.AddSequence("rootChr", []byte("AAAACCCC"))
	child.AddSequence("childChr", []byte("AAAACCCC"))

	root.SetSegments(
		[]halseg.TopSegment{}, // root is the tree's root: no top table
		[]halseg.BottomSegment{
			{Start: 0, Length: 4, TopParse: halseg.NullSeg},
			{Start: 4, Length: 4, TopParse: halseg.NullSeg},
		},
		[]halseg.ChildSlot{
			{ChildTop: 0, Reversed: false},
			{ChildTop: 1, Reversed: true},
		},
	)

	child.SetSegments(
		[]halseg.TopSegment{
			{Start: 0, Length: 4, ParentBottom: 0, Reversed: false, NextParalogy: 0, BottomParse: halseg.NullSeg},
			{Start: 4, Length: 4, ParentBottom: 1, Reversed: true, NextParalogy: 1, BottomParse: halseg.NullSeg},
		},
		nil, nil,
	)

	return root, child
}

func TestToParentAndToChildPreserveLengthAndXORReversal(t *testing.T) {
	root, child := buildTwoGenomeTree()

	top := halseg.NewTopIterator(child, 0)
	bottom, ok := top.ToParent()
	require.True(t, ok)
	assert.Same(t, root, bottom.Genome())
	assert.Equal(t, halseg.SegIndex(0), bottom.Index())
	assert.Equal(t, top.GetLength(), bottom.GetLength())
	assert.False(t, bottom.GetReversed())

	topRev := halseg.NewTopIterator(child, 1)
	bottomRev, ok := topRev.ToParent()
	require.True(t, ok)
	assert.Equal(t, topRev.GetLength(), bottomRev.GetLength())
	assert.True(t, bottomRev.GetReversed(), "reversal must propagate by XOR across the tree edge")

	back, ok := bottom.ToChild(0)
	require.True(t, ok)
	assert.Same(t, child, back.Genome())
	assert.Equal(t, halseg.SegIndex(0), back.Index())
	assert.False(t, back.GetReversed())

	backRev, ok := bottomRev.ToChild(0)
	require.True(t, ok)
	assert.False(t, backRev.GetReversed(), "crossing back over the same reversed edge must XOR the reversal out again")
}

func TestToLeftToRightWalkCoordinateOrder(t *testing.T) {
	_, child := buildTwoGenomeTree()

	first := halseg.NewTopIterator(child, 0)
	second, ok := first.ToRight()
	require.True(t, ok)
	assert.Equal(t, halseg.SegIndex(1), second.Index())

	_, ok = second.ToRight()
	assert.False(t, ok, "walking past the last segment must fail")

	back, ok := second.ToLeft()
	require.True(t, ok)
	assert.Equal(t, halseg.SegIndex(0), back.Index())

	_, ok = back.ToLeft()
	assert.False(t, ok, "walking before the first segment must fail")
}

func TestToNextParalogyIsACycle(t *testing.T) {
	_, child := buildTwoGenomeTree()

	it := halseg.NewTopIterator(child, 0)
	next, ok := it.ToNextParalogy()
	require.True(t, ok, "a segment with no duplicates is a ring of one")
	assert.Equal(t, it.Index(), next.Index())
}

func TestToParseUpAndDownCrossTablesAtSamePosition(t *testing.T) {
	root, _ := buildTwoGenomeTree()
	root.Top = []halseg.TopSegment{
		{Start: 0, Length: 4, ParentBottom: halseg.NullSeg, NextParalogy: halseg.NullSeg, BottomParse: 0},
	}
	root.Bottom[0].TopParse = 0

	top := halseg.NewTopIterator(root, 0)
	bottom, ok := top.ToParseDown()
	require.True(t, ok)
	assert.Equal(t, halseg.SegIndex(0), bottom.Index())

	backUp, ok := bottom.ToParseUp()
	require.True(t, ok)
	assert.Equal(t, halseg.SegIndex(0), backUp.Index())
}

func TestSubIntervalDefaultsToWholeSegment(t *testing.T) {
	_, child := buildTwoGenomeTree()
	it := halseg.NewTopIterator(child, 0)
	assert.Equal(t, int64(4), it.GetLength())
	assert.Equal(t, int64(0), it.GetStartPosition())
	assert.Equal(t, int64(4), it.GetEndPosition())
}
