package liftover_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ejrsimr/hal/halnav"
	"github.com/ejrsimr/hal/halseg"
	"github.com/ejrsimr/hal/liftover"
)

// identityTree builds a single genome with one chromosome, for lifts where
// src == tgt.
func identityTree() *halseg.Genome {
	g := halseg.NewGenome("human")
	g.AddSequence("chr1", make([]byte, 1000))
	return g
}

func TestScalarLiftOverIdentityAlignment(t *testing.T) {
	g := identityTree()
	nav := halnav.New(g)
	engine := liftover.New(nav)

	in := []*liftover.Record{{Chrom: "chr1", Start: 100, End: 200, Strand: liftover.StrandPlus, BedType: 3}}
	out, err := engine.Convert(g, g, in, liftover.Options{BedType: 3})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "chr1", out[0].Chrom)
	assert.Equal(t, int64(100), out[0].Start)
	assert.Equal(t, int64(200), out[0].End)
	assert.Equal(t, liftover.StrandPlus, out[0].Strand)
	assert.Equal(t, 3, out[0].BedType, "a scalar record keeps its input type through the lift")
	assert.Equal(t, int64(100), out[0].SrcStart)
}

// reverseEdgeTree builds root/child where child's top segment is reversed
// relative to its parent, for scenario 2.
func reverseEdgeTree() (root, child *halseg.Genome) {
	root = halseg.NewGenome("root")
	child = halseg.NewGenome("child")
	root.AddChild(child)

	root.AddSequence("rootChr", make([]byte, 300))
	child.AddSequence("chr1", make([]byte, 300))

	root.SetSegments(nil,
		[]halseg.BottomSegment{{Start: 0, Length: 300, TopParse: halseg.NullSeg}},
		[]halseg.ChildSlot{{ChildTop: 0, Reversed: true}},
	)
	child.SetSegments(
		[]halseg.TopSegment{{Start: 0, Length: 300, ParentBottom: 0, Reversed: true, NextParalogy: 0, BottomParse: halseg.NullSeg}},
		nil, nil,
	)
	return
}

func TestBlockedLiftAcrossReverseEdge(t *testing.T) {
	root, child := reverseEdgeTree()
	nav := halnav.New(root)
	engine := liftover.New(nav)

	in := []*liftover.Record{{
		Chrom: "chr1", Start: 100, End: 200, Name: "name", Strand: liftover.StrandPlus, BedType: 12,
		Blocks: []liftover.Block{{Start: 0, Length: 30}, {Start: 70, Length: 30}},
	}}
	out, err := engine.Convert(child, root, in, liftover.Options{BedType: 12})
	require.NoError(t, err)
	require.Len(t, out, 1)
	rec := out[0]
	assert.Equal(t, liftover.StrandMinus, rec.Strand)
	require.Len(t, rec.Blocks, 2)
	// Under the reverse edge, the block originally at source-relative 70
	// maps to the lower target coordinate and must sort first after
	// flipBlocks enforces ascending order.
	assert.Less(t, rec.Blocks[0].Start, rec.Blocks[1].Start)
}

func TestMissingChromosomeWarnsOnceAndSkips(t *testing.T) {
	g := identityTree()
	nav := halnav.New(g)
	engine := liftover.New(nav)

	in := []*liftover.Record{
		{Chrom: "chrX", Start: 0, End: 10, BedType: 3},
		{Chrom: "chrX", Start: 20, End: 30, BedType: 3},
	}
	out, err := engine.Convert(g, g, in, liftover.Options{BedType: 3})
	require.NoError(t, err)
	assert.Empty(t, out)
}

// siblingTree builds root with two children so lifts descend into the
// target: src aligns forward into root, and root's interval aligns into tgt
// either reversed (reversedTgt) or forward, with tgt optionally carrying a
// second paralogous copy of the same root interval.
func siblingTree(reversedTgt, paralogousTgt bool) (root, src, tgt *halseg.Genome) {
	root = halseg.NewGenome("root")
	src = halseg.NewGenome("src")
	tgt = halseg.NewGenome("tgt")
	root.AddChild(src)
	root.AddChild(tgt)

	root.AddSequence("rootChr", make([]byte, 100))
	src.AddSequence("chr1", make([]byte, 100))
	tgt.AddSequence("chrA", make([]byte, 200))

	root.SetSegments(nil,
		[]halseg.BottomSegment{{Start: 0, Length: 100, TopParse: halseg.NullSeg}},
		[]halseg.ChildSlot{
			{ChildTop: 0},
			{ChildTop: 0, Reversed: reversedTgt},
		},
	)
	src.SetSegments(
		[]halseg.TopSegment{{Start: 0, Length: 100, ParentBottom: 0, NextParalogy: 0, BottomParse: halseg.NullSeg}},
		nil, nil,
	)
	if paralogousTgt {
		tgt.SetSegments(
			[]halseg.TopSegment{
				{Start: 0, Length: 100, ParentBottom: 0, Reversed: reversedTgt, NextParalogy: 1, BottomParse: halseg.NullSeg},
				{Start: 100, Length: 100, ParentBottom: 0, Reversed: reversedTgt, NextParalogy: 0, BottomParse: halseg.NullSeg},
			},
			nil, nil,
		)
	} else {
		tgt.SetSegments(
			[]halseg.TopSegment{{Start: 0, Length: 100, ParentBottom: 0, Reversed: reversedTgt, NextParalogy: 0, BottomParse: halseg.NullSeg}},
			nil, nil,
		)
	}
	return
}

func TestScalarLiftDescendsAcrossReverseEdge(t *testing.T) {
	root, src, tgt := siblingTree(true, false)
	nav := halnav.New(root)
	engine := liftover.New(nav)

	in := []*liftover.Record{{Chrom: "chr1", Start: 10, End: 40, Strand: liftover.StrandPlus, BedType: 3}}
	out, err := engine.Convert(src, tgt, in, liftover.Options{BedType: 3})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "chrA", out[0].Chrom)
	assert.Equal(t, int64(60), out[0].Start, "a reversed edge maps the parent interval onto the target's mirrored coordinates")
	assert.Equal(t, int64(90), out[0].End)
	assert.Equal(t, liftover.StrandMinus, out[0].Strand)
	assert.Equal(t, int64(10), out[0].SrcStart)
}

func TestTraverseDupesEmitsParalogousProjections(t *testing.T) {
	root, src, tgt := siblingTree(false, true)
	nav := halnav.New(root)

	in := []*liftover.Record{{Chrom: "chr1", Start: 10, End: 40, Strand: liftover.StrandPlus, BedType: 3}}

	withDupes, err := liftover.New(nav).Convert(src, tgt, in, liftover.Options{BedType: 3, TraverseDupes: true})
	require.NoError(t, err)
	require.Len(t, withDupes, 2, "both paralogy-ring members in the target must project")
	assert.Equal(t, int64(10), withDupes[0].Start)
	assert.Equal(t, int64(110), withDupes[1].Start)

	withoutDupes, err := liftover.New(nav).Convert(src, tgt, in, liftover.Options{BedType: 3})
	require.NoError(t, err)
	require.Len(t, withoutDupes, 1, "without traverseDupes only the direct child slot projects")
	assert.Equal(t, int64(10), withoutDupes[0].Start)
}

// insertGapTree builds root/child where the child's two top segments map to
// two root bottom segments separated by a 5bp unaligned gap in root (an
// insertion relative to child), so a blocked record spanning both abuts in
// source/query coordinates but has a 5bp target-side gap.
func insertGapTree() (root, child *halseg.Genome) {
	root = halseg.NewGenome("root")
	child = halseg.NewGenome("child")
	root.AddChild(child)

	root.AddSequence("rootChr", make([]byte, 100))
	child.AddSequence("chr1", make([]byte, 65))

	root.SetSegments(nil,
		[]halseg.BottomSegment{
			{Start: 0, Length: 30, TopParse: halseg.NullSeg},
			{Start: 35, Length: 35, TopParse: halseg.NullSeg},
		},
		[]halseg.ChildSlot{{ChildTop: 0}, {ChildTop: 1}},
	)
	child.SetSegments(
		[]halseg.TopSegment{
			{Start: 0, Length: 30, ParentBottom: 0, NextParalogy: 0, BottomParse: halseg.NullSeg},
			{Start: 30, Length: 35, ParentBottom: 1, NextParalogy: 1, BottomParse: halseg.NullSeg},
		},
		nil, nil,
	)
	return
}

func TestPSLInsertCounting(t *testing.T) {
	root, child := insertGapTree()
	nav := halnav.New(root)
	engine := liftover.New(nav)

	in := []*liftover.Record{{
		Chrom: "chr1", Start: 0, End: 65, Strand: liftover.StrandPlus, BedType: 12,
		Blocks: []liftover.Block{{Start: 0, Length: 30}, {Start: 30, Length: 35}},
	}}
	out, err := engine.Convert(child, root, in, liftover.Options{BedType: 12, OutPSL: true})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].PSL)
	assert.Equal(t, int64(1), out[0].PSL.TNumInsert)
	assert.Equal(t, int64(5), out[0].PSL.TBaseInsert)
	assert.Equal(t, int64(0), out[0].PSL.QNumInsert)
	assert.Equal(t, int64(0), out[0].PSL.QBaseInsert)
}
