package liftover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAssignBlocksDuplicateFiltering exercises assignBlocksToIntervals
// directly: two mapped pieces whose source ranges
// overlap by 10bp, but whose target ranges are compatible (monotonic,
// non-overlapping). Structured output must keep them as two records;
// interval-only output must merge them onto one line.
func TestAssignBlocksDuplicateFiltering(t *testing.T) {
	mapped := []mappedPiece{
		{SrcStart: 100, SrcEnd: 150, TgtChrom: "chr2", TgtStart: 100, TgtEnd: 150, Strand: StrandPlus},
		{SrcStart: 140, SrcEnd: 190, TgtChrom: "chr2", TgtStart: 150, TgtEnd: 200, Strand: StrandPlus},
	}

	structured := assignBlocksToIntervals(mapped, StrandPlus, true)
	assert.Len(t, structured, 2, "structured output must keep overlapping-source duplicates as separate records")

	merged := assignBlocksToIntervals(mapped, StrandPlus, false)
	require.Len(t, merged, 1, "interval-only output must merge compatible duplicates onto one line")
	assert.Len(t, merged[0].Blocks, 2)
}

func TestCompatibleRejectsDifferentChromAndStrand(t *testing.T) {
	cur := &building{chrom: "chr1", strand: StrandPlus, blocks: []Block{{Start: 0, Length: 50}}, blockSrc: []int64{0}}

	assert.False(t, compatible(cur, 0, mappedPiece{SrcStart: 60, TgtChrom: "chr1", TgtStart: 50, TgtEnd: 100, Strand: StrandMinus}, StrandPlus))
	assert.False(t, compatible(cur, 0, mappedPiece{SrcStart: 60, TgtChrom: "chr2", TgtStart: 50, TgtEnd: 100, Strand: StrandPlus}, StrandPlus))
	assert.False(t, compatible(cur, 0, mappedPiece{SrcStart: 0, TgtChrom: "chr1", TgtStart: 50, TgtEnd: 100, Strand: StrandPlus}, StrandPlus), "equal srcStart must not be appendable")
	assert.True(t, compatible(cur, 0, mappedPiece{SrcStart: 60, TgtChrom: "chr1", TgtStart: 50, TgtEnd: 100, Strand: StrandPlus}, StrandPlus))
}

func TestFlipBlocksReversesQueryStarts(t *testing.T) {
	rec := &Record{
		Strand: StrandMinus,
		Blocks: []Block{{Start: 0, Length: 10}, {Start: 20, Length: 10}},
		PSL:    &PSLInfo{QBlockStarts: []int64{0, 20}},
	}
	flipBlocks(rec, true)
	assert.Equal(t, []Block{{Start: 20, Length: 10}, {Start: 0, Length: 10}}, rec.Blocks)
	assert.Equal(t, []int64{20, 0}, rec.PSL.QBlockStarts)
}
