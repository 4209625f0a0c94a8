package halseg

// TopSegment is an aligned interval in a genome whose homolog lies in its
// parent. Laid out as a fixed-size struct so a whole table can be addressed
// as a flat array directly over mapped-file bytes (see LoadTopSegments in
// mmap.go).
type TopSegment struct {
	Start        int64
	Length       int64
	ParentBottom SegIndex // index into Parent.Bottom, or NullSeg
	Reversed     bool
	NextParalogy SegIndex // next top segment in this genome's paralogy ring, or self if unique
	BottomParse  SegIndex // index into this genome's own Bottom table overlapping at this position, or NullSeg
}

// BottomSegment is an aligned interval in a genome whose homologs lie in
// each child genome. Per-child correspondences are stored out of line in
// Genome.ChildSlots (see childSlotsFor) since the number of children varies
// per genome and so can't be a fixed struct field.
type BottomSegment struct {
	Start    int64
	Length   int64
	TopParse SegIndex // index into this genome's own Top table overlapping at this position, or NullSeg
}

// ChildSlot is one BottomSegment's correspondence to a single child genome.
type ChildSlot struct {
	ChildTop SegIndex // index into the child's Top table, or NullSeg if this bottom segment has no aligned block in that child
	Reversed bool
}
