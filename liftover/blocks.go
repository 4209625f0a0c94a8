package liftover

import (
	"encoding/binary"
	"sort"

	farm "github.com/dgryski/go-farm"
	"github.com/pkg/errors"

	"github.com/ejrsimr/hal/halnav"
	"github.com/ejrsimr/hal/halseg"
)

// mappedPiece is one non-overlapping target-side piece produced by
// liftInterval, carrying its complete source-to-target correspondence.
type mappedPiece struct {
	SrcStart, SrcEnd int64
	TgtChrom         string
	TgtStart, TgtEnd int64
	Strand           Strand
}

// frontierPiece is liftInterval's internal tree-walk cursor: a sub-interval
// in the genome currently being visited, plus the literal source-genome
// sub-range it corresponds to and the cumulative reversal relative to the
// original source orientation. Every tree-edge crossing is length
// preserving, so srcStart/srcEnd only ever need re-clipping, never
// re-deriving, as the walk advances.
type frontierPiece struct {
	genome           *halseg.Genome
	start, end       int64
	reversed         bool
	srcStart, srcEnd int64
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// clipSrc narrows p's source sub-range to the portion corresponding to the
// current-genome sub-range [a, b), honoring p's cumulative orientation.
func clipSrc(p frontierPiece, a, b int64) (int64, int64) {
	offA := a - p.start
	offB := b - p.start
	if !p.reversed {
		return p.srcStart + offA, p.srcStart + offB
	}
	return p.srcEnd - offB, p.srcEnd - offA
}

// paralogyRing returns every top-segment index in g's NextParalogy ring
// starting at idx, including idx itself. Bounded by the table size so a
// malformed (non-cyclic) ring can never spin forever.
func paralogyRing(g *halseg.Genome, idx halseg.SegIndex) []halseg.SegIndex {
	members := []halseg.SegIndex{idx}
	it := halseg.NewTopIterator(g, idx)
	for i := 0; i < len(g.Top); i++ {
		next, ok := it.ToNextParalogy()
		if !ok || next.Index() == idx {
			break
		}
		members = append(members, next.Index())
		it = next
	}
	return members
}

// localRange converts the genome-forward sub-range [pos, clipEnd) of a
// segment [segStart, segStart+segLen) into iterator offsets in p's traversal
// orientation: forward cursors count from the segment's native start,
// reversed cursors from its native end.
func localRange(p frontierPiece, segStart, segLen, pos, clipEnd int64) (int64, int64) {
	if p.reversed {
		return segStart + segLen - clipEnd, segStart + segLen - pos
	}
	return pos - segStart, clipEnd - segStart
}

// ascend walks p across its genome's top segment table, crossing each
// covering segment's parent edge. Paralogy rings are not followed here: a
// source position's homolog in the parent is the same for every member of
// its ring, so projecting through the covering segment alone is complete.
func ascend(p frontierPiece) []frontierPiece {
	var out []frontierPiece
	pos := p.start
	for pos < p.end {
		idx, ok := halseg.FindTopIndex(p.genome, pos)
		if !ok {
			break
		}
		seg := p.genome.Top[idx]
		clipEnd := minInt64(p.end, seg.Start+seg.Length)
		localStart, localEnd := localRange(p, seg.Start, seg.Length, pos, clipEnd)
		srcA, srcB := clipSrc(p, pos, clipEnd)

		it := halseg.NewTopIteratorRange(p.genome, idx, localStart, localEnd, p.reversed)
		if parentIt, ok := it.ToParent(); ok {
			out = append(out, frontierPiece{
				genome:   parentIt.Genome(),
				start:    parentIt.GetStartPosition(),
				end:      parentIt.GetEndPosition(),
				reversed: parentIt.GetReversed(),
				srcStart: srcA,
				srcEnd:   srcB,
			})
		}
		pos = clipEnd
	}
	return out
}

// descend is ascend's mirror over the bottom segment table, crossing into
// child childIdx. When traverseDupes is set, every member of the landed-on
// top segment's paralogy ring contributes its own piece: the ring links the
// child genome's duplicated copies of the same parent interval, so each
// member is an additional homologous location in the genome being descended
// into.
func descend(p frontierPiece, childIdx int, traverseDupes bool) []frontierPiece {
	var out []frontierPiece
	pos := p.start
	for pos < p.end {
		idx, ok := halseg.FindBottomIndex(p.genome, pos)
		if !ok {
			break
		}
		seg := p.genome.Bottom[idx]
		clipEnd := minInt64(p.end, seg.Start+seg.Length)
		localStart, localEnd := localRange(p, seg.Start, seg.Length, pos, clipEnd)
		srcA, srcB := clipSrc(p, pos, clipEnd)

		it := halseg.NewBottomIteratorRange(p.genome, idx, localStart, localEnd, p.reversed)
		if childIt, ok := it.ToChild(childIdx); ok {
			members := []halseg.SegIndex{childIt.Index()}
			if traverseDupes {
				members = paralogyRing(childIt.Genome(), childIt.Index())
			}
			for _, mi := range members {
				mIt := childIt
				if mi != childIt.Index() {
					mSeg := childIt.Genome().Top[mi]
					if localEnd > mSeg.Length {
						continue
					}
					mIt = halseg.NewTopIteratorRange(childIt.Genome(), mi, localStart, localEnd, p.reversed != mSeg.Reversed)
				}
				out = append(out, frontierPiece{
					genome:   mIt.Genome(),
					start:    mIt.GetStartPosition(),
					end:      mIt.GetEndPosition(),
					reversed: mIt.GetReversed(),
					srcStart: srcA,
					srcEnd:   srcB,
				})
			}
		}
		pos = clipEnd
	}
	return out
}

// liftInterval projects [localStart, localEnd) on srcSeq (a sequence of
// srcGenome) onto tgtGenome, honoring traverseDupes and coalescenceLimit.
// Returns the list of non-overlapping target-side pieces.
func liftInterval(
	nav *halnav.Navigator,
	srcGenome *halseg.Genome,
	srcSeq *halseg.Sequence,
	localStart, localEnd int64,
	srcStrand Strand,
	tgtGenome *halseg.Genome,
	traverseDupes bool,
	coalescenceLimit *halseg.Genome,
) ([]mappedPiece, error) {
	gStart := srcSeq.StartInGenome + localStart
	gEnd := srcSeq.StartInGenome + localEnd

	// Identity: no tree walk unless an explicit coalescence limit forces an
	// ascent (lifting a genome onto itself through an ancestor is how
	// within-genome paralogs are found).
	if srcGenome == tgtGenome && (coalescenceLimit == nil || coalescenceLimit == srcGenome) {
		return []mappedPiece{{
			SrcStart: gStart - srcSeq.StartInGenome,
			SrcEnd:   gEnd - srcSeq.StartInGenome,
			TgtChrom: srcSeq.Name,
			TgtStart: localStart,
			TgtEnd:   localEnd,
			Strand:   xorStrand(srcStrand, false),
		}}, nil
	}

	via := coalescenceLimit
	if via == nil {
		via = nav.LcaOf(srcGenome, tgtGenome)
	}
	path := nav.PathVia(srcGenome, via, tgtGenome)
	if len(path) == 0 {
		return nil, errors.Errorf("liftover: no tree path from %q to %q", srcGenome.Name, tgtGenome.Name)
	}

	frontier := []frontierPiece{{genome: srcGenome, start: gStart, end: gEnd, reversed: false, srcStart: gStart, srcEnd: gEnd}}
	for i := 0; i < len(path)-1 && len(frontier) > 0; i++ {
		from, to := path[i], path[i+1]
		var next []frontierPiece
		if to == from.Parent {
			for _, p := range frontier {
				next = append(next, ascend(p)...)
			}
		} else {
			next = append(next, descendAll(frontier, to.ChildIndex, traverseDupes)...)
		}
		frontier = next
	}

	var out []mappedPiece
	for _, p := range frontier {
		if p.genome != tgtGenome {
			continue
		}
		seq, local := tgtGenome.SequenceAt(p.start)
		if seq == nil {
			continue
		}
		out = append(out, mappedPiece{
			SrcStart: p.srcStart - srcSeq.StartInGenome,
			SrcEnd:   p.srcEnd - srcSeq.StartInGenome,
			TgtChrom: seq.Name,
			TgtStart: local,
			TgtEnd:   local + (p.end - p.start),
			Strand:   xorStrand(srcStrand, p.reversed),
		})
	}
	return out, nil
}

func descendAll(frontier []frontierPiece, childIdx int, traverseDupes bool) []frontierPiece {
	var out []frontierPiece
	for _, p := range frontier {
		out = append(out, descend(p, childIdx, traverseDupes)...)
	}
	return out
}

// liftBlockIntervals lifts every block of a blocked record independently,
// narrowing the window to each block's [start, start+length) in turn, and
// flattens the results into one mappedPiece list for
// assignBlocksToIntervals.
func liftBlockIntervals(
	nav *halnav.Navigator,
	srcGenome *halseg.Genome,
	srcSeq *halseg.Sequence,
	recStart int64,
	blocks []Block,
	srcStrand Strand,
	tgtGenome *halseg.Genome,
	traverseDupes bool,
	coalescenceLimit *halseg.Genome,
) ([]mappedPiece, error) {
	var all []mappedPiece
	for _, b := range blocks {
		pieces, err := liftInterval(nav, srcGenome, srcSeq, recStart+b.Start, recStart+b.Start+b.Length, srcStrand, tgtGenome, traverseDupes, coalescenceLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, pieces...)
	}
	return all, nil
}

// building is an output record under construction during
// assignBlocksToIntervals: positions stay absolute (target genome,
// chromosome-local) until the final relativization pass.
type building struct {
	chrom    string
	strand   Strand
	start    int64
	end      int64
	blocks   []Block
	blockSrc []int64
}

func overlaps(aStart, aEnd, bStart, bEnd int64) bool {
	return aStart < bEnd && bStart < aEnd
}

// fingerprint hashes a mappedPiece's full coordinate tuple with farm.Hash64,
// the same fast-fingerprint approach a coalescence-limited tree walk needs
// when a single duplication is reachable via more than one paralogy path:
// both paths land on byte-identical pieces, and comparing 64-bit hashes in
// a map beats repeated struct comparison across every other piece.
func fingerprint(m mappedPiece) uint64 {
	buf := make([]byte, 33+len(m.TgtChrom))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(m.SrcStart))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(m.SrcEnd))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(m.TgtStart))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(m.TgtEnd))
	buf[32] = byte(m.Strand)
	copy(buf[33:], m.TgtChrom)
	return farm.Hash64(buf)
}

// dedupeExact collapses mappedPieces that are byte-identical in every field
// (not merely overlapping): a duplication reachable from the source via two
// distinct paralogy-ring paths that happen to coalesce onto the same target
// range produces the same piece twice, and that's a tree-walk artifact, not
// a real duplicate alignment for assignBlocksToIntervals's isDup logic to
// reason about.
func dedupeExact(mapped []mappedPiece) []mappedPiece {
	if len(mapped) < 2 {
		return mapped
	}
	seen := make(map[uint64]struct{}, len(mapped))
	out := mapped[:0:0]
	for _, m := range mapped {
		h := fingerprint(m)
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, m)
	}
	return out
}

// compatible reports whether mappedPiece m can be merged onto the block
// currently under construction in cur: same strand and target chromosome,
// strictly increasing source start, and a non-negative target-side gap
// from the last block (oriented by whether cur's strand matches the
// record's source strand).
func compatible(cur *building, lastSrcStart int64, m mappedPiece, recSrcStrand Strand) bool {
	if cur.strand != m.Strand {
		return false
	}
	if m.SrcStart <= lastSrcStart {
		return false
	}
	last := cur.blocks[len(cur.blocks)-1]
	var delta int64
	if cur.strand != recSrcStrand {
		delta = last.Start - (m.TgtStart + (m.TgtEnd - m.TgtStart))
	} else {
		delta = m.TgtStart - (last.Start + last.Length)
	}
	if delta < 0 {
		return false
	}
	return cur.chrom == m.TgtChrom
}

// assignBlocksToIntervals is the merging core: it sorts the flattened
// per-block projections by source start, merges compatible consecutive
// pieces into single output records, splits at incompatible or duplicate
// boundaries, then flips and (in structured mode) computes insert gaps.
func assignBlocksToIntervals(mapped []mappedPiece, recSrcStrand Strand, outStructured bool) []*Record {
	if len(mapped) == 0 {
		return nil
	}
	sorted := append([]mappedPiece(nil), dedupeExact(mapped)...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SrcStart < sorted[j].SrcStart })

	isDup := make([]bool, len(sorted))
	for i, m := range sorted {
		if i > 0 && overlaps(m.SrcStart, m.SrcEnd, sorted[i-1].SrcStart, sorted[i-1].SrcEnd) {
			isDup[i] = true
		}
		if i+1 < len(sorted) && overlaps(m.SrcStart, m.SrcEnd, sorted[i+1].SrcStart, sorted[i+1].SrcEnd) {
			isDup[i] = true
		}
	}

	var buildings []*building
	for i, m := range sorted {
		var cur *building
		if len(buildings) > 0 {
			cur = buildings[len(buildings)-1]
		}
		needNew := cur == nil
		if !needNew && outStructured && isDup[i] {
			needNew = true
		}
		if !needNew {
			lastSrcStart := cur.blockSrc[len(cur.blockSrc)-1]
			if !compatible(cur, lastSrcStart, m, recSrcStrand) {
				needNew = true
			}
		}
		if needNew {
			cur = &building{chrom: m.TgtChrom, strand: m.Strand, start: m.TgtStart, end: m.TgtEnd}
			buildings = append(buildings, cur)
		} else {
			if m.TgtStart < cur.start {
				cur.start = m.TgtStart
			}
			if m.TgtEnd > cur.end {
				cur.end = m.TgtEnd
			}
		}
		cur.blocks = append(cur.blocks, Block{Start: m.TgtStart, Length: m.TgtEnd - m.TgtStart})
		cur.blockSrc = append(cur.blockSrc, m.SrcStart)
	}

	out := make([]*Record, 0, len(buildings))
	for _, b := range buildings {
		rec := &Record{
			Chrom:    b.chrom,
			Start:    b.start,
			End:      b.end,
			Strand:   b.strand,
			BedType:  12,
			SrcStart: b.blockSrc[0],
		}
		rec.Blocks = make([]Block, len(b.blocks))
		for i, blk := range b.blocks {
			rec.Blocks[i] = Block{Start: blk.Start - b.start, Length: blk.Length}
		}
		if outStructured {
			qStarts := append([]int64(nil), b.blockSrc...)
			rec.PSL = &PSLInfo{QBlockStarts: qStarts, QStrand: recSrcStrand}
		}
		flipBlocks(rec, outStructured)
		if outStructured {
			computePSLInserts(rec)
		}
		out = append(out, rec)
	}
	return out
}

// flipBlocks enforces ascending block order under the chosen strand
// convention.
func flipBlocks(rec *Record, outStructured bool) {
	if len(rec.Blocks) < 2 {
		return
	}
	delta := rec.Blocks[1].Start - (rec.Blocks[0].Start + rec.Blocks[0].Length)
	flip := delta < 0
	if outStructured {
		flip = (rec.Strand == StrandMinus && delta >= 0) || (rec.Strand != StrandMinus && delta < 0)
	}
	if !flip {
		return
	}
	reverseBlocks(rec.Blocks)
	if rec.PSL != nil {
		reverseInt64s(rec.PSL.QBlockStarts)
	}
}

func reverseBlocks(b []Block) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

func reverseInt64s(s []int64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// computePSLInserts fills the gap counters on a structured-mode record:
// target-side gaps between consecutive blocks become TNumInsert/
// TBaseInsert, query-side gaps between consecutive QBlockStarts become
// QNumInsert/QBaseInsert, both walked in the orientation implied by the
// record's and query's strand.
func computePSLInserts(rec *Record) {
	if rec.PSL == nil || len(rec.Blocks) < 2 {
		return
	}
	idx := make([]int, len(rec.Blocks))
	for i := range idx {
		idx[i] = i
	}
	if rec.Strand == StrandMinus {
		for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	}
	qIdx := make([]int, len(rec.PSL.QBlockStarts))
	for i := range qIdx {
		qIdx[i] = i
	}
	if rec.PSL.QStrand == StrandMinus {
		for i, j := 0, len(qIdx)-1; i < j; i, j = i+1, j-1 {
			qIdx[i], qIdx[j] = qIdx[j], qIdx[i]
		}
	}

	for k := 1; k < len(idx); k++ {
		prev, cur := rec.Blocks[idx[k-1]], rec.Blocks[idx[k]]
		tGap := cur.Start - (prev.Start + prev.Length)
		if tGap > 0 {
			rec.PSL.TNumInsert++
			rec.PSL.TBaseInsert += tGap
		}
	}
	for k := 1; k < len(qIdx); k++ {
		prevLen := rec.Blocks[qIdx[k-1]].Length
		qGap := rec.PSL.QBlockStarts[qIdx[k]] - (rec.PSL.QBlockStarts[qIdx[k-1]] + prevLen)
		if qGap < 0 {
			qGap = 0
		}
		if qGap > 0 {
			rec.PSL.QNumInsert++
			rec.PSL.QBaseInsert += qGap
		}
	}
}

// cleanResults post-processes assembled records: relocates
// thickStart/thickEnd to the projected span, drops empty block lists on
// blocked records, and recomputes srcStart/qStart/qEnd from the block set
// in structured mode.
func cleanResults(recs []*Record, outStructured bool) []*Record {
	out := recs[:0]
	for _, r := range recs {
		if r.BedType > 9 && len(r.Blocks) == 0 {
			continue
		}
		r.ThickStart, r.ThickEnd = r.Start, r.End
		if outStructured && r.PSL != nil && len(r.PSL.QBlockStarts) > 0 {
			min := r.PSL.QBlockStarts[0]
			for _, q := range r.PSL.QBlockStarts {
				if q < min {
					min = q
				}
			}
			r.SrcStart = min
			r.PSL.QStart = min
			// Blocks and QBlockStarts stay parallel through flipBlocks, so the
			// query end is the max over pairs, not the last index (which is the
			// low end after a minus-strand flip).
			var qEnd int64
			for i := range r.Blocks {
				if e := r.PSL.QBlockStarts[i] + r.Blocks[i].Length; e > qEnd {
					qEnd = e
				}
			}
			r.PSL.QEnd = qEnd
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SrcStart < out[j].SrcStart })
	return out
}
