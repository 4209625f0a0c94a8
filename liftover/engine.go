package liftover

import (
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/ejrsimr/hal/halnav"
	"github.com/ejrsimr/hal/halseg"
)

// Options configures a single Convert call. A plain struct passed by value;
// the field set is small and fixed.
type Options struct {
	// TraverseDupes includes paralogous projections in the output when true;
	// when false, paralogy steps are skipped.
	TraverseDupes bool
	// OutPSL switches output to structured-alignment records.
	OutPSL bool
	// OutPSLWithName additionally propagates the input record's Name.
	OutPSLWithName bool
	// CoalescenceLimit bounds the tree walk; nil means LcaOf(src, tgt).
	CoalescenceLimit *halseg.Genome
	// BedType selects which input fields are meaningful (3..12).
	BedType int
}

// RecordError is the soft, per-record failure kind: the caller that sees
// one must warn and continue to the next record rather than aborting the
// whole Convert call. Any other error Convert returns unwrapped is fatal
// and must propagate to the top-level driver without a subsequent store
// Close.
type RecordError struct {
	Kind string // "MissingSequence", "OutOfRange", "EmptyBlocks"
	msg  string
}

func (e *RecordError) Error() string { return e.msg }

func missingSequence(chrom string) *RecordError {
	return &RecordError{Kind: "MissingSequence", msg: "liftover: unknown chromosome " + chrom}
}
func outOfRange(chrom string) *RecordError {
	return &RecordError{Kind: "OutOfRange", msg: "liftover: end exceeds sequence length for " + chrom}
}
func emptyBlocks(chrom string) *RecordError {
	return &RecordError{Kind: "EmptyBlocks", msg: "liftover: blocked record with no blocks for " + chrom}
}

// Engine runs Convert against one Navigator, remembering which unknown
// chromosomes have already been warned about so a batch with many records
// against the same missing sequence logs it only once.
type Engine struct {
	nav    *halnav.Navigator
	warned map[string]bool
}

// New builds an Engine over nav.
func New(nav *halnav.Navigator) *Engine {
	return &Engine{nav: nav, warned: make(map[string]bool)}
}

// Convert lifts every record in over srcGenome onto tgtGenome, returning
// the sorted, assembled output records. A *RecordError from processRecord
// is a soft failure: it is logged and that record is skipped. Any other
// error is fatal and is returned immediately without processing further
// input.
func (e *Engine) Convert(srcGenome, tgtGenome *halseg.Genome, in []*Record, opts Options) ([]*Record, error) {
	var out []*Record
	for _, rec := range in {
		lines, err := e.processRecord(srcGenome, tgtGenome, rec, opts)
		if err != nil {
			var rerr *RecordError
			if asRecordError(err, &rerr) {
				e.warnOnce(rerr)
				continue
			}
			return nil, errors.Wrap(err, "liftover: Convert")
		}
		out = append(out, lines...)
	}
	return cleanResults(out, opts.OutPSL), nil
}

func asRecordError(err error, target **RecordError) bool {
	if re, ok := err.(*RecordError); ok {
		*target = re
		return true
	}
	return false
}

func (e *Engine) warnOnce(rerr *RecordError) {
	if rerr.Kind != "MissingSequence" {
		log.Error.Printf("%s", rerr.Error())
		return
	}
	if e.warned[rerr.Error()] {
		return
	}
	e.warned[rerr.Error()] = true
	log.Error.Printf("%s", rerr.Error())
}

// processRecord implements the per-record state machine: resolve the
// source sequence, bounds-check, lift the scalar interval or blocks across
// the genome tree, then assemble the result into output records.
// cleanResults and the final sort/emit happen once across the whole batch,
// in Convert.
func (e *Engine) processRecord(srcGenome, tgtGenome *halseg.Genome, rec *Record, opts Options) ([]*Record, error) {
	work := rec.Clone()

	// Step 1: promote to bedType 12 in structured mode so the downstream
	// block path is uniform.
	if opts.OutPSL && work.BedType < 12 {
		work.BedType = 12
		work.Blocks = []Block{{Start: 0, Length: work.End - work.Start}}
	}

	// Step 2: resolve the source sequence.
	srcSeq := srcGenome.GetSequence(work.Chrom)
	if srcSeq == nil {
		rerr := missingSequence(work.Chrom)
		if suggestion := suggestChromosome(work.Chrom, srcGenome.SeqNames()); suggestion != "" {
			rerr.msg += " (did you mean " + suggestion + "?)"
		}
		return nil, rerr
	}

	// Step 3: bounds check.
	if work.End > srcSeq.Len() {
		return nil, outOfRange(work.Chrom)
	}

	// Step 4: blocked records must carry at least one block.
	if work.BedType > 9 && len(work.Blocks) == 0 {
		return nil, emptyBlocks(work.Chrom)
	}

	var mapped []mappedPiece
	var err error
	if work.BedType <= 9 {
		// Step 5: scalar interval.
		mapped, err = liftInterval(e.nav, srcGenome, srcSeq, work.Start, work.End, work.Strand, tgtGenome, opts.TraverseDupes, opts.CoalescenceLimit)
	} else {
		// Step 6: blocked record.
		mapped, err = liftBlockIntervals(e.nav, srcGenome, srcSeq, work.Start, work.Blocks, work.Strand, tgtGenome, opts.TraverseDupes, opts.CoalescenceLimit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "liftover: navigator")
	}
	if len(mapped) == 0 {
		return nil, nil
	}

	// Step 5 (continued): a scalar record's pieces become output lines
	// directly, each preserving the input bedType and its own source slice.
	if work.BedType <= 9 {
		lines := make([]*Record, 0, len(mapped))
		for _, m := range mapped {
			lines = append(lines, &Record{
				Chrom:      m.TgtChrom,
				Start:      m.TgtStart,
				End:        m.TgtEnd,
				Name:       work.Name,
				Score:      work.Score,
				Strand:     m.Strand,
				BedType:    work.BedType,
				ThickStart: work.ThickStart,
				ThickEnd:   work.ThickEnd,
				ItemRGB:    work.ItemRGB,
				SrcStart:   m.SrcStart,
			})
		}
		return lines, nil
	}

	// Step 7: assemble a blocked record's pieces into output lines.
	lines := assignBlocksToIntervals(mapped, work.Strand, opts.OutPSL)
	for _, ln := range lines {
		ln.Name = work.Name
		ln.Score = work.Score
		ln.ItemRGB = work.ItemRGB
		if ln.PSL != nil {
			ln.PSL.QSize = srcSeq.Len()
			if opts.OutPSLWithName {
				ln.PSL.QName = rec.Name
			}
			if tgtSeq := tgtGenome.GetSequence(ln.Chrom); tgtSeq != nil {
				ln.PSL.TSize = tgtSeq.Len()
			}
		}
	}
	return lines, nil
}
